package rowsource

import (
	"context"
	"time"
)

// DefaultBatchSize is the number of rows fetched per round trip.
const DefaultBatchSize = 500

// Option configures a row source.
type Option func(*config)

type config struct {
	batchSize  int
	keepAlive  string
	maxRetries int
	backoff    func(int) time.Duration
	withID     bool
}

func defaultConfig() *config {
	return &config{
		batchSize: DefaultBatchSize,
		keepAlive: "1m",
		withID:    true,
	}
}

func applyOptions(opts []Option) *config {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithBatchSize sets how many rows are fetched per request.
func WithBatchSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithKeepAlive sets how long a search scroll context is kept between pages,
// in Elasticsearch duration syntax.
func WithKeepAlive(d string) Option {
	return func(c *config) {
		if d != "" {
			c.keepAlive = d
		}
	}
}

// WithRetry retries failed page fetches up to maxRetries times.
func WithRetry(maxRetries int, backoff func(attempt int) time.Duration) Option {
	return func(c *config) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

// WithoutID drops the document id column from search rows.
func WithoutID() Option {
	return func(c *config) { c.withID = false }
}

// ConstantBackoff returns a backoff function that always returns the same duration.
func ConstantBackoff(d time.Duration) func(int) time.Duration {
	return func(_ int) time.Duration {
		return d
	}
}

// ExponentialBackoff returns a backoff function that increases the duration exponentially.
// backoff = initial * 2^(attempt-1)
func ExponentialBackoff(initial time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt <= 1 {
			return initial
		}
		return initial * time.Duration(1<<(attempt-1))
	}
}

// retry runs fn until it succeeds, a permanent error is returned or the
// retries are exhausted. permanent reports errors that must not be retried.
func (c *config) retry(ctx context.Context, permanent func(error) bool, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil || (permanent != nil && permanent(err)) {
			return err
		}
		if attempt >= c.maxRetries {
			return err
		}
		if c.backoff != nil {
			select {
			case <-time.After(c.backoff(attempt + 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

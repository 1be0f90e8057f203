package googlecloud

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/datastore"
	"go.uber.org/multierr"
)

// batch is one commit worth of entities; first is the 1-based row number of
// its first entity.
type batch struct {
	first    int
	keys     []*datastore.Key
	entities []datastore.PropertyList
}

type putFunc func(ctx context.Context, b batch) error

// writer commits batches with a fixed pool of workers. A failed commit is
// retried with a linear backoff; the first batch that keeps failing stops
// the remaining ones.
type writer struct {
	workers int
	retries int
	backoff time.Duration
	put     putFunc
}

func (w *writer) run(parent context.Context, batches <-chan batch) (int, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		mu    sync.Mutex
		saved int
		errs  error
		wg    sync.WaitGroup
	)
	workers := w.workers
	if workers < 1 {
		workers = 1
	}
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for b := range batches {
				if ctx.Err() != nil {
					continue
				}
				err := w.commit(ctx, b)
				mu.Lock()
				switch {
				case err != nil && errs != nil && errors.Is(err, context.Canceled):
				case err != nil:
					errs = multierr.Append(errs, fmt.Errorf("put rows %d-%d: %w", b.first, b.first+len(b.keys)-1, err))
					cancel()
				default:
					saved += len(b.keys)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if errs == nil {
		errs = parent.Err()
	}
	return saved, errs
}

func (w *writer) commit(ctx context.Context, b batch) error {
	attempts := w.retries
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = w.put(ctx, b); err == nil {
			return nil
		}
		if attempt == attempts-1 || w.backoff <= 0 {
			continue
		}
		select {
		case <-time.After(time.Duration(attempt+1) * w.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

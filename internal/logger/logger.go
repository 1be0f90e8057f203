package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ctxKey struct{}

var (
	mu  sync.RWMutex
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
)

// InitLogging writes JSON lines to filePath, or human readable output to
// stderr when filePath is empty.
func InitLogging(filePath string) {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s, logging to stderr: %v\n", filePath, err)
		} else {
			out = f
		}
	}
	SetOutput(out)
}

// SetOutput replaces the log destination.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = zerolog.New(w).With().Timestamp().Logger().Level(log.GetLevel())
}

// SetLevel sets the minimum level, "info" when name is not a level.
func SetLevel(name string) {
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	defer mu.Unlock()
	log = log.Level(lvl)
}

// Logger returns the process logger, for libraries taking a zerolog.Logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// WithRequestID returns ctx carrying id, generating one when id is empty.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the request id of ctx, "" when there is none.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// FromContext returns the process logger tagged with the request id of ctx.
func FromContext(ctx context.Context) zerolog.Logger {
	l := Logger()
	if id := RequestID(ctx); id != "" {
		return l.With().Str("request_id", id).Logger()
	}
	return l
}

func emit(ctx context.Context, e *zerolog.Event, format string, args []interface{}) {
	if id := RequestID(ctx); id != "" {
		e = e.Str("request_id", id)
	}
	if len(args) == 0 {
		e.Msg(format)
		return
	}
	e.Msgf(format, args...)
}

func InfoLog(ctx context.Context, format string, args ...interface{}) {
	l := Logger()
	emit(ctx, l.Info(), format, args)
}

func WarnLog(ctx context.Context, format string, args ...interface{}) {
	l := Logger()
	emit(ctx, l.Warn(), format, args)
}

func ErrorLog(ctx context.Context, format string, args ...interface{}) {
	l := Logger()
	emit(ctx, l.Error(), format, args)
}

func DebugLog(ctx context.Context, format string, args ...interface{}) {
	l := Logger()
	emit(ctx, l.Debug(), format, args)
}

package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/satishbabariya/coconutdal/runtime/dialect"
)

// QueryEvent describes one command executed by a Dal.
type QueryEvent struct {
	// ID is unique per operation.
	ID        string
	Operation string
	Query     string
	Mode      dialect.Mode
	Variant   dialect.Variant
	Args      []any
	Start     time.Time
	End       time.Time
	Duration  time.Duration
	Error     error
	// Classified is set when Error belongs to the backend's driver and was
	// recorded as the Dal's LastError.
	Classified bool
}

// Middleware is a function that intercepts commands
type Middleware func(ctx context.Context, event *QueryEvent, next func() error) error

// chain runs exec through the middlewares in registration order.
func (d *Dal) chain(ctx context.Context, event *QueryEvent, exec func() error) error {
	event.Start = time.Now()

	index := 0
	var next func() error
	next = func() error {
		if index >= len(d.middlewares) {
			err := exec()
			event.End = time.Now()
			event.Duration = event.End.Sub(event.Start)
			event.Error = err
			event.Classified = err != nil && d.adapter.IsClassifiedError(err)
			return err
		}
		mw := d.middlewares[index]
		index++
		return mw(ctx, event, next)
	}
	return next()
}

// LoggingMiddleware logs every command at debug level and failures at warn.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		logger.DebugContext(ctx, "executing command",
			"id", event.ID, "operation", event.Operation, "mode", event.Mode, "query", event.Query)
		err := next()
		if err != nil {
			logger.WarnContext(ctx, "command failed",
				"id", event.ID, "operation", event.Operation, "classified", event.Classified, "error", err)
		} else {
			logger.DebugContext(ctx, "command completed", "id", event.ID, "duration", event.Duration)
		}
		return err
	}
}

// TimingMiddleware creates a middleware that measures command execution time
func TimingMiddleware(onTiming func(query string, duration time.Duration)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if onTiming != nil {
			onTiming(event.Query, event.Duration)
		}
		return err
	}
}

// ErrorMiddleware creates a middleware that handles errors
func ErrorMiddleware(onError func(query string, err error)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if err != nil && onError != nil {
			onError(event.Query, err)
		}
		return err
	}
}

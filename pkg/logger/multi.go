package logger

import (
	"context"
	"log/slog"
)

// Multi returns a *slog.Logger that hands every record to all of the
// given loggers' handlers. The watch command uses it to write pretty
// output to the console and JSON records to a log file at the same time.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	handlers := make([]slog.Handler, len(loggers))
	for i, l := range loggers {
		handlers[i] = l.Handler()
	}
	return slog.New(fanout(handlers))
}

// fanout dispatches records to every wrapped handler that wants them.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	children := make(fanout, len(f))
	for i, h := range f {
		children[i] = h.WithAttrs(attrs)
	}
	return children
}

func (f fanout) WithGroup(name string) slog.Handler {
	children := make(fanout, len(f))
	for i, h := range f {
		children[i] = h.WithGroup(name)
	}
	return children
}

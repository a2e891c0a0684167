// Package logger builds the process-wide *slog.Logger for screensort.
// Commands take the pretty colorized handler, the watch log file takes
// JSON, and libraries that need silence take Nop.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level     slog.Level
	pretty    bool
	json      bool
	writers   []io.Writer
	addSource bool
}

// New builds a *slog.Logger from the options. With no options it writes
// text records at Info level to stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:   slog.LevelInfo,
		writers: []io.Writer{os.Stdout},
	}
	for _, opt := range opts {
		opt(c)
	}

	return slog.New(c.handler())
}

// handler picks the slog.Handler the options describe. Pretty wins over
// JSON when both are set.
func (c *config) handler() slog.Handler {
	w := io.MultiWriter(c.writers...)

	switch {
	case c.pretty:
		return charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmLevel(c.level),
			ReportCaller:    c.addSource,
			ReportTimestamp: true,
		})
	case c.json:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.addSource,
		})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.addSource,
		})
	}
}

// Nop returns a logger that discards everything. Handy default for
// libraries that accept an optional logger.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

func charmLevel(level slog.Level) charmlog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmlog.DebugLevel
	case level <= slog.LevelInfo:
		return charmlog.InfoLevel
	case level <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

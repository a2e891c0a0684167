package logger

import (
	"io"
	"log/slog"
)

// Option adjusts how New builds a logger.
type Option func(*config)

// WithDebug drops the level to Debug; false keeps Info.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithPretty switches to the colorized charmbracelet handler the
// commands use.
func WithPretty(pretty bool) Option {
	return func(c *config) { c.pretty = pretty }
}

// WithJSON switches to slog's JSON handler, used for the watch log file.
func WithJSON(json bool) Option {
	return func(c *config) { c.json = json }
}

// WithWriter sends output to w instead of stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) { c.writers = []io.Writer{w} }
}

// WithWriters sends output to every w, combined with io.MultiWriter.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) { c.writers = w }
}

// WithSource records the file:line that produced each entry.
func WithSource(source bool) Option {
	return func(c *config) { c.addSource = source }
}

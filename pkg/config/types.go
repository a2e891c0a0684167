package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent screensort configuration stored as
// config.toml in the .screensort/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Library     LibraryConfig     `toml:"library"`
	Cache       CacheConfig       `toml:"cache"`
	Model       ModelConfig       `toml:"model"`
	Vision      VisionConfig      `toml:"vision"`
	Enrich      EnrichConfig      `toml:"enrich"`
	EventStream EventStreamConfig `toml:"event_stream"`
	Watch       WatchConfig       `toml:"watch"`
}

// LibraryConfig holds the screenshot library settings.
type LibraryConfig struct {
	// Path is the directory scanned for captured screenshots.
	Path string `toml:"path,omitempty"`
	// DestinationRoot is where per-type destination folders are created.
	// Defaults to Path when empty.
	DestinationRoot string `toml:"destination_root,omitempty"`
}

// CacheConfig holds the processed-set and results persistence settings.
type CacheConfig struct {
	Backend     string `toml:"backend,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// ModelConfig holds generative-model settings for classification and
// extraction.
type ModelConfig struct {
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`
	// ConfidenceThreshold gates extracted metadata; records scoring below
	// it are flagged instead of succeeding.
	ConfidenceThreshold float64 `toml:"confidence_threshold,omitempty"`
}

// VisionConfig holds transcription service settings.
type VisionConfig struct {
	Endpoint string `toml:"endpoint,omitempty"`
}

// EnrichConfig holds external lookup and playlist/journal settings.
type EnrichConfig struct {
	PlaylistName     string `toml:"playlist_name,omitempty"`
	PlaylistEndpoint string `toml:"playlist_endpoint,omitempty"`
	JournalEndpoint  string `toml:"journal_endpoint,omitempty"`
}

// EventStreamConfig holds result-event publishing settings.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	// DebounceMS is how long the watcher waits for the capture directory
	// to settle before starting a batch.
	DebounceMS    uint   `toml:"debounce_ms,omitempty"`
	MetricsListen string `toml:"metrics_listen,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"library.path": {
		get: func(c *Config) string { return c.Library.Path },
		set: func(c *Config, v string) error { c.Library.Path = v; return nil },
	},
	"library.destination_root": {
		get: func(c *Config) string { return c.Library.DestinationRoot },
		set: func(c *Config, v string) error { c.Library.DestinationRoot = v; return nil },
	},
	"cache.backend": {
		get: func(c *Config) string { return c.Cache.Backend },
		set: func(c *Config, v string) error { c.Cache.Backend = v; return nil },
	},
	"cache.sqlite_path": {
		get: func(c *Config) string { return c.Cache.SQLitePath },
		set: func(c *Config, v string) error { c.Cache.SQLitePath = v; return nil },
	},
	"cache.postgres_dsn": {
		get: func(c *Config) string { return c.Cache.PostgresDSN },
		set: func(c *Config, v string) error { c.Cache.PostgresDSN = v; return nil },
	},
	"model.provider": {
		get: func(c *Config) string { return c.Model.Provider },
		set: func(c *Config, v string) error { c.Model.Provider = v; return nil },
	},
	"model.model": {
		get: func(c *Config) string { return c.Model.Model },
		set: func(c *Config, v string) error { c.Model.Model = v; return nil },
	},
	"model.base_url": {
		get: func(c *Config) string { return c.Model.BaseURL },
		set: func(c *Config, v string) error { c.Model.BaseURL = v; return nil },
	},
	"model.confidence_threshold": {
		get: func(c *Config) string {
			if c.Model.ConfidenceThreshold == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Model.ConfidenceThreshold, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for model.confidence_threshold: %w", err)
			}
			if f < 0 || f > 1 {
				return fmt.Errorf("model.confidence_threshold must be in [0,1], got %v", f)
			}
			c.Model.ConfidenceThreshold = f
			return nil
		},
	},
	"vision.endpoint": {
		get: func(c *Config) string { return c.Vision.Endpoint },
		set: func(c *Config, v string) error { c.Vision.Endpoint = v; return nil },
	},
	"enrich.playlist_name": {
		get: func(c *Config) string { return c.Enrich.PlaylistName },
		set: func(c *Config, v string) error { c.Enrich.PlaylistName = v; return nil },
	},
	"enrich.playlist_endpoint": {
		get: func(c *Config) string { return c.Enrich.PlaylistEndpoint },
		set: func(c *Config, v string) error { c.Enrich.PlaylistEndpoint = v; return nil },
	},
	"enrich.journal_endpoint": {
		get: func(c *Config) string { return c.Enrich.JournalEndpoint },
		set: func(c *Config, v string) error { c.Enrich.JournalEndpoint = v; return nil },
	},
	"event_stream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"event_stream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"event_stream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
	"watch.debounce_ms": {
		get: func(c *Config) string {
			if c.Watch.DebounceMS == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Watch.DebounceMS), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for watch.debounce_ms: %w", err)
			}
			c.Watch.DebounceMS = uint(n)
			return nil
		},
	},
	"watch.metrics_listen": {
		get: func(c *Config) string { return c.Watch.MetricsListen },
		set: func(c *Config, v string) error { c.Watch.MetricsListen = v; return nil },
	},
}

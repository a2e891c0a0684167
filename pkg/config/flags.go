package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --library
// on both "screensort run" and "screensort watch").
type Flag struct {
	// Name is the long flag name (e.g. "library").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "library.path").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// AddFloat64Flag, and BindRegisteredFlags to avoid typos or drift from one
// command to another.
const (
	FlagLibrary         = "library"
	FlagDestinationRoot = "destination-root"
	FlagCacheBackend    = "cache-backend"
	FlagSQLite          = "sqlite"
	FlagPostgresDSN     = "postgres-dsn"
	FlagProvider        = "provider"
	FlagModel           = "model"
	FlagBaseURL         = "base-url"
	FlagThreshold       = "confidence-threshold"
	FlagVisionEndpoint  = "vision-endpoint"
	FlagPlaylistName    = "playlist-name"
	FlagJournalEndpoint = "journal-endpoint"
	FlagStreamProvider  = "stream-provider"
	FlagStreamBrokers   = "stream-brokers"
	FlagStreamTopic     = "stream-topic"
	FlagDebounce        = "debounce"
	FlagMetricsListen   = "metrics-listen"
)

// DefaultFlagSet returns the canonical flag definitions for every registry
// key. Commands pick the subset they need; the definitions live here so the
// same flag renders identically everywhere it appears.
func DefaultFlagSet() FlagSet {
	return FlagSet{
		FlagLibrary:         {Name: "library", Shorthand: "l", ViperKey: "library.path", Description: "Screenshot library directory"},
		FlagDestinationRoot: {Name: "destination-root", ViperKey: "library.destination_root", Description: "Root directory for sorted destination folders (defaults to the library)"},
		FlagCacheBackend:    {Name: "cache-backend", ViperKey: "cache.backend", Description: "Cache backend (sqlite, postgres)"},
		FlagSQLite:          {Name: "sqlite", Shorthand: "s", ViperKey: "cache.sqlite_path", Description: "Path to the SQLite cache database"},
		FlagPostgresDSN:     {Name: "postgres-dsn", ViperKey: "cache.postgres_dsn", Description: "Postgres connection string for the cache"},
		FlagProvider:        {Name: "provider", ViperKey: "model.provider", Description: "Model provider (openai, anthropic, ollama)"},
		FlagModel:           {Name: "model", Shorthand: "m", ViperKey: "model.model", Description: "Model used for classification and extraction"},
		FlagBaseURL:         {Name: "base-url", ViperKey: "model.base_url", Description: "Base URL for the model provider"},
		FlagThreshold:       {Name: "confidence-threshold", ViperKey: "model.confidence_threshold", Description: "Minimum confidence for extracted metadata"},
		FlagVisionEndpoint:  {Name: "vision-endpoint", ViperKey: "vision.endpoint", Description: "Transcription service endpoint"},
		FlagPlaylistName:    {Name: "playlist-name", ViperKey: "enrich.playlist_name", Description: "Playlist that collects found song links"},
		FlagJournalEndpoint: {Name: "journal-endpoint", ViperKey: "enrich.journal_endpoint", Description: "Journal service endpoint for song entries"},
		FlagStreamProvider:  {Name: "stream-provider", ViperKey: "event_stream.provider", Description: "Result event publisher (nop, kafka)"},
		FlagStreamBrokers:   {Name: "stream-brokers", ViperKey: "event_stream.brokers", Description: "Comma-separated Kafka broker addresses"},
		FlagStreamTopic:     {Name: "stream-topic", ViperKey: "event_stream.topic", Description: "Kafka topic for result events"},
		FlagDebounce:        {Name: "debounce", ViperKey: "watch.debounce_ms", Description: "Milliseconds the library must stay quiet before a batch starts"},
		FlagMetricsListen:   {Name: "metrics-listen", ViperKey: "watch.metrics_listen", Description: "Listen address for the Prometheus metrics endpoint"},
	}
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddFloat64Flag registers a float64 flag on cmd from the given FlagSet.
func AddFloat64Flag(cmd *cobra.Command, fs FlagSet, registryKey string, target *float64) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultFloat64(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().Float64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Float64Var(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultFloat64 returns the default float64 value for a viper key from NewDefaultConfig.
func defaultFloat64(viperKey string) float64 {
	v := viper.New()
	setViperDefaults(v)
	return v.GetFloat64(viperKey)
}

package config

const (
	defaultCacheBackend = "sqlite"

	defaultModelProvider = "ollama"
	defaultModelName     = "llama3.2"
	defaultModelBaseURL  = "http://localhost:11434"

	// defaultConfidenceThreshold gates extracted metadata. Matches the
	// fixed confidence assigned to deterministic fallback extraction, so
	// fallback results pass the gate exactly.
	defaultConfidenceThreshold = 0.6

	defaultVisionEndpoint = "http://localhost:8090/v1/transcribe"

	defaultPlaylistName = "Screensort Finds"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "screensort.results"

	defaultWatchDebounceMS = 2000
	defaultMetricsListen   = ":9090"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values. Library paths
// default to empty and are resolved by the command layer (current
// directory's screenshots/ folder, then ~/Screenshots).
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Cache: CacheConfig{
			Backend: defaultCacheBackend,
		},
		Model: ModelConfig{
			Provider:            defaultModelProvider,
			Model:               defaultModelName,
			BaseURL:             defaultModelBaseURL,
			ConfidenceThreshold: defaultConfidenceThreshold,
		},
		Vision: VisionConfig{
			Endpoint: defaultVisionEndpoint,
		},
		Enrich: EnrichConfig{
			PlaylistName: defaultPlaylistName,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		Watch: WatchConfig{
			DebounceMS:    defaultWatchDebounceMS,
			MetricsListen: defaultMetricsListen,
		},
	}
}

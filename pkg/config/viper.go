package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mitgor/screensort/pkg/dotdir"
)

// InitViper builds the *viper.Viper every command resolves its settings
// from. Precedence, highest first: CLI flags (once BindRegisteredFlags has
// run), SCREENSORT_* environment variables, config.toml, then the defaults
// from NewDefaultConfig().
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(target)

	// A missing config.toml is fine, the defaults cover it.
	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// SCREENSORT_MODEL_PROVIDER overrides model.provider, and so on.
	v.SetEnvPrefix("SCREENSORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults mirrors NewDefaultConfig() into viper under the dotted
// key names, keeping defaults.go the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("library.path", d.Library.Path)
	v.SetDefault("library.destination_root", d.Library.DestinationRoot)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.sqlite_path", d.Cache.SQLitePath)
	v.SetDefault("cache.postgres_dsn", d.Cache.PostgresDSN)

	v.SetDefault("model.provider", d.Model.Provider)
	v.SetDefault("model.model", d.Model.Model)
	v.SetDefault("model.base_url", d.Model.BaseURL)
	v.SetDefault("model.confidence_threshold", d.Model.ConfidenceThreshold)

	v.SetDefault("vision.endpoint", d.Vision.Endpoint)

	v.SetDefault("enrich.playlist_name", d.Enrich.PlaylistName)
	v.SetDefault("enrich.playlist_endpoint", d.Enrich.PlaylistEndpoint)
	v.SetDefault("enrich.journal_endpoint", d.Enrich.JournalEndpoint)

	v.SetDefault("event_stream.provider", d.EventStream.Provider)
	v.SetDefault("event_stream.brokers", d.EventStream.Brokers)
	v.SetDefault("event_stream.topic", d.EventStream.Topic)

	v.SetDefault("watch.debounce_ms", d.Watch.DebounceMS)
	v.SetDefault("watch.metrics_listen", d.Watch.MetricsListen)
}

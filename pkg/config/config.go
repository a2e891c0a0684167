package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mitgor/screensort/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v1 is the first released version of the config layout.
	v1 = 1

	// CurrentV is the currently supported version, points to v1.
	CurrentV = v1
)

// orderedKeys lists every config key in the section order of config.toml.
// `screensort config list` and shell completion both follow this order.
var orderedKeys = []string{
	"library.path",
	"library.destination_root",
	"cache.backend",
	"cache.sqlite_path",
	"cache.postgres_dsn",
	"model.provider",
	"model.model",
	"model.base_url",
	"model.confidence_threshold",
	"vision.endpoint",
	"enrich.playlist_name",
	"enrich.playlist_endpoint",
	"enrich.journal_endpoint",
	"event_stream.provider",
	"event_stream.brokers",
	"event_stream.topic",
	"watch.debounce_ms",
	"watch.metrics_listen",
}

// presets are the model sections installed by `screensort init --preset`.
var presets = map[string]ModelConfig{
	"openai": {
		Provider:            "openai",
		Model:               "gpt-4o-mini",
		BaseURL:             "https://api.openai.com",
		ConfidenceThreshold: defaultConfidenceThreshold,
	},
	"anthropic": {
		Provider:            "anthropic",
		Model:               "claude-3-5-haiku-latest",
		BaseURL:             "https://api.anthropic.com",
		ConfidenceThreshold: defaultConfidenceThreshold,
	},
	"ollama": {
		Provider:            "ollama",
		Model:               defaultModelName,
		BaseURL:             defaultModelBaseURL,
		ConfidenceThreshold: defaultConfidenceThreshold,
	},
}

// Configer reads and writes config.toml inside the resolved .screensort/
// directory.
type Configer struct {
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	target, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(target, configFile)
	if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// The path is kept even when the file is missing so SaveConfig can
	// create it.
	return &Configer{targetPath: path}, nil
}

// ValidConfigKeys returns every supported key, ordered like config.toml.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}

	// Keys registered but missing from orderedKeys still show up, sorted,
	// after the known ones.
	var extra []string
	for k := range configKeys {
		if !slices.Contains(result, k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)

	return append(result, extra...)
}

// IsValidConfigKey reports whether key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func lookupKey(key string) (configKeyInfo, error) {
	info, ok := configKeys[key]
	if !ok {
		return configKeyInfo{}, fmt.Errorf("unknown config key: %q", key)
	}
	return info, nil
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig reads config.toml from the target directory. A missing file is
// not an error: callers get NewDefaultConfig() back, and fields the file
// leaves unset are filled from the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if errors.Is(err, os.ErrNotExist) {
		return NewDefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

// fallback fills dst with def when dst holds the zero value.
func fallback[T comparable](dst *T, def T) {
	var zero T
	if *dst == zero {
		*dst = def
	}
}

func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	fallback(&cfg.Version, d.Version)
	fallback(&cfg.Cache.Backend, d.Cache.Backend)
	fallback(&cfg.Model.Provider, d.Model.Provider)
	fallback(&cfg.Model.Model, d.Model.Model)
	fallback(&cfg.Model.BaseURL, d.Model.BaseURL)
	fallback(&cfg.Model.ConfidenceThreshold, d.Model.ConfidenceThreshold)
	fallback(&cfg.Vision.Endpoint, d.Vision.Endpoint)
	fallback(&cfg.Enrich.PlaylistName, d.Enrich.PlaylistName)
	fallback(&cfg.EventStream.Provider, d.EventStream.Provider)
	fallback(&cfg.EventStream.Topic, d.EventStream.Topic)
	fallback(&cfg.Watch.DebounceMS, d.Watch.DebounceMS)
	fallback(&cfg.Watch.MetricsListen, d.Watch.MetricsListen)
}

// SaveConfig writes cfg to config.toml in the target directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}
	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue parses value for the key's type and writes it through to
// config.toml.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, err := lookupKey(key)
	if err != nil {
		return err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue returns the string rendering of the key's current value.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, err := lookupKey(key)
	if err != nil {
		return "", err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config whose model section is tuned for the named
// provider. See ValidPresetNames for the recognized names.
func PresetConfig(name string) (*Config, error) {
	preset, ok := presets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}

	base := NewDefaultConfig()
	base.Model = preset

	return base, nil
}

// ValidPresetNames returns the recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "anthropic", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config. A version written by
// a newer release is rejected rather than silently reinterpreted.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

// Package credentials stores provider API keys in credentials.toml under
// the .screensort/ directory. Stored keys win over environment variables
// so that `screensort auth` takes effect immediately.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/mitgor/screensort/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// providerEnvVars maps each provider to the environment variable consulted
// when no key is stored.
var providerEnvVars = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"tmdb":      "TMDB_API_KEY",
}

// Manager reads and writes credentials.toml.
type Manager struct {
	targetPath string
}

// NewManager resolves where credentials.toml lives. A non-empty override
// names the .screensort/ directory directly; otherwise the standard dotdir
// resolution applies.
func NewManager(override string) (*Manager, error) {
	target, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	return &Manager{targetPath: filepath.Join(target, credentialsFile)}, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// Load reads the credentials file. A missing file is not an error; it
// yields an empty set so first-time `screensort auth` works.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if errors.Is(err, os.ErrNotExist) {
		return emptyCredentials(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}

	return creds, nil
}

// Save writes the credentials file. Keys are secrets, so the file is
// always written 0600.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// mutate applies fn to the loaded credentials and saves the result.
func (m *Manager) mutate(fn func(*Credentials)) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	fn(creds)
	return m.Save(creds)
}

// SetKey stores an API key for the given provider, replacing any
// previous key.
func (m *Manager) SetKey(provider, key string) error {
	return m.mutate(func(c *Credentials) {
		c.Providers[provider] = ProviderCredential{APIKey: key}
	})
}

// RemoveKey deletes the stored credential for a provider. Removing a
// provider that was never stored is a no-op.
func (m *Manager) RemoveKey(provider string) error {
	return m.mutate(func(c *Credentials) {
		delete(c.Providers, provider)
	})
}

// GetKey returns the stored API key for the given provider, or an empty
// string when none is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	key, _ := creds.Key(provider)
	return key, nil
}

// ResolveKey resolves a provider's API key: the stored credential first,
// then the provider's environment variable. Empty when neither is set.
func (m *Manager) ResolveKey(provider string) (string, error) {
	key, err := m.GetKey(provider)
	if err != nil || key != "" {
		return key, err
	}

	if envVar := EnvVarForProvider(provider); envVar != "" {
		return os.Getenv(envVar), nil
	}

	return "", nil
}

// ListProviders returns the providers with stored credentials, sorted.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(creds.Providers))
	for name := range creds.Providers {
		providers = append(providers, name)
	}
	sort.Strings(providers)

	return providers, nil
}

// EnvVarForProvider returns the environment variable consulted for a
// provider, or an empty string for unknown providers.
func EnvVarForProvider(provider string) string {
	return providerEnvVars[provider]
}

// SupportedProviders lists the providers that take API keys: the model
// providers plus the movie lookup service.
func SupportedProviders() []string {
	return []string{"openai", "anthropic", "tmdb"}
}

// IsSupportedProvider reports whether `screensort auth` accepts the
// provider.
func IsSupportedProvider(provider string) bool {
	return slices.Contains(SupportedProviders(), provider)
}

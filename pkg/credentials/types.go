package credentials

// Credentials is the on-disk shape of credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ProviderCredential holds one provider's API key.
type ProviderCredential struct {
	APIKey string `toml:"api_key"`
}

// Key returns the stored key for a provider and whether one exists.
func (c *Credentials) Key(provider string) (string, bool) {
	pc, ok := c.Providers[provider]
	return pc.APIKey, ok
}

func emptyCredentials() *Credentials {
	return &Credentials{
		Version:   currentVersion,
		Providers: make(map[string]ProviderCredential),
	}
}

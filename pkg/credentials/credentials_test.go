package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mitgor/screensort/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	credsPath := func() string {
		return filepath.Join(tmpDir, "credentials.toml")
	}

	Describe("NewManager", func() {
		It("points at credentials.toml inside the override directory", func() {
			Expect(mgr.GetTarget()).To(Equal(credsPath()))
		})
	})

	Describe("Load", func() {
		It("hands back an empty credential set when no file exists", func() {
			creds, err := mgr.Load()

			Expect(err).NotTo(HaveOccurred())
			Expect(creds).NotTo(BeNil())
			Expect(creds.Providers).To(BeEmpty())
		})

		It("reads keys from an existing file", func() {
			data := `version = 0

[providers.openai]
api_key = "sk-test-key"
`
			Expect(os.WriteFile(credsPath(), []byte(data), 0o600)).To(Succeed())

			creds, err := mgr.Load()

			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(HaveKey("openai"))
			Expect(creds.Providers["openai"].APIKey).To(Equal("sk-test-key"))
		})

		It("surfaces malformed TOML as an error", func() {
			Expect(os.WriteFile(credsPath(), []byte("not valid [[["), 0o600)).To(Succeed())

			creds, err := mgr.Load()

			Expect(err).To(HaveOccurred())
			Expect(creds).To(BeNil())
		})
	})

	Describe("Save", func() {
		It("writes the file with owner-only permissions", func() {
			creds := &credentials.Credentials{
				Providers: map[string]credentials.ProviderCredential{
					"openai": {APIKey: "sk-test"},
				},
			}
			Expect(mgr.Save(creds)).To(Succeed())

			info, err := os.Stat(credsPath())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("rejects nil credentials", func() {
			Expect(mgr.Save(nil)).To(HaveOccurred())
		})
	})

	Describe("SetKey", func() {
		It("stores a key that GetKey reads back", func() {
			Expect(mgr.SetKey("openai", "sk-new-key")).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-new-key"))
		})

		It("replaces an existing key", func() {
			Expect(mgr.SetKey("openai", "sk-old")).To(Succeed())
			Expect(mgr.SetKey("openai", "sk-new")).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-new"))
		})

		It("leaves other providers untouched", func() {
			Expect(mgr.SetKey("openai", "sk-openai")).To(Succeed())
			Expect(mgr.SetKey("tmdb", "tmdb-key")).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-openai"))

			key, err = mgr.GetKey("tmdb")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("tmdb-key"))
		})
	})

	Describe("GetKey", func() {
		It("is empty for a provider with nothing stored", func() {
			key, err := mgr.GetKey("nonexistent")

			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})

	Describe("ResolveKey", func() {
		It("prefers the stored credential over the environment", func() {
			Expect(os.Setenv("TMDB_API_KEY", "env-key")).To(Succeed())
			DeferCleanup(func() { os.Unsetenv("TMDB_API_KEY") })

			Expect(mgr.SetKey("tmdb", "stored-key")).To(Succeed())

			key, err := mgr.ResolveKey("tmdb")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("stored-key"))
		})

		It("falls back to the provider environment variable", func() {
			Expect(os.Setenv("TMDB_API_KEY", "env-key")).To(Succeed())
			DeferCleanup(func() { os.Unsetenv("TMDB_API_KEY") })

			key, err := mgr.ResolveKey("tmdb")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("env-key"))
		})

		It("is empty when neither store nor environment has a key", func() {
			Expect(os.Unsetenv("TMDB_API_KEY")).To(Succeed())

			key, err := mgr.ResolveKey("tmdb")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})

	Describe("RemoveKey", func() {
		It("drops a stored key", func() {
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())
			Expect(mgr.RemoveKey("openai")).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})

		It("tolerates a provider that was never stored", func() {
			Expect(mgr.RemoveKey("nonexistent")).To(Succeed())
		})
	})

	Describe("ListProviders", func() {
		It("is empty before anything is stored", func() {
			providers, err := mgr.ListProviders()

			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(BeEmpty())
		})

		It("sorts the stored providers", func() {
			Expect(mgr.SetKey("tmdb", "k-1")).To(Succeed())
			Expect(mgr.SetKey("anthropic", "k-2")).To(Succeed())

			providers, err := mgr.ListProviders()

			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(Equal([]string{"anthropic", "tmdb"}))
		})
	})
})

var _ = DescribeTable("EnvVarForProvider",
	func(provider, envVar string) {
		Expect(credentials.EnvVarForProvider(provider)).To(Equal(envVar))
	},
	Entry("openai", "openai", "OPENAI_API_KEY"),
	Entry("anthropic", "anthropic", "ANTHROPIC_API_KEY"),
	Entry("tmdb", "tmdb", "TMDB_API_KEY"),
	Entry("unknown providers have no variable", "unknown", ""),
)

var _ = Describe("SupportedProviders", func() {
	It("covers the model providers and tmdb", func() {
		Expect(credentials.SupportedProviders()).To(ConsistOf("openai", "anthropic", "tmdb"))
	})
})

var _ = Describe("IsSupportedProvider", func() {
	It("accepts every supported provider", func() {
		for _, p := range credentials.SupportedProviders() {
			Expect(credentials.IsSupportedProvider(p)).To(BeTrue(), "provider: %s", p)
		}
	})

	It("rejects providers that take no stored key", func() {
		Expect(credentials.IsSupportedProvider("ollama")).To(BeFalse())
		Expect(credentials.IsSupportedProvider("unknown")).To(BeFalse())
	})
})

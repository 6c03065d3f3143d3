package config_test

import (
	"testing"
	"time"

	"github.com/kittinan/git-soul/internal/config"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("LoadConfigWithEnv", func() {
	It("should load config from fake env", func() {
		mockEnv := map[string]string{
			"GITHUB_TOKEN":    "abc123",
			"ZAI_API_KEY":     "zai-key",
			"POSTGRES_DSN":    "postgres://...",
			"GITSOUL_DEBUG":   "true",
			"GITSOUL_WORKERS": "8",
		}

		getenv := func(key string) string {
			return mockEnv[key]
		}

		cfg := config.LoadConfigWithEnv(getenv)

		Expect(cfg.GitHubToken).To(Equal("abc123"))
		Expect(cfg.ZAIKey).To(Equal("zai-key"))
		Expect(cfg.Debug).To(BeTrue())
		Expect(cfg.Workers).To(Equal(8))
	})

	It("skal bruke standardverdier når miljøet er tomt", func() {
		cfg := config.LoadConfigWithEnv(func(string) string { return "" })

		Expect(cfg.ZAIURL).To(Equal(config.DefaultZAIURL))
		Expect(cfg.ZAIModel).To(Equal(config.DefaultZAIModel))
		Expect(cfg.Addr).To(Equal(":8000"))
		Expect(cfg.Workers).To(Equal(4))
		Expect(cfg.QueueSize).To(Equal(32))
		Expect(cfg.SampleFiles).To(Equal(3))
		Expect(cfg.Retry.Attempts).To(Equal(1))
	})

	It("skal tolke retry-backoff som varighet", func() {
		mockEnv := map[string]string{
			"GITSOUL_RETRIES":       "3",
			"GITSOUL_RETRY_BACKOFF": "2s",
		}
		cfg := config.LoadConfigWithEnv(func(key string) string { return mockEnv[key] })

		Expect(cfg.Retry.Attempts).To(Equal(3))
		Expect(cfg.Retry.Backoff).To(Equal(2 * time.Second))
	})
})

var _ = Describe("ValidateConfig", func() {
	valid := func() config.Config {
		return config.LoadConfigWithEnv(func(key string) string {
			switch key {
			case "GITHUB_TOKEN":
				return "t"
			case "ZAI_API_KEY":
				return "z"
			}
			return ""
		})
	}

	It("should return error if GitHub auth is missing", func() {
		cfg := valid()
		cfg.GitHubToken = ""
		err := config.ValidateConfig(cfg)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("GITHUB_TOKEN"))
	})

	It("should return error if ZAI key is missing", func() {
		cfg := valid()
		cfg.ZAIKey = ""
		err := config.ValidateConfig(cfg)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("ZAI_API_KEY"))
	})

	It("godtar GitHub App-autentisering uten PAT", func() {
		cfg := valid()
		cfg.GitHubToken = ""
		cfg.GitHubAppID = 123
		cfg.GitHubAppInstallationID = 456
		cfg.GitHubAppPrivateKey = "/tmp/key.pem"
		Expect(config.ValidateConfig(cfg)).To(Succeed())
	})

	It("krever prosjekt og datasett når BigQuery-eksport er på", func() {
		cfg := valid()
		cfg.BQExport = true
		err := config.ValidateConfig(cfg)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("BQ_PROJECT_ID"))
	})

	It("should pass if all fields are valid", func() {
		Expect(config.ValidateConfig(valid())).To(Succeed())
	})
})

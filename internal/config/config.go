package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// RetryPolicy styrer hvor mange forsøk vi gjør mot eksterne API-er.
// Attempts=1 betyr at vi bevisst ikke prøver på nytt – feil er terminale
// for den aktuelle analysen.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

type Config struct {
	// Hemmeligheter
	GitHubToken string
	ZAIKey      string

	// GitHub App-autentisering (valgfritt alternativ til PAT)
	GitHubAppID             int64
	GitHubAppInstallationID int64
	GitHubAppPrivateKey     string // filsti til PEM-nøkkel

	// Inferens
	ZAIURL   string
	ZAIModel string

	// Lagring
	PostgresDSN string

	// BigQuery-eksport (valgfritt)
	BQExport      bool
	BQProjectID   string
	BQDataset     string
	BQCredentials string

	// Kjøretid
	Addr        string
	Debug       bool
	Workers     int // antall samtidige analyse-arbeidere
	QueueSize   int // maks antall analyser i kø før vi avviser
	SampleFiles int // maks antall kodefiler som hentes til AI-kontekst
	Retry       RetryPolicy
}

const (
	DefaultZAIURL   = "https://open.bigmodel.cn/api/paas/v4/chat/completions"
	DefaultZAIModel = "glm-4-plus"
)

// LoadConfigWithEnv leser konfigurasjon fra en injisert getenv-funksjon,
// slik at testene kan kjøre uten å røre prosessmiljøet.
func LoadConfigWithEnv(getenv func(string) string) Config {
	cfg := Config{
		GitHubToken:   getenv("GITHUB_TOKEN"),
		ZAIKey:        getenv("ZAI_API_KEY"),
		ZAIURL:        getenv("ZAI_API_URL"),
		ZAIModel:      getenv("ZAI_MODEL"),
		PostgresDSN:   getenv("POSTGRES_DSN"),
		BQExport:      getenv("BQ_EXPORT") == "true",
		BQProjectID:   getenv("BQ_PROJECT_ID"),
		BQDataset:     getenv("BQ_DATASET"),
		BQCredentials: getenv("BQ_CREDENTIALS"),
		Addr:          getenv("GITSOUL_ADDR"),
		Debug:         getenv("GITSOUL_DEBUG") == "true",
		Workers:       atoiDefault(getenv("GITSOUL_WORKERS"), 4),
		QueueSize:     atoiDefault(getenv("GITSOUL_QUEUE"), 32),
		SampleFiles:   atoiDefault(getenv("GITSOUL_SAMPLE_FILES"), 3),
		Retry: RetryPolicy{
			Attempts: atoiDefault(getenv("GITSOUL_RETRIES"), 1),
			Backoff:  durationDefault(getenv("GITSOUL_RETRY_BACKOFF"), 0),
		},
		GitHubAppID:             int64(atoiDefault(getenv("GITHUB_APP_ID"), 0)),
		GitHubAppInstallationID: int64(atoiDefault(getenv("GITHUB_APP_INSTALLATION_ID"), 0)),
		GitHubAppPrivateKey:     getenv("GITHUB_APP_PRIVATE_KEY"),
	}

	if cfg.ZAIURL == "" {
		cfg.ZAIURL = DefaultZAIURL
	}
	if cfg.ZAIModel == "" {
		cfg.ZAIModel = DefaultZAIModel
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}

	return cfg
}

// ValidateConfig sjekker at nødvendige felter er satt. PAT kan sløyfes
// når GitHub App-autentisering er fullt konfigurert.
func ValidateConfig(cfg Config) error {
	if cfg.GitHubToken == "" && !cfg.HasGitHubApp() {
		return errors.New("GITHUB_TOKEN må være satt (eller GITHUB_APP_ID, GITHUB_APP_INSTALLATION_ID og GITHUB_APP_PRIVATE_KEY)")
	}
	if cfg.ZAIKey == "" {
		return errors.New("ZAI_API_KEY må være satt")
	}
	if cfg.Workers < 1 {
		return errors.New("GITSOUL_WORKERS må være et positivt heltall")
	}
	if cfg.QueueSize < 1 {
		return errors.New("GITSOUL_QUEUE må være et positivt heltall")
	}
	if cfg.Retry.Attempts < 1 {
		return errors.New("GITSOUL_RETRIES må være minst 1")
	}
	if cfg.BQExport && (cfg.BQProjectID == "" || cfg.BQDataset == "") {
		return errors.New("BQ_PROJECT_ID og BQ_DATASET må være satt når BQ_EXPORT er aktivert")
	}
	return nil
}

// LoadAndValidateConfig leser fra prosessmiljøet og validerer.
func LoadAndValidateConfig() (Config, error) {
	cfg := LoadConfigWithEnv(os.Getenv)
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) HasGitHubApp() bool {
	return c.GitHubAppID > 0 && c.GitHubAppInstallationID > 0 && c.GitHubAppPrivateKey != ""
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func durationDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for the tunable knobs. Correctness never depends on these exact
// values, only on key stability and bounded retries.
const (
	DefaultModel          = "openai/gpt-4.1-nano"
	DefaultBaseURL        = "https://aipipe.org/openrouter/v1"
	DefaultLedgerPath     = "/tmp/tds-ledger.json"
	DefaultPendingTTL     = 10 * time.Minute
	DefaultFailedCooldown = time.Minute
	DefaultGenTimeout     = 2 * time.Minute
	DefaultGenAttempts    = 3
	DefaultPort           = "8080"
)

// Config contains runtime configuration required by the service.
type Config struct {
	AdmissionSecret string

	GitHubToken    string
	GitHubUsername string

	OpenAIKey     string
	Model         string
	FallbackModel string
	BaseURL       string

	DBURL          string // optional; enables the Postgres ledger
	LedgerPath     string
	PendingTTL     time.Duration
	FailedCooldown time.Duration

	GenTimeout  time.Duration
	GenAttempts int

	EnablePages            bool
	EnableFallbackArtifact bool

	Port string
}

// Load reads required values from environment variables. A missing credential
// is a fatal configuration error, never a per-request one.
func Load() (Config, error) {
	cfg := Config{
		AdmissionSecret: strings.TrimSpace(os.Getenv("ADMISSION_SECRET")),
		GitHubToken:     strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
		GitHubUsername:  strings.TrimSpace(os.Getenv("GITHUB_USERNAME")),
		OpenAIKey:       strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		Model:           strings.TrimSpace(os.Getenv("OPENROUTER_MODEL")),
		FallbackModel:   strings.TrimSpace(os.Getenv("OPENROUTER_FALLBACK_MODEL")),
		BaseURL:         strings.TrimSpace(os.Getenv("OPENROUTER_BASE_URL")),
		DBURL:           strings.TrimSpace(os.Getenv("DB_URL")),
		LedgerPath:      strings.TrimSpace(os.Getenv("LEDGER_PATH")),
		Port:            strings.TrimSpace(os.Getenv("PORT")),
	}

	if cfg.AdmissionSecret == "" {
		return Config{}, errors.New("ADMISSION_SECRET required")
	}
	if cfg.GitHubToken == "" {
		return Config{}, errors.New("GITHUB_TOKEN required")
	}
	if cfg.GitHubUsername == "" {
		return Config{}, errors.New("GITHUB_USERNAME required")
	}
	if cfg.OpenAIKey == "" {
		return Config{}, errors.New("OPENAI_API_KEY required")
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = DefaultLedgerPath
	}
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}

	var err error
	if cfg.PendingTTL, err = duration("LEDGER_PENDING_TTL", DefaultPendingTTL); err != nil {
		return Config{}, err
	}
	if cfg.FailedCooldown, err = duration("LEDGER_FAILED_COOLDOWN", DefaultFailedCooldown); err != nil {
		return Config{}, err
	}
	if cfg.GenTimeout, err = duration("GEN_TIMEOUT", DefaultGenTimeout); err != nil {
		return Config{}, err
	}
	if cfg.GenAttempts, err = count("GEN_MAX_ATTEMPTS", DefaultGenAttempts); err != nil {
		return Config{}, err
	}
	if cfg.EnablePages, err = flag("ENABLE_PAGES", true); err != nil {
		return Config{}, err
	}
	if cfg.EnableFallbackArtifact, err = flag("ENABLE_FALLBACK_ARTIFACT", true); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func duration(name string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration like 10m", name)
	}
	return d, nil
}

func count(name string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

func flag(name string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false", name)
	}
	return b, nil
}

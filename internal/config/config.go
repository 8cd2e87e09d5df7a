package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultModel      = "gpt-4o-mini"
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 2
	maxRetriesCeiling = 5

	minKeyLength = 20
	keyPrefix    = "sk-"

	EnvDevelopment = "development"
	EnvProduction  = "production"

	HistoryDynamoDB = "dynamodb"
	HistoryPostgres = "postgres"
	HistoryNone     = "none"
)

var placeholderKeys = map[string]struct{}{
	"your-openai-api-key-here": {},
	"your_openai_api_key":      {},
}

// ProviderConfig is the process-wide completion provider configuration. It is
// built once at startup and passed by value; nothing mutates it afterwards.
type ProviderConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	Environment string
	Debug       bool
}

// Valid reports whether the API key looks usable: set, not a template
// placeholder, long enough and carrying the expected prefix.
func (c ProviderConfig) Valid() bool {
	key := c.APIKey
	if key == "" || key != strings.TrimSpace(key) {
		return false
	}
	if _, ok := placeholderKeys[key]; ok {
		return false
	}
	return len(key) >= minKeyLength && strings.HasPrefix(key, keyPrefix)
}

// Status is a redacted view of the provider configuration for diagnostics.
type Status struct {
	HasAPIKey   bool   `json:"hasApiKey"`
	IsValid     bool   `json:"isValid"`
	KeyPrefix   string `json:"keyPrefix"`
	KeyLength   int    `json:"keyLength"`
	Environment string `json:"environment"`
}

func (c ProviderConfig) Status() Status {
	prefix := "NOT_SET"
	if c.APIKey != "" {
		n := 7
		if len(c.APIKey) < n {
			n = len(c.APIKey)
		}
		prefix = c.APIKey[:n] + "..."
	}
	return Status{
		HasAPIKey:   c.APIKey != "",
		IsValid:     c.Valid(),
		KeyPrefix:   prefix,
		KeyLength:   len(c.APIKey),
		Environment: c.Environment,
	}
}

// BreakerConfig controls the optional circuit breaker around provider calls.
type BreakerConfig struct {
	Enabled     bool
	Failures    uint32
	OpenTimeout time.Duration
}

// HistoryConfig selects and addresses the chat history backend.
type HistoryConfig struct {
	Backend     string
	Table       string
	DatabaseURL string
}

// Config is everything cmd/main needs to assemble the process.
type Config struct {
	Provider    ProviderConfig
	APIKeyParam string
	Breaker     BreakerConfig
	History     HistoryConfig
}

// Load reads the environment, optionally from a .env file if present.
func Load() (Config, error) {
	// A missing .env file is the normal case outside local development.
	_ = godotenv.Load()

	env := strings.ToLower(getEnv("APP_ENV", EnvProduction))
	cfg := Config{
		Provider: ProviderConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			Model:       getEnv("OPENAI_MODEL", DefaultModel),
			BaseURL:     getEnv("OPENAI_BASE_URL", DefaultBaseURL),
			Timeout:     time.Duration(getEnvInt("OPENAI_TIMEOUT_MS", int(DefaultTimeout/time.Millisecond))) * time.Millisecond,
			MaxRetries:  clampRetries(getEnvInt("OPENAI_MAX_RETRIES", DefaultMaxRetries)),
			Environment: env,
			Debug:       env == EnvDevelopment || getEnvBool("APP_DEBUG", false),
		},
		APIKeyParam: strings.TrimSpace(os.Getenv("OPENAI_API_KEY_PARAM")),
		Breaker: BreakerConfig{
			Enabled:     getEnvBool("CIRCUIT_BREAKER_ENABLED", false),
			Failures:    uint32(getEnvInt("CIRCUIT_BREAKER_FAILURES", 5)),
			OpenTimeout: time.Duration(getEnvInt("CIRCUIT_BREAKER_OPEN_SECONDS", 60)) * time.Second,
		},
		History: HistoryConfig{
			Backend:     strings.ToLower(getEnv("HISTORY_BACKEND", HistoryNone)),
			Table:       os.Getenv("HISTORY_TABLE"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
	}
	if cfg.Provider.Timeout <= 0 {
		cfg.Provider.Timeout = DefaultTimeout
	}

	switch cfg.History.Backend {
	case HistoryNone:
	case HistoryDynamoDB:
		if strings.TrimSpace(cfg.History.Table) == "" {
			return Config{}, errors.New("config: HISTORY_TABLE is required for the dynamodb history backend")
		}
	case HistoryPostgres:
		if strings.TrimSpace(cfg.History.DatabaseURL) == "" {
			return Config{}, errors.New("config: DATABASE_URL is required for the postgres history backend")
		}
	default:
		return Config{}, fmt.Errorf("config: unknown HISTORY_BACKEND %q", cfg.History.Backend)
	}
	return cfg, nil
}

// TokenGetter resolves a secret token stored under a parameter name.
type TokenGetter interface {
	GetToken(ctx context.Context, name string) (string, error)
}

// ResolveAPIKey returns a copy of p with the API key read from the parameter
// store. An explicitly configured key always wins.
func ResolveAPIKey(ctx context.Context, p ProviderConfig, getter TokenGetter, param string) (ProviderConfig, error) {
	if p.APIKey != "" || strings.TrimSpace(param) == "" {
		return p, nil
	}
	if getter == nil {
		return p, errors.New("config: token getter must not be nil")
	}
	key, err := getter.GetToken(ctx, param)
	if err != nil {
		return p, fmt.Errorf("config: resolve api key: %w", err)
	}
	p.APIKey = key
	return p, nil
}

func clampRetries(n int) int {
	if n < 0 {
		return 0
	}
	if n > maxRetriesCeiling {
		return maxRetriesCeiling
	}
	return n
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

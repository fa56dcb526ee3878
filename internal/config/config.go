// Package config loads runtime settings: built-in defaults, then an optional
// YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"

	// AppTypeServer is a confidential Fitbit client; it authenticates with a secret.
	AppTypeServer = "server"

	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

// Config holds the application configuration.
type Config struct {
	Environment string        `yaml:"environment"`
	Addr        string        `yaml:"addr"`
	FrontendURL string        `yaml:"frontend_url"`
	Fitbit      FitbitConfig  `yaml:"fitbit"`
	Session     SessionConfig `yaml:"session"`
	Store       StoreConfig   `yaml:"store"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Logging     LoggingConfig `yaml:"logging"`
}

// FitbitConfig describes the Fitbit OAuth client and API endpoints.
type FitbitConfig struct {
	ClientID          string `yaml:"client_id"`
	AppType           string `yaml:"app_type"` // server, client or personal
	ClientSecretParam string `yaml:"client_secret_param"`
	RedirectURI       string `yaml:"redirect_uri"`
	Scopes            string `yaml:"scopes"`
	AuthURL           string `yaml:"auth_url"`
	TokenURL          string `yaml:"token_url"`
	RevokeURL         string `yaml:"revoke_url"`
	APIBaseURL        string `yaml:"api_base_url"`
}

// SessionConfig holds the session cookie settings.
type SessionConfig struct {
	CookieName         string        `yaml:"cookie_name"`
	MaxAge             time.Duration `yaml:"max_age"`
	SecretParam        string        `yaml:"secret_param"`
	OriginVerifyParam  string        `yaml:"origin_verify_param"`
	PendingTTL         time.Duration `yaml:"pending_ttl"`
	TokenTTL           time.Duration `yaml:"token_ttl"`
	RefreshLockTimeout time.Duration `yaml:"refresh_lock_timeout"`
}

// StoreConfig selects and configures the session-keyed storage backend.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	TokensTable string `yaml:"tokens_table"`
	LocksTable  string `yaml:"locks_table"`
	RedisURL    string `yaml:"redis_url"`
	KMSKeyID    string `yaml:"kms_key_id"`
}

// MetricsConfig controls the aggregation window.
type MetricsConfig struct {
	BatchDays    int `yaml:"batch_days"`
	WindowMonths int `yaml:"window_months"`

	// MaxConcurrency caps the family requests in flight per batch; 0 means
	// all of them at once.
	MaxConcurrency int `yaml:"max_concurrency"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the development defaults.
func Default() *Config {
	return &Config{
		Environment: EnvironmentDevelopment,
		Addr:        ":8080",
		FrontendURL: "http://localhost:3000",
		Fitbit: FitbitConfig{
			AppType:           "client",
			ClientSecretParam: "/coach/fitbit-client-secret",
			RedirectURI:       "http://localhost:3000/auth/fitbit/callback",
			Scopes:            "activity heartrate sleep respiratory_rate cardio_fitness profile",
			AuthURL:           "https://www.fitbit.com/oauth2/authorize",
			TokenURL:          "https://api.fitbit.com/oauth2/token",
			RevokeURL:         "https://api.fitbit.com/oauth2/revoke",
			APIBaseURL:        "https://api.fitbit.com",
		},
		Session: SessionConfig{
			CookieName:         "fitbit_sid",
			MaxAge:             30 * 24 * time.Hour,
			SecretParam:        "/coach/session-secret",
			OriginVerifyParam:  "/coach/api-gateway-secret",
			PendingTTL:         10 * time.Minute,
			TokenTTL:           90 * 24 * time.Hour,
			RefreshLockTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Backend:     BackendMemory,
			TokensTable: "FitbitSessions",
			LocksTable:  "FitbitRefreshLocks",
			RedisURL:    "redis://localhost:6379/0",
			KMSKeyID:    "alias/coach-token-key",
		},
		Metrics: MetricsConfig{
			BatchDays:    30,
			WindowMonths: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load applies defaults, the YAML file at path (skipped when path is empty
// or the file does not exist) and finally environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Environment = strings.ToLower(strings.TrimSpace(getEnv("ENVIRONMENT", c.Environment)))
	if os.Getenv("DEV_MODE") == "true" {
		c.Environment = EnvironmentDevelopment
	}
	c.Addr = getEnv("ADDR", c.Addr)
	c.FrontendURL = getEnv("FRONTEND_URL", c.FrontendURL)

	c.Fitbit.ClientID = getEnv("FITBIT_CLIENT_ID", c.Fitbit.ClientID)
	c.Fitbit.AppType = getEnv("FITBIT_APP_TYPE", c.Fitbit.AppType)
	c.Fitbit.ClientSecretParam = getEnv("FITBIT_CLIENT_SECRET_PARAM", c.Fitbit.ClientSecretParam)
	c.Fitbit.RedirectURI = getEnv("FITBIT_REDIRECT_URI", c.Fitbit.RedirectURI)
	c.Fitbit.Scopes = getEnv("FITBIT_SCOPES", c.Fitbit.Scopes)
	c.Fitbit.AuthURL = getEnv("FITBIT_AUTH_URL", c.Fitbit.AuthURL)
	c.Fitbit.TokenURL = getEnv("FITBIT_TOKEN_URL", c.Fitbit.TokenURL)
	c.Fitbit.RevokeURL = getEnv("FITBIT_REVOKE_URL", c.Fitbit.RevokeURL)
	c.Fitbit.APIBaseURL = getEnv("FITBIT_API_BASE_URL", c.Fitbit.APIBaseURL)

	c.Session.CookieName = getEnv("SESSION_COOKIE_NAME", c.Session.CookieName)
	c.Session.SecretParam = getEnv("SESSION_SECRET_PARAM", c.Session.SecretParam)
	c.Session.OriginVerifyParam = getEnv("API_GATEWAY_SECRET_PARAM", c.Session.OriginVerifyParam)
	c.Session.MaxAge = getEnvDuration("SESSION_MAX_AGE", c.Session.MaxAge)
	c.Session.PendingTTL = getEnvDuration("PKCE_PENDING_TTL", c.Session.PendingTTL)
	c.Session.TokenTTL = getEnvDuration("TOKEN_TTL", c.Session.TokenTTL)
	c.Session.RefreshLockTimeout = getEnvDuration("REFRESH_LOCK_TIMEOUT", c.Session.RefreshLockTimeout)

	c.Store.Backend = strings.ToLower(getEnv("STORE_BACKEND", c.Store.Backend))
	c.Store.TokensTable = getEnv("FITBIT_SESSIONS_TABLE", c.Store.TokensTable)
	c.Store.LocksTable = getEnv("REFRESH_LOCKS_TABLE", c.Store.LocksTable)
	c.Store.RedisURL = getEnv("REDIS_URL", c.Store.RedisURL)
	c.Store.KMSKeyID = getEnv("KMS_KEY_ID", c.Store.KMSKeyID)

	c.Metrics.BatchDays = getEnvInt("METRICS_BATCH_DAYS", c.Metrics.BatchDays)
	c.Metrics.WindowMonths = getEnvInt("METRICS_WINDOW_MONTHS", c.Metrics.WindowMonths)
	c.Metrics.MaxConcurrency = getEnvInt("METRICS_MAX_CONCURRENCY", c.Metrics.MaxConcurrency)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

// Validate reports settings that cannot work at all.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendDynamoDB, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Metrics.BatchDays <= 0 {
		return fmt.Errorf("metrics batch_days must be positive, got %d", c.Metrics.BatchDays)
	}
	if c.Metrics.WindowMonths <= 0 {
		return fmt.Errorf("metrics window_months must be positive, got %d", c.Metrics.WindowMonths)
	}
	if c.Metrics.MaxConcurrency < 0 {
		return fmt.Errorf("metrics max_concurrency must not be negative, got %d", c.Metrics.MaxConcurrency)
	}
	return nil
}

// IsDevelopment reports whether the development environment is active.
func (c *Config) IsDevelopment() bool {
	return c.Environment != EnvironmentProduction
}

// Confidential reports whether the Fitbit client authenticates with a secret.
func (f FitbitConfig) Confidential() bool {
	return f.AppType == AppTypeServer
}

// getEnv gets the environment variable with a default value
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

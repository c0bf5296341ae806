package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Remote ledger API (source of truth for records and categories)
	LedgerAPIURL string
	LedgerAPIKey string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Local budget store
	BudgetDBPath string

	// Observability
	OTLPEndpoint string

	// Auth / sessions
	JWTSecret         string
	JWTAccessTTL      time.Duration
	SessionTTL        time.Duration
	HouseholdUser     string
	HouseholdPassHash string // bcrypt hash of the household password
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		LedgerAPIURL: getEnv("LEDGER_API_URL", "http://localhost:8081"),
		LedgerAPIKey: getEnv("LEDGER_API_KEY", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 20),

		BudgetDBPath: getEnv("BUDGET_DB_PATH", "budgets.db"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		JWTSecret:         getEnv("JWT_SECRET", "tracker-default-dev-secret-change-me"),
		JWTAccessTTL:      getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
		SessionTTL:        getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		HouseholdUser:     getEnv("HOUSEHOLD_USER", "family"),
		HouseholdPassHash: getEnv("HOUSEHOLD_PASSWORD_HASH", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

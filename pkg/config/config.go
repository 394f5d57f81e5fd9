package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Environment string
	ServerPort  int
	LogLevel    string

	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabaseSSLMode  string

	RedisURL string

	JWTSecret       string
	StripeSecretKey string
	Currency        string

	// LateFeeCents is the flat fee stamped on overdue rent, in minor units.
	LateFeeCents        int64
	LateFeeSweepMinutes int

	ReconcileIntervalMinutes int
	// PendingReconcileAfterMinutes is how old an unresolved PENDING payment
	// must be before the reconcile sweep picks it up.
	PendingReconcileAfterMinutes int

	RateLimitPerMinute int
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DATABASE_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_PORT: %w", err)
	}

	lateFee, err := strconv.ParseInt(getEnv("LATE_FEE_CENTS", "5000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LATE_FEE_CENTS: %w", err)
	}

	lateFeeSweep, err := strconv.Atoi(getEnv("LATE_FEE_SWEEP_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid LATE_FEE_SWEEP_MINUTES: %w", err)
	}

	reconcileInterval, err := strconv.Atoi(getEnv("RECONCILE_INTERVAL_MINUTES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_INTERVAL_MINUTES: %w", err)
	}

	pendingAfter, err := strconv.Atoi(getEnv("PENDING_RECONCILE_AFTER_MINUTES", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid PENDING_RECONCILE_AFTER_MINUTES: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabaseHost:     getEnv("DATABASE_HOST", "localhost"),
		DatabasePort:     dbPort,
		DatabaseUser:     getEnv("DATABASE_USER", "propertylease"),
		DatabasePassword: getEnv("DATABASE_PASSWORD", "dev"),
		DatabaseName:     getEnv("DATABASE_NAME", "propertylease"),
		DatabaseSSLMode:  getEnv("DATABASE_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		Currency:        getEnv("CURRENCY", "usd"),

		LateFeeCents:        lateFee,
		LateFeeSweepMinutes: lateFeeSweep,

		ReconcileIntervalMinutes:     reconcileInterval,
		PendingReconcileAfterMinutes: pendingAfter,

		RateLimitPerMinute: rateLimit,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

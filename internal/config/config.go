package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/domain"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL            string
	HTTPPort               string
	AuditWorkerInterval    time.Duration
	AuditBatchSize         int
	SupplierMarginFloorUSD decimal.Decimal
	RoundingPlaces         int32
	LogLevel               string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it.
func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		DatabaseURL:            envOrDefaultWarn("DATABASE_URL", ""),
		HTTPPort:               envOrDefault("HTTP_PORT", "8080"),
		AuditWorkerInterval:    envOrDefaultDuration("AUDIT_WORKER_INTERVAL", 24*time.Hour),
		AuditBatchSize:         envOrDefaultInt("AUDIT_BATCH_SIZE", 500),
		SupplierMarginFloorUSD: envOrDefaultDecimal("SUPPLIER_MARGIN_FLOOR_USD", decimal.NewFromInt(40)),
		RoundingPlaces:         int32(envOrDefaultInt("ROUNDING_PLACES", domain.DefaultPresentationPlaces)),
		LogLevel:               envOrDefault("LOG_LEVEL", "info"),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			slog.Warn("invalid decimal env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

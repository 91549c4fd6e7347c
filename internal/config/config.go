// Package config loads the Harrier configuration from the environment.
//
// Configuration starts from a profile (the development defaults or the
// production stack) and individual HARRIER_* variables override single
// settings on top. A .env file in the working directory is honored for
// local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Load reads configuration from environment variables. It loads a .env
// file if present (for local development).
func Load() (*domain.Config, error) {
	// Ignore the error: a missing .env file is the normal case.
	_ = godotenv.Load()

	cfg := domain.DefaultConfig()
	if getEnv("HARRIER_PROFILE", "") == "production" {
		cfg = domain.ProductionConfig()
	}

	// Server
	cfg.Server.Host = getEnv("HARRIER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("HARRIER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvInt("HARRIER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvInt("HARRIER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)

	// Engine
	cfg.Engine.DetectorTimeout = getEnvMillis("HARRIER_DETECTOR_TIMEOUT_MS", cfg.Engine.DetectorTimeout)
	cfg.Engine.AssessTimeout = getEnvMillis("HARRIER_ASSESS_TIMEOUT_MS", cfg.Engine.AssessTimeout)
	cfg.Engine.MaxConcurrent = getEnvInt("HARRIER_MAX_CONCURRENT", cfg.Engine.MaxConcurrent)

	// KV store
	cfg.Store.Type = getEnv("HARRIER_STORE", cfg.Store.Type)
	cfg.Store.MemoryMaxKeys = getEnvInt("HARRIER_MEMORY_MAX_KEYS", cfg.Store.MemoryMaxKeys)
	cfg.Store.RedisAddr = getEnv("HARRIER_REDIS_ADDR", cfg.Store.RedisAddr)
	cfg.Store.RedisPassword = getEnv("HARRIER_REDIS_PASSWORD", cfg.Store.RedisPassword)
	cfg.Store.RedisDB = getEnvInt("HARRIER_REDIS_DB", cfg.Store.RedisDB)

	// Repository
	cfg.Repository.Driver = getEnv("HARRIER_DB_DRIVER", cfg.Repository.Driver)
	cfg.Repository.SQLitePath = getEnv("HARRIER_SQLITE_PATH", cfg.Repository.SQLitePath)
	cfg.Repository.PostgresHost = getEnv("HARRIER_POSTGRES_HOST", cfg.Repository.PostgresHost)
	cfg.Repository.PostgresPort = getEnvInt("HARRIER_POSTGRES_PORT", cfg.Repository.PostgresPort)
	cfg.Repository.PostgresUser = getEnv("HARRIER_POSTGRES_USER", cfg.Repository.PostgresUser)
	cfg.Repository.PostgresPassword = getEnv("HARRIER_POSTGRES_PASSWORD", cfg.Repository.PostgresPassword)
	cfg.Repository.PostgresDB = getEnv("HARRIER_POSTGRES_DB", cfg.Repository.PostgresDB)
	cfg.Repository.PostgresSSLMode = getEnv("HARRIER_POSTGRES_SSLMODE", cfg.Repository.PostgresSSLMode)

	// Event bus
	cfg.EventBus.Type = getEnv("HARRIER_BUS", cfg.EventBus.Type)
	cfg.EventBus.ChannelBufferSize = getEnvInt("HARRIER_BUS_BUFFER", cfg.EventBus.ChannelBufferSize)
	cfg.EventBus.NATSUrl = getEnv("HARRIER_NATS_URL", cfg.EventBus.NATSUrl)
	cfg.EventBus.NATSToken = getEnv("HARRIER_NATS_TOKEN", cfg.EventBus.NATSToken)
	cfg.EventBus.NATSMaxReconnects = getEnvInt("HARRIER_NATS_MAX_RECONNECTS", cfg.EventBus.NATSMaxReconnects)
	cfg.EventBus.NATSReconnectWait = getEnvInt("HARRIER_NATS_RECONNECT_WAIT", cfg.EventBus.NATSReconnectWait)

	// GeoIP
	cfg.GeoIPPath = getEnv("HARRIER_GEOIP_PATH", cfg.GeoIPPath)

	// Observability
	cfg.Logging.Level = getEnv("HARRIER_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("HARRIER_LOG_FORMAT", cfg.Logging.Format)
	cfg.Tracing.ServiceName = getEnv("HARRIER_SERVICE_NAME", cfg.Tracing.ServiceName)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *domain.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Server.Port)
	}

	switch cfg.Store.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported store type: %s", cfg.Store.Type)
	}

	switch cfg.Repository.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported repository driver: %s", cfg.Repository.Driver)
	}

	switch cfg.EventBus.Type {
	case "channel", "nats":
	default:
		return fmt.Errorf("unsupported bus type: %s", cfg.EventBus.Type)
	}

	if cfg.Engine.DetectorTimeout >= cfg.Engine.AssessTimeout {
		return fmt.Errorf("detector timeout %s must be below assess timeout %s",
			cfg.Engine.DetectorTimeout, cfg.Engine.AssessTimeout)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

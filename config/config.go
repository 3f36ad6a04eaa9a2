package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL    string
	JWTSecretKey   string
	ServerPort     int
	LogLevel       slog.Level
	StorageDriver  string
	AllowedOrigins []string
	StatsInterval  time.Duration
	R2             R2Config
}

// R2Config - параметры архива сеток. Пустой AccessKeyID выключает архив целиком.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
	Endpoint        string
}

func (c R2Config) Enabled() bool {
	return c.AccessKeyID != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
// Ошибки валидации собираются все сразу, а не по одной.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var result *multierror.Error

	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecretKey:  os.Getenv("JWT_SECRET_KEY"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		R2: R2Config{
			AccountID:       os.Getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      os.Getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
			Endpoint:        os.Getenv("R2_ENDPOINT"),
		},
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DatabaseURL == "" {
			result = multierror.Append(result, errors.New("DATABASE_URL environment variable is not set"))
		}
	case StorageDriverMemory:
	default:
		result = multierror.Append(result, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q",
			StorageDriverPostgres, StorageDriverMemory, cfg.StorageDriver))
	}

	if cfg.JWTSecretKey == "" {
		result = multierror.Append(result, errors.New("JWT_SECRET_KEY environment variable is not set"))
	}

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	switch {
	case err != nil:
		result = multierror.Append(result, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err))
	case port <= 0 || port > 65535:
		result = multierror.Append(result, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port))
	}
	cfg.ServerPort = port

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}

	interval, err := time.ParseDuration(getEnv("STATS_BROADCAST_INTERVAL", "30s"))
	switch {
	case err != nil:
		result = multierror.Append(result, fmt.Errorf("invalid STATS_BROADCAST_INTERVAL: %w", err))
	case interval < 0:
		result = multierror.Append(result, fmt.Errorf("STATS_BROADCAST_INTERVAL must not be negative, got %s", interval))
	}
	cfg.StatsInterval = interval

	cfg.AllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	if cfg.R2.Enabled() {
		if cfg.R2.SecretAccessKey == "" || cfg.R2.BucketName == "" {
			result = multierror.Append(result, errors.New("R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME are required when R2_ACCESS_KEY_ID is set"))
		}
		if cfg.R2.AccountID == "" && cfg.R2.Endpoint == "" {
			result = multierror.Append(result, errors.New("R2_ACCOUNT_ID or R2_ENDPOINT is required when R2_ACCESS_KEY_ID is set"))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
	SourceCSV      = "csv"
)

type Config struct {
	AppEnv              string
	AppName             string
	APIPrefix           string
	AppPort             string
	DataSource          string
	DatabaseURL         string
	SQLitePath          string
	CSVPath             string
	DefaultSubjectID    string
	DefaultLookbackDays int
	Timezone            string
	PolicyFile          string
	StoreTimeout        time.Duration
	JWTSecret           string
	JWTAlgorithm        string
	JWTAudience         string
	JWTIssuer           string
	CORSAllowOrigins    []string
	KafkaBrokers        []string
	AlertTopic          string
	LogLevel            string
}

func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		AppEnv:              getEnv("APP_ENV", "local"),
		AppName:             getEnv("APP_NAME", "Beebi Analytics API"),
		APIPrefix:           getEnv("API_PREFIX", "/api/v1"),
		AppPort:             getEnv("APP_PORT", "8000"),
		DataSource:          strings.ToLower(getEnv("DATA_SOURCE", SourceSQLite)),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		SQLitePath:          getEnv("SQLITE_PATH", "data/beebi.sqlite"),
		CSVPath:             getEnv("CSV_PATH", "data/activity.csv"),
		DefaultSubjectID:    getEnv("DEFAULT_SUBJECT_ID", "10"),
		DefaultLookbackDays: getEnvInt("DEFAULT_LOOKBACK_DAYS", 365),
		Timezone:            getEnv("ANALYTICS_TIMEZONE", "UTC"),
		PolicyFile:          getEnv("ANALYTICS_POLICY_FILE", ""),
		StoreTimeout:        getEnvDuration("STORE_TIMEOUT", 10*time.Second),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTAlgorithm:        getEnv("JWT_ALGORITHM", "HS256"),
		JWTAudience:         getEnv("JWT_AUDIENCE", ""),
		JWTIssuer:           getEnv("JWT_ISSUER", ""),
		CORSAllowOrigins: getEnvCSV(
			"CORS_ALLOW_ORIGINS",
			[]string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"},
		),
		KafkaBrokers: getEnvCSV("KAFKA_BROKERS", nil),
		AlertTopic:   getEnv("ALERT_TOPIC", "beebi.diaper.alerts"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

func (c Config) Validate() error {
	switch c.DataSource {
	case SourcePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is required when DATA_SOURCE=postgres")
		}
	case SourceSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("SQLITE_PATH is required when DATA_SOURCE=sqlite")
		}
	case SourceCSV:
		if strings.TrimSpace(c.CSVPath) == "" {
			return errors.New("CSV_PATH is required when DATA_SOURCE=csv")
		}
	default:
		return fmt.Errorf("DATA_SOURCE must be one of postgres, sqlite, csv; got %q", c.DataSource)
	}
	if c.DefaultLookbackDays < 0 {
		return errors.New("DEFAULT_LOOKBACK_DAYS must not be negative")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("STORE_TIMEOUT must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("ANALYTICS_TIMEZONE is invalid: %w", err)
	}
	secret := strings.TrimSpace(c.JWTSecret)
	if secret != "" {
		if secret == "change-me-in-production" {
			return errors.New("JWT_SECRET must not use insecure default value")
		}
		if len(secret) < 16 {
			return errors.New("JWT_SECRET is too short; use at least 16 characters")
		}
		if strings.TrimSpace(c.JWTAlgorithm) == "" {
			return errors.New("JWT_ALGORITHM is required")
		}
	}
	if len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.AlertTopic) == "" {
		return errors.New("ALERT_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// AuthEnabled reports whether bearer tokens are verified on API routes.
func (c Config) AuthEnabled() bool {
	return strings.TrimSpace(c.JWTSecret) != ""
}

// Location resolves ANALYTICS_TIMEZONE.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the JSON logger used by the binaries.
func (c Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: c.SlogLevel()}))
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, item := range parts {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

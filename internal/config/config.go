package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Meta backends accepted by META_BACKEND.
const (
	MetaBackendPostgres = "postgres"
	MetaBackendRedis    = "redis"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv      string `validate:"required"`
	OpsPort     string
	DatabaseURL string `validate:"required"`
	RedisURL    string `validate:"required"`

	LogFormat        string
	LogLevel         string
	MetricsNamespace string `validate:"required"`
	TracingEnabled   bool
	OTLPEndpoint     string
	TracingSampling  float64 `validate:"gte=0,lte=1"`

	SessionTTL  time.Duration `validate:"gt=0"`
	MetaBackend string        `validate:"oneof=postgres redis"`
	// InitialPercent is the minimum deposit percentage; zero disables deposit schedules.
	InitialPercent         decimal.Decimal
	CartDefaultToSubscribe bool
	SupportedProductTypes  []string `validate:"min=1"`

	WorkerConcurrency int           `validate:"gt=0"`
	LockTTL           time.Duration `validate:"gt=0"`
	LockRetryBackoff  time.Duration `validate:"gt=0"`
	JobMaxRetry       int           `validate:"gte=0"`
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:                 valueOrDefault(k.String("APP_ENV"), "development"),
		OpsPort:                valueOrDefault(k.String("OPS_PORT"), "9090"),
		DatabaseURL:            strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:               strings.TrimSpace(k.String("REDIS_URL")),
		LogFormat:              valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:               valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace:       valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "subscribe"),
		TracingEnabled:         parseBool(k.String("OBS_ENABLE_TRACING")),
		OTLPEndpoint:           strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampling:        parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
		SessionTTL:             parseDuration(k.String("SESSION_TTL"), "48h"),
		MetaBackend:            strings.ToLower(valueOrDefault(k.String("META_BACKEND"), MetaBackendPostgres)),
		CartDefaultToSubscribe: parseBool(k.String("CART_SUBSCRIPTION_DEFAULT")),
		SupportedProductTypes:  splitAndTrim(valueOrDefault(k.String("SUPPORTED_PRODUCT_TYPES"), "simple,variable")),
		WorkerConcurrency:      parseInt(k.String("WORKER_CONCURRENCY"), 10),
		LockTTL:                parseDuration(k.String("LOCK_TTL"), "30s"),
		LockRetryBackoff:       parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
		JobMaxRetry:            parseInt(k.String("JOB_MAX_RETRY"), 5),
	}

	pct, err := parsePercent(k.String("INSTALLMENT_INITIAL_PERCENT"))
	if err != nil {
		return nil, err
	}
	cfg.InitialPercent = pct

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// OpsAddr returns the address the ops server should bind to.
func (c *Config) OpsAddr() string {
	port := strings.TrimSpace(c.OpsPort)
	if port == "" {
		port = "9090"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parsePercent(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	pct, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("INSTALLMENT_INITIAL_PERCENT: %w", err)
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("INSTALLMENT_INITIAL_PERCENT must be within 0..100, got %s", pct)
	}
	return pct, nil
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}

package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/text/language"
)

const testModeEnv = "OPTICIEN_TEST_MODE"

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv             string        `envconfig:"APP_ENV" default:"development"`
	AppAddr            string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout     time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout    time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout  time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppShutdownTimeout time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"10s"`
	AppLocale          string        `envconfig:"APP_LOCALE" default:"fr-MA"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	PGDSN            string        `envconfig:"PG_DSN" required:"true"`
	DBMaxConns       int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	DBLockTimeout    time.Duration `envconfig:"DB_LOCK_TIMEOUT" default:"5s"`
	DBMigrateOnStart bool          `envconfig:"DB_MIGRATE_ON_START" default:"true"`

	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	MetricsPath        string `envconfig:"METRICS_PATH" default:"/metrics"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.PGDSN) == "" {
		return errors.New("PG_DSN must be provided")
	}
	if c.DBLockTimeout <= 0 {
		return errors.New("DB_LOCK_TIMEOUT must be positive")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		return fmt.Errorf("METRICS_PATH %q must start with /", c.MetricsPath)
	}
	if _, err := language.Parse(c.AppLocale); err != nil {
		return fmt.Errorf("APP_LOCALE %q: %w", c.AppLocale, err)
	}
	return nil
}

// Locale returns the tag used to display amounts.
func (c *Config) Locale() language.Tag {
	if c == nil {
		return language.French
	}
	tag, err := language.Parse(c.AppLocale)
	if err != nil {
		return language.French
	}
	return tag
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// InTestMode reports whether the binary should exit before opening any
// connection, as set by OPTICIEN_TEST_MODE=1.
func InTestMode() bool {
	return os.Getenv(testModeEnv) == "1"
}

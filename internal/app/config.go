package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/weighcheck/weighcheck/internal/platform/cache"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"45s"`
	AppTimezone       string        `envconfig:"APP_TIMEZONE" default:"Local"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RedisAddr      string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	StoreNamespace string `envconfig:"STORE_NAMESPACE" default:"weighcheck"`

	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"4"`

	GCSBucket          string `envconfig:"GCS_BUCKET"`
	GCSPrefix          string `envconfig:"GCS_PREFIX" default:"backups"`
	GCSCredentialsJSON string `envconfig:"GCS_CREDENTIALS_JSON"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3UseSSL    bool   `envconfig:"S3_USE_SSL" default:"true"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Prefix    string `envconfig:"S3_PREFIX" default:"backups"`

	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	LabelScanModel  string `envconfig:"LABELSCAN_MODEL" default:"claude-sonnet-4-5"`

	CloudSyncOnSave     bool     `envconfig:"CLOUD_SYNC_ON_SAVE" default:"false"`
	CloudSyncTransports []string `envconfig:"CLOUD_SYNC_TRANSPORTS"`
	CloudSyncCron       string   `envconfig:"CLOUD_SYNC_CRON"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"2"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	DraftMax     int           `envconfig:"DRAFT_MAX" default:"256"`
	DraftIdleTTL time.Duration `envconfig:"DRAFT_IDLE_TTL" default:"12h"`
}

// LoadConfig reads configuration from environment variables. A dotenv file
// (APP_ENV_FILE, default .env) is loaded first when present; variables already
// set in the environment win.
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("APP_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("app: load %s: %w", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.StoreNamespace) == "" {
		return nil, errors.New("store namespace must be provided")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if cfg.CloudSyncOnSave && !cfg.HasCloudTransport() {
		return nil, errors.New("cloud sync on save requires PG_DSN, GCS_BUCKET or S3_BUCKET")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Location resolves APP_TIMEZONE for exports and tickets.
func (c *Config) Location() (*time.Location, error) {
	if c == nil || c.AppTimezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return nil, fmt.Errorf("app: timezone %q: %w", c.AppTimezone, err)
	}
	return loc, nil
}

// RedisOptions returns the connection settings shared by the store and the job queue.
func (c *Config) RedisOptions() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// HasCloudTransport reports whether any backup transport is configured.
func (c *Config) HasCloudTransport() bool {
	return c != nil && (c.PGDSN != "" || c.GCSBucket != "" || (c.S3Endpoint != "" && c.S3Bucket != ""))
}

// LabelScanEnabled reports whether an AI key was provided.
func (c *Config) LabelScanEnabled() bool {
	return c != nil && c.AnthropicAPIKey != ""
}

package infra

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"8080"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBMaxConns  int    `env:"DB_MAX_CONNS" envDefault:"10"`

	ReplicateAPIToken      string `env:"REPLICATE_API_TOKEN"`
	ReplicateBaseURL       string `env:"REPLICATE_BASE_URL" envDefault:"https://api.replicate.com/v1"`
	ReplicateWebhookSecret string `env:"REPLICATE_WEBHOOK_SECRET"`
	WebhookBaseURL         string `env:"WEBHOOK_BASE_URL" envDefault:"http://localhost:8080"`

	DashScopeAPIKey  string `env:"DASHSCOPE_API_KEY"`
	DashScopeBaseURL string `env:"DASHSCOPE_BASE_URL" envDefault:"https://dashscope-intl.aliyuncs.com/api/v1"`
	DashScopeModel   string `env:"DASHSCOPE_MODEL" envDefault:"wan2.5-t2v-preview"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`

	DefaultVideoModel   string `env:"DEFAULT_VIDEO_MODEL" envDefault:"wan-video/wan-2.5-t2v"`
	DefaultImportUserID string `env:"DEFAULT_IMPORT_USER_ID" envDefault:"00000000-0000-0000-0000-000000000001"`

	JobTTL          time.Duration `env:"JOB_TTL" envDefault:"24h"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"30s"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
	PollBatch       int           `env:"POLL_BATCH" envDefault:"50"`

	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	RateLimitPerMin  int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
}

// LogOptions returns the logger settings derived from the config.
func (c *Config) LogOptions() LogOptions {
	return LogOptions{File: c.LogFile, MaxSizeMB: c.LogMaxSizeMB, MaxBackups: c.LogMaxBackups}
}

// LoadConfig reads an optional .env file, parses the environment and
// validates the result.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values that would make the service misbehave silently.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RedisURL) == "" {
		return errors.New("REDIS_URL is required")
	}
	if _, err := url.Parse(c.WebhookBaseURL); err != nil {
		return fmt.Errorf("WEBHOOK_BASE_URL is invalid: %w", err)
	}
	if c.JobTTL <= 0 {
		return errors.New("JOB_TTL must be positive")
	}
	if c.ProviderTimeout <= 0 {
		return errors.New("PROVIDER_TIMEOUT must be positive")
	}
	if c.PollBatch <= 0 {
		c.PollBatch = 50
	}
	if c.RateLimitPerMin <= 0 {
		c.RateLimitPerMin = 30
	}
	c.WebhookBaseURL = strings.TrimRight(c.WebhookBaseURL, "/")
	return nil
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// WebhookIsLocal reports whether provider callbacks cannot reach this service
// because the public base URL points at the local machine.
func (c *Config) WebhookIsLocal() bool {
	u, err := url.Parse(c.WebhookBaseURL)
	if err != nil {
		return true
	}
	host := u.Hostname()
	return host == "" || host == "localhost" || host == "127.0.0.1" || host == "0.0.0.0" || host == "::1"
}

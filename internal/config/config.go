// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage paths, rate limiting, notification polling and
// observability settings.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          `env:"ENABLE_HSTS" env-default:"false"`
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE" env-default:"4320h"`
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED" env-default:"false"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" env-default:"go-crm-backend"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG" env-default:"1.0"`
}

// NotifyConfig tunes the per-user notification feed.
type NotifyConfig struct {
	PollInterval time.Duration `env:"NOTIFY_POLL_INTERVAL" env-default:"30s"`
	FetchLimit   int           `env:"NOTIFY_FETCH_LIMIT" env-default:"20"`
	SessionIdle  time.Duration `env:"NOTIFY_SESSION_IDLE" env-default:"15m"`
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        `env:"PORT" env-default:"8080"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" env-default:"15s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" env-default:"10s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" env-default:"20s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxHeaderBytes    int           `env:"MAX_HEADER_BYTES" env-default:"1048576"`
	GinMode           string        `env:"GIN_MODE" env-default:"release"`

	// Logging / Docs
	LogLevel       string `env:"LOG_LEVEL" env-default:"info"`
	LogPretty      bool   `env:"LOG_PRETTY" env-default:"false"`
	SwaggerEnabled bool   `env:"SWAGGER_ENABLED" env-default:"false"`
	APIBasePath    string `env:"API_BASE_PATH" env-default:"/api/v1"`

	// Storage
	DBPath   string `env:"DB_PATH" env-default:"crm.db"`
	PrefsDir string `env:"PREFS_DIR" env-default:"data/preferences"`

	// Rate limiting
	RateRPS   float64 `env:"RATE_RPS" env-default:"5"`
	RateBurst int     `env:"RATE_BURST" env-default:"10"`

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" env-default:"24h"`

	Notify NotifyConfig
	OTEL   OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("config: read env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	c.GinMode = strings.ToLower(strings.TrimSpace(c.GinMode))
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		c.GinMode = "release"
	}
	c.APIBasePath = normalizeBasePath(c.APIBasePath)
	c.CORS.AllowedOrigins = compact(c.CORS.AllowedOrigins)
}

// Validate checks ranges and required values.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if c.ReadTimeout <= 0 || c.ReadHeaderTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if c.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(c.PrefsDir) == "" {
		return errors.New("PREFS_DIR must not be empty")
	}
	if c.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if c.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if c.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if c.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if c.Notify.PollInterval <= 0 {
		return errors.New("NOTIFY_POLL_INTERVAL must be > 0")
	}
	if c.Notify.FetchLimit < 1 {
		return errors.New("NOTIFY_FETCH_LIMIT must be >= 1")
	}
	if c.Notify.SessionIdle < 0 {
		return errors.New("NOTIFY_SESSION_IDLE must be >= 0")
	}
	if c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}

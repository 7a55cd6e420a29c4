package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the service configuration. Values come from the environment,
// optionally seeded from a .env file.
type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`
	DBMaxConns int    `mapstructure:"DB_MAX_CONNS"`

	// SharedSecret gates ingestion and outcome callbacks. Empty means open.
	SharedSecret string `mapstructure:"SHARED_SECRET"`

	SchedulingBaseURL string `mapstructure:"SCHEDULING_BASE_URL"`
	SchedulingSecret  string `mapstructure:"SCHEDULING_SECRET"`

	MessagingURL     string        `mapstructure:"MESSAGING_URL"`
	MessagingAPIKey  string        `mapstructure:"MESSAGING_API_KEY"`
	MessagingTimeout time.Duration `mapstructure:"MESSAGING_TIMEOUT"`

	RabbitMQURL      string `mapstructure:"RABBITMQ_URL"`
	RabbitMQExchange string `mapstructure:"RABBITMQ_EXCHANGE"`

	RedisURL            string        `mapstructure:"REDIS_URL"`
	DispatchGuardWindow time.Duration `mapstructure:"DISPATCH_GUARD_WINDOW"`

	TemplatesFile  string   `mapstructure:"TEMPLATES_FILE"`
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	TelemetryEnabled bool `mapstructure:"OTEL_ENABLED"`
}

var keys = []string{
	"PORT", "ENV",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "DB_MAX_CONNS",
	"SHARED_SECRET",
	"SCHEDULING_BASE_URL", "SCHEDULING_SECRET",
	"MESSAGING_URL", "MESSAGING_API_KEY", "MESSAGING_TIMEOUT",
	"RABBITMQ_URL", "RABBITMQ_EXCHANGE",
	"REDIS_URL", "DISPATCH_GUARD_WINDOW",
	"TEMPLATES_FILE", "ALLOWED_ORIGINS",
	"LOG_LEVEL", "LOG_FORMAT",
	"OTEL_ENABLED",
}

// Load reads configuration from the environment and applies defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("SCHEDULING_BASE_URL", "http://localhost:3000/schedule")
	v.SetDefault("MESSAGING_TIMEOUT", "0s")
	v.SetDefault("RABBITMQ_EXCHANGE", "recall.events")
	v.SetDefault("DISPATCH_GUARD_WINDOW", "0s")
	v.SetDefault("TEMPLATES_FILE", "templates.yml")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("OTEL_ENABLED", false)

	// Bind explicitly so Unmarshal sees env-only keys.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.AllowedOrigins = splitList(strings.Join(cfg.AllowedOrigins, ","))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateDatabase checks the settings every command needs.
func (c *Config) ValidateDatabase() error {
	if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
		return fmt.Errorf("DB_HOST, DB_USER and DB_NAME are required")
	}
	return nil
}

// Validate checks the settings needed to serve traffic.
func (c *Config) Validate() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.SchedulingSecret == "" {
		return fmt.Errorf("SCHEDULING_SECRET is required to sign scheduling links")
	}
	if c.MessagingTimeout < 0 {
		return fmt.Errorf("MESSAGING_TIMEOUT must not be negative")
	}
	if c.DispatchGuardWindow < 0 {
		return fmt.Errorf("DISPATCH_GUARD_WINDOW must not be negative")
	}
	return nil
}

// IsDev reports whether the service runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// GateOpen reports whether the shared-secret gate is disabled.
func (c *Config) GateOpen() bool {
	return c.SharedSecret == ""
}

// DSN builds the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

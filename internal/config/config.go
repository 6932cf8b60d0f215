package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                int      `mapstructure:"port"`
	DatabaseDriver      string   `mapstructure:"database_driver"` // "sqlite3" or "postgres"
	DatabaseDSN         string   `mapstructure:"database_dsn"`    // file path for sqlite3, connection string for postgres
	LogLevel            string   `mapstructure:"log_level"`
	AllowedOrigins      []string `mapstructure:"allowed_origins"`
	AccessTokenSecret   string   `mapstructure:"access_token_secret"`
	RefreshTokenSecret  string   `mapstructure:"refresh_token_secret"`
	AccessTokenTTLSec   int      `mapstructure:"access_token_ttl_sec"`  // Access token lifetime
	RefreshTokenTTLSec  int      `mapstructure:"refresh_token_ttl_sec"` // Refresh token lifetime
	TOTPIssuer          string   `mapstructure:"totp_issuer"`           // Issuer shown in authenticator apps
	GoogleClientID      string   `mapstructure:"google_client_id"`      // Empty disables federated login
	SMTPHost            string   `mapstructure:"smtp_host"`             // Empty falls back to log-only mail delivery
	SMTPPort            int      `mapstructure:"smtp_port"`
	SMTPUsername        string   `mapstructure:"smtp_username"`
	SMTPPassword        string   `mapstructure:"smtp_password"`
	EmailFrom           string   `mapstructure:"email_from"`
	ResetURLBase        string   `mapstructure:"reset_url_base"`        // Frontend reset page; token is appended
	RequestTimeoutSec   int      `mapstructure:"request_timeout_sec"`   // HTTP read/write; 0 = use server default
	ShutdownTimeoutSec  int      `mapstructure:"shutdown_timeout_sec"`  // Graceful shutdown wait
	TracingEndpoint     string   `mapstructure:"tracing_endpoint"`      // OTLP collector; empty disables tracing
	TracingSamplingRate float64  `mapstructure:"tracing_sampling_rate"` // 0..1
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/legido/")
	viper.AddConfigPath("$HOME/.legido")
	viper.AddConfigPath(".")

	// Defaults
	viper.SetDefault("port", 8000)
	viper.SetDefault("database_driver", "sqlite3")
	viper.SetDefault("database_dsn", "./auth.db")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("access_token_secret", "")
	viper.SetDefault("refresh_token_secret", "")
	viper.SetDefault("access_token_ttl_sec", 15*60)
	viper.SetDefault("refresh_token_ttl_sec", 7*24*60*60)
	viper.SetDefault("totp_issuer", "LeGiDo")
	viper.SetDefault("google_client_id", "")
	viper.SetDefault("smtp_host", "")
	viper.SetDefault("smtp_port", 587)
	viper.SetDefault("smtp_username", "")
	viper.SetDefault("smtp_password", "")
	viper.SetDefault("email_from", "no-reply@legido.local")
	viper.SetDefault("reset_url_base", "http://localhost:3000/reset")
	viper.SetDefault("request_timeout_sec", 30)
	viper.SetDefault("shutdown_timeout_sec", 15)
	viper.SetDefault("tracing_endpoint", "")
	viper.SetDefault("tracing_sampling_rate", 1.0)

	// Environment variables
	viper.SetEnvPrefix("LEGIDO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return nil, fmt.Errorf("access_token_secret and refresh_token_secret must be set")
	}
	if cfg.DatabaseDriver != "sqlite3" && cfg.DatabaseDriver != "postgres" {
		return nil, fmt.Errorf("unsupported database_driver %q", cfg.DatabaseDriver)
	}

	return &cfg, nil
}

// AccessTokenTTL returns the access token lifetime as a duration.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLSec) * time.Second
}

// RefreshTokenTTL returns the refresh token lifetime as a duration.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLSec) * time.Second
}

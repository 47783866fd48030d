package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/sirupsen/logrus"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Tailscale TailscaleConfig
	Sync      SyncConfig
	OIDC      OIDCConfig
	Web       WebConfig
	Log       LogConfig
}

// OIDCConfig holds OIDC authentication configuration.
type OIDCConfig struct {
	Enabled        bool   `env:"OIDC_ENABLED" envDefault:"false"`
	IssuerURL      string `env:"OIDC_ISSUER_URL"`
	ClientID       string `env:"OIDC_CLIENT_ID"`
	ClientSecret   string `env:"OIDC_CLIENT_SECRET"`
	RedirectURL    string `env:"OIDC_REDIRECT_URL"`
	Scopes         string `env:"OIDC_SCOPES" envDefault:"openid,email,profile"`
	AllowedDomains string `env:"OIDC_ALLOWED_DOMAINS"`
	LogoutURL      string `env:"OIDC_LOGOUT_URL"`
}

// GetScopes returns the OIDC scopes as a slice.
func (c *OIDCConfig) GetScopes() []string {
	if c.Scopes == "" {
		return []string{"openid", "email", "profile"}
	}
	return splitList(c.Scopes)
}

// GetAllowedDomains returns the allowed domains as a slice.
func (c *OIDCConfig) GetAllowedDomains() []string {
	if c.AllowedDomains == "" {
		return nil
	}
	return splitList(c.AllowedDomains)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DB_DSN" envDefault:"data/gateway-manager.db"`
}

// TailscaleConfig holds Tailscale API configuration.
type TailscaleConfig struct {
	Tailnet  string `env:"TAILSCALE_TAILNET"`
	APIKey   string `env:"TAILSCALE_API_KEY"`
	FileShim string `env:"TAILSCALE_FILE_SHIM"` // Path to file for testing shim (disables real API)
	Disabled bool   `env:"TAILSCALE_DISABLED" envDefault:"false"`
}

// SyncConfig holds sync behavior configuration.
type SyncConfig struct {
	AutoSync        bool          `env:"AUTO_SYNC" envDefault:"true"`
	Debounce        time.Duration `env:"SYNC_DEBOUNCE" envDefault:"5s"`
	BootstrapAPIKey string        `env:"BOOTSTRAP_API_KEY"`
}

// WebConfig holds web UI configuration.
type WebConfig struct {
	SessionDuration time.Duration `env:"WEB_SESSION_DURATION" envDefault:"24h"`
	SecureCookies   bool          `env:"WEB_SECURE_COOKIES" envDefault:"false"`
	DraftTTL        time.Duration `env:"WEB_DRAFT_TTL" envDefault:"30m"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"` // text or json
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []struct {
		name string
		v    any
	}{
		{"server", &cfg.Server},
		{"database", &cfg.Database},
		{"tailscale", &cfg.Tailscale},
		{"sync", &cfg.Sync},
		{"oidc", &cfg.OIDC},
		{"web", &cfg.Web},
		{"log", &cfg.Log},
	}
	for _, s := range sections {
		if err := env.Parse(s.v); err != nil {
			return nil, fmt.Errorf("parsing %s config: %w", s.name, err)
		}
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.UseTailscaleAPI() {
		if c.Tailscale.Tailnet == "" {
			return errors.New("TAILSCALE_TAILNET is required (or set TAILSCALE_FILE_SHIM or TAILSCALE_DISABLED)")
		}
		if c.Tailscale.APIKey == "" {
			return errors.New("TAILSCALE_API_KEY is required (or set TAILSCALE_FILE_SHIM or TAILSCALE_DISABLED)")
		}
	}

	if c.Sync.Debounce < 0 {
		return errors.New("SYNC_DEBOUNCE must not be negative")
	}
	if c.Web.SessionDuration <= 0 {
		return errors.New("WEB_SESSION_DURATION must be positive")
	}
	if c.Web.DraftTTL <= 0 {
		return errors.New("WEB_DRAFT_TTL must be positive")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}

	if c.OIDC.Enabled {
		if c.OIDC.IssuerURL == "" {
			return errors.New("OIDC_ISSUER_URL is required when OIDC is enabled")
		}
		if c.OIDC.ClientID == "" {
			return errors.New("OIDC_CLIENT_ID is required when OIDC is enabled")
		}
		if c.OIDC.ClientSecret == "" {
			return errors.New("OIDC_CLIENT_SECRET is required when OIDC is enabled")
		}
		if c.OIDC.RedirectURL == "" {
			return errors.New("OIDC_REDIRECT_URL is required when OIDC is enabled")
		}
	}

	return nil
}

// UseFileShim returns true if the file shim should be used instead of the real API.
func (c *Config) UseFileShim() bool {
	return !c.Tailscale.Disabled && c.Tailscale.FileShim != ""
}

// UseTailscaleAPI returns true if policies are pushed to the real API.
func (c *Config) UseTailscaleAPI() bool {
	return !c.Tailscale.Disabled && c.Tailscale.FileShim == ""
}

// ConfigureLogging applies the log section to the standard logrus logger.
func (c *LogConfig) ConfigureLogging() error {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	if c.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

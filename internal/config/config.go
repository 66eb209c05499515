// Package config loads server settings from the environment.
//
// Variable names follow the deployment the board grew out of: URL_DB for the
// database, CLIENT_ID / CLIENT_SECRET for the Google OAuth client and PORT for
// the listener.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// DefaultSessionSecret is the SESSION_SECRET used when none is configured.
// It is public, so anyone can forge cookies for a deployment that keeps it.
// Must match the envDefault on Config.SessionSecret.
const DefaultSessionSecret = "Our little secret."

// Config holds runtime settings for the server.
type Config struct {
	Port   int    `env:"PORT"   envDefault:"3000"`
	DBPath string `env:"URL_DB" envDefault:"data/secrets.db"`

	GoogleClientID     string `env:"CLIENT_ID"`
	GoogleClientSecret string `env:"CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`

	// Google endpoint overrides, for pointing the OAuth client at a mock
	// identity provider in staging. Set all three or none.
	GoogleAuthURL     string `env:"GOOGLE_AUTH_URL"`
	GoogleTokenURL    string `env:"GOOGLE_TOKEN_URL"`
	GoogleUserInfoURL string `env:"GOOGLE_USERINFO_URL"`

	SessionSecret  string        `env:"SESSION_SECRET" envDefault:"Our little secret."`
	SessionTTL     time.Duration `env:"SESSION_TTL"     envDefault:"24h"`
	SessionBackend string        `env:"SESSION_BACKEND" envDefault:"memory"`
	RedisAddr      string        `env:"REDIS_ADDR"      envDefault:"localhost:6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB"        envDefault:"0"`

	// LoginRateLimit is the number of POST /login and /register attempts a
	// single client IP may make per minute. Zero disables throttling.
	LoginRateLimit int `env:"LOGIN_RATE_LIMIT" envDefault:"20"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable it only behind a proxy that overwrites those headers;
	// otherwise clients can pick their own rate limit bucket.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config, fills derived defaults and
// validates the result.
func Load() (Config, error) {
	return LoadFrom(nil)
}

// LoadFrom behaves like Load but reads variables from environ instead of the
// process environment when environ is non-nil. Used by tests.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	if cfg.GoogleCallbackURL == "" {
		cfg.GoogleCallbackURL = fmt.Sprintf("http://localhost:%d/auth/google/secrets", cfg.Port)
	}
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("config: URL_DB must not be empty")
	}
	if len(c.SessionSecret) < 16 {
		return errors.New("config: SESSION_SECRET must be at least 16 characters")
	}
	if c.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR is required for the redis session backend")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	if n := countSet(c.GoogleAuthURL, c.GoogleTokenURL, c.GoogleUserInfoURL); n != 0 && n != 3 {
		return errors.New("config: GOOGLE_AUTH_URL, GOOGLE_TOKEN_URL and GOOGLE_USERINFO_URL must be set together")
	}
	if c.LoginRateLimit < 0 {
		return errors.New("config: LOGIN_RATE_LIMIT must not be negative")
	}
	return nil
}

// UsesDefaultSessionSecret reports whether SESSION_SECRET was left unset.
func (c Config) UsesDefaultSessionSecret() bool {
	return c.SessionSecret == DefaultSessionSecret
}

// GoogleEnabled reports whether both halves of the OAuth client are set.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// GoogleEndpointsOverridden reports whether the Google endpoint overrides
// are in use.
func (c Config) GoogleEndpointsOverridden() bool {
	return c.GoogleAuthURL != ""
}

func countSet(values ...string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}

// SlogLevel maps LOG_LEVEL onto a slog.Level, defaulting to Info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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

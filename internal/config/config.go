// Package config loads the server configuration.
//
// Sources, later ones win:
//
//  1. Defaults()
//  2. an optional YAML file (-config flag or NOTES_CONFIG)
//  3. environment variables (PORT, DB_PATH, JWT_SECRET, ...)
//
// Example file:
//
//	port: 8080
//	db_path: data/notes.db
//	log_level: info
//	session:
//	  secret: change-me-to-32-random-bytes
//	  ttl: 24h
//	github:
//	  client_id: Iv1.abc
//	  client_secret: s3cret
//	  callback_url: https://notes.example.com/auth/github/callback
//	login_rate:
//	  per_second: 0.5
//	  burst: 5
//	trust_proxy: false
package config

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MinSecretLength matches what auth.NewTokenService accepts.
const MinSecretLength = 16

type Config struct {
	Port      int       `yaml:"port"`
	DBPath    string    `yaml:"db_path"`
	LogLevel  string    `yaml:"log_level"`
	Session   Session   `yaml:"session"`
	GitHub    GitHub    `yaml:"github"`
	LoginRate LoginRate `yaml:"login_rate"`

	// TrustProxy makes the server take the client address from
	// X-Forwarded-For / X-Real-IP. Only enable it behind a proxy that
	// overwrites those headers; otherwise clients pick their own address
	// and slip past the login rate limit.
	TrustProxy bool `yaml:"trust_proxy"`
}

type Session struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// GitHub sign-in is enabled only when both ClientID and ClientSecret are set.
type GitHub struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
}

// LoginRate throttles POST /auth/login/ per client IP.
type LoginRate struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

func Defaults() *Config {
	return &Config{
		Port:     8080,
		DBPath:   "data/notes.db",
		LogLevel: "info",
		Session:  Session{TTL: 24 * time.Hour},
		LoginRate: LoginRate{
			PerSecond: 0.5,
			Burst:     5,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment. It does not validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// an empty file decodes to io.EOF
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}

	integer("PORT", &c.Port)
	str("DB_PATH", &c.DBPath)
	str("LOG_LEVEL", &c.LogLevel)
	str("JWT_SECRET", &c.Session.Secret)
	str("GITHUB_CLIENT_ID", &c.GitHub.ClientID)
	str("GITHUB_CLIENT_SECRET", &c.GitHub.ClientSecret)
	str("GITHUB_CALLBACK_URL", &c.GitHub.CallbackURL)
	integer("LOGIN_BURST", &c.LoginRate.Burst)

	if v, ok := os.LookupEnv("SESSION_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SESSION_TTL: %w", err))
		} else {
			c.Session.TTL = d
		}
	}
	if v, ok := os.LookupEnv("TRUST_PROXY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRUST_PROXY: %q is not a boolean", v))
		} else {
			c.TrustProxy = b
		}
	}
	if v, ok := os.LookupEnv("LOGIN_RATE_PER_SEC"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOGIN_RATE_PER_SEC: %q is not a number", v))
		} else {
			c.LoginRate.PerSecond = f
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Validate reports every problem at once instead of stopping at the first.
// An empty session secret is allowed here; see EnsureSecret.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range 1-65535", c.Port))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Session.Secret != "" && len(c.Session.Secret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("session secret must be at least %d characters", MinSecretLength))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if (c.GitHub.ClientID == "") != (c.GitHub.ClientSecret == "") {
		errs = append(errs, errors.New("github client_id and client_secret must be set together"))
	}
	if c.LoginRate.PerSecond <= 0 {
		errs = append(errs, errors.New("login_rate.per_second must be positive"))
	}
	if c.LoginRate.Burst < 1 {
		errs = append(errs, errors.New("login_rate.burst must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// EnsureSecret fills an empty session secret with random bytes and reports
// whether it did. Sessions signed with a generated secret do not survive a
// restart.
func (c *Config) EnsureSecret() (bool, error) {
	if c.Session.Secret != "" {
		return false, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return false, fmt.Errorf("config: generating session secret: %w", err)
	}
	c.Session.Secret = hex.EncodeToString(b)
	return true, nil
}

func (c *Config) GitHubEnabled() bool {
	return c.GitHub.ClientID != "" && c.GitHub.ClientSecret != ""
}

// SlogLevel returns the configured level, or Info if it does not parse.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level %q must be debug, info, warn or error", s)
	}
	return level, nil
}

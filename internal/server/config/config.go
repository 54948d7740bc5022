// Package config assembles the server configuration from defaults, an
// optional JSON file, the environment (with .env support) and command-line
// flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	// DevSecretKey signs sessions in development. It is rejected in production.
	DevSecretKey = "development-secret"

	EnvDevelopment = "development"
	EnvProduction  = "production"

	SessionBackendJWT   = "jwt"
	SessionBackendRedis = "redis"

	ContentBackendMemory = "memory"
	ContentBackendS3     = "s3"
)

// Config holds runtime settings for the folioguard server.
//
// SecretKey signs JWT sessions (HS256). SessionBackend selects between
// self-contained JWT cookies and server-side sessions in Redis.
// ContentBackend selects where the editor's content files live.
type Config struct {
	HTTPAddr                string
	DatabaseDSN             string
	SecretKey               string
	SessionValidityDuration time.Duration
	SessionBackend          string
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	CookieSecure            bool
	Environment             string
	AllowedOrigins          []string
	LogLevel                string
	ContentBackend          string
	S3RootUser              string
	S3RootPassword          string
	S3Bucket                string
	S3Region                string
	S3BaseEndpoint          string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.DatabaseDSN = "file:./dev.db"
	c.SecretKey = DevSecretKey
	c.SessionValidityDuration = 7 * 24 * time.Hour
	c.SessionBackend = SessionBackendJWT
	c.RedisAddr = "localhost:6379"
	c.RedisDB = 0
	c.Environment = EnvDevelopment
	c.LogLevel = "info"
	c.ContentBackend = ContentBackendMemory
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "content"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config from os.Args and the process environment.
// Malformed JSON or flags cause a panic, as at startup there is nothing
// sensible to fall back to.
func LoadConfig() *Config {
	return load(os.Args[1:])
}

func load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg, args)
	parseEnv(cfg, args)
	parseFlags(cfg, args)

	if cfg.Environment == EnvProduction {
		cfg.CookieSecure = true
	}
	return cfg
}

// IsProduction reports whether the server runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

var (
	ErrDevSecretInProduction = errors.New("AUTH_SECRET must be set in production")
	ErrEmptySecret           = errors.New("secret key must not be empty")
)

// Validate checks the combination of settings before the server starts.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return ErrEmptySecret
	}
	if c.IsProduction() && c.SecretKey == DevSecretKey {
		return ErrDevSecretInProduction
	}
	if c.SessionValidityDuration <= 0 {
		return fmt.Errorf("session validity must be positive, got %s", c.SessionValidityDuration)
	}
	switch c.SessionBackend {
	case SessionBackendJWT:
	case SessionBackendRedis:
		if c.RedisAddr == "" {
			return errors.New("redis session backend needs REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.SessionBackend)
	}
	switch c.ContentBackend {
	case ContentBackendMemory, ContentBackendS3:
	default:
		return fmt.Errorf("unknown content backend %q", c.ContentBackend)
	}
	return nil
}

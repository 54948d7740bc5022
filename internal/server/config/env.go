package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/folioguard/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv overlays config with environment variables. A .env file (or the
// one named by -env-file) is loaded first; it never overrides variables that
// are already set in the process environment.
func parseEnv(config *Config, args []string) {
	envFile := flagx.EnvFilePath(args)
	if envFile == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	} else if err := godotenv.Load(envFile); err != nil {
		panic(err)
	}

	config.HTTPAddr = getEnv("HTTP_ADDR", config.HTTPAddr)
	config.DatabaseDSN = getEnv("DATABASE_URL", config.DatabaseDSN)
	config.SecretKey = getEnv("AUTH_SECRET", config.SecretKey)
	config.SessionValidityDuration = getEnvDuration("SESSION_TTL", config.SessionValidityDuration)
	config.SessionBackend = getEnv("SESSION_BACKEND", config.SessionBackend)
	config.RedisAddr = getEnv("REDIS_ADDR", config.RedisAddr)
	config.RedisPassword = getEnv("REDIS_PASSWORD", config.RedisPassword)
	config.RedisDB = getEnvInt("REDIS_DB", config.RedisDB)
	config.CookieSecure = getEnvBool("COOKIE_SECURE", config.CookieSecure)
	config.Environment = getEnv("APP_ENV", config.Environment)
	if origins := getEnvStringList("ALLOWED_ORIGINS"); origins != nil {
		config.AllowedOrigins = origins
	}
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.ContentBackend = getEnv("CONTENT_BACKEND", config.ContentBackend)
	config.S3RootUser = getEnv("S3_ROOT_USER", config.S3RootUser)
	config.S3RootPassword = getEnv("S3_ROOT_PASSWORD", config.S3RootPassword)
	config.S3Bucket = getEnv("S3_BUCKET", config.S3Bucket)
	config.S3Region = getEnv("S3_REGION", config.S3Region)
	config.S3BaseEndpoint = getEnv("S3_BASE_ENDPOINT", config.S3BaseEndpoint)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvStringList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

package config

import (
	"os"
	"strings"
	"time"
)

const (
	// Messages
	MaxMessageLength         = 2000
	LastMessagePreviewLength = 100

	// Notifications
	NotificationPageSize = 50

	// HTTP server
	ReadTimeout     = 10 * time.Second
	WriteTimeout    = 10 * time.Second
	ShutdownTimeout = 30 * time.Second
)

// Config holds environment-driven settings. Limits and timeouts that never
// change per deployment live as package constants above.
type Config struct {
	Port          string
	Env           string
	DatabaseDSN   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string

	AllowedOrigins []string
}

// Load reads configuration from environment variables, falling back to
// local-development defaults matching docker-compose.
func Load() Config {
	cfg := Config{
		Port:          getenv("PORT", "8080"),
		Env:           getenv("ENV", "development"),
		DatabaseDSN:   getenv("DATABASE_DSN", "host=localhost user=user password=password dbname=campusmarket port=5432 sslmode=disable"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     getenv("JWT_SECRET", "dev-only-secret"),
	}

	origins := getenv("ALLOWED_ORIGINS", "http://localhost:5173")
	for _, o := range strings.Split(origins, ",") {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, strings.TrimSpace(o))
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

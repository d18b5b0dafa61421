package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultHTTPPort         = 3000
	defaultBackendURL       = "http://localhost:8000"
	defaultBackendTimeout   = 10 * time.Second
	defaultGeoTimeout       = 5 * time.Second
	defaultFacilityCacheTTL = 10 * time.Minute
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv           string
	HTTPPort         int
	BackendURL       string
	BackendTimeout   time.Duration
	GeoTimeout       time.Duration
	RedisAddr        string
	FacilityCacheTTL time.Duration
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	portStr := getEnv("HTTP_PORT", strconv.Itoa(defaultHTTPPort))
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = defaultHTTPPort
	}

	return &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		HTTPPort:         port,
		BackendURL:       strings.TrimRight(getEnv("BACKEND_URL", defaultBackendURL), "/"),
		BackendTimeout:   getDuration("BACKEND_TIMEOUT", defaultBackendTimeout),
		GeoTimeout:       getDuration("GEO_TIMEOUT", defaultGeoTimeout),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		FacilityCacheTTL: getDuration("FACILITY_CACHE_TTL", defaultFacilityCacheTTL),
	}
}

// CacheEnabled reports whether facility lookups should go through Redis.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL  string // PostgreSQL connection string (optional, uses in-memory if not set)
	PublicSchema string // shared schema holding tenant/plan/domain metadata

	// Tenant routing
	TenantHeader  string // request header carrying an explicit schema name
	LocalHostname string // hostname label treated as local/loopback access

	// Security
	JWTSecret    string // HMAC secret for user tokens
	AdminSecret  string // shared secret guarding the admin API
	RateLimitRPS int

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint; empty disables tracing
}

// Defaults.
const (
	DefaultPort          = "8080"
	DefaultEnv           = "development"
	DefaultLogLevel      = "info"
	DefaultPublicSchema  = "public"
	DefaultTenantHeader  = "X-Tenant"
	DefaultLocalHostname = "localhost"
	DefaultRateLimit     = 100
)

// Load reads configuration from environment variables.
// It loads a .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", DefaultPort),
		Env:           getEnv("ENV", DefaultEnv),
		LogLevel:      getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:   os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		PublicSchema:  getEnv("PUBLIC_SCHEMA", DefaultPublicSchema),
		TenantHeader:  getEnv("TENANT_HEADER", DefaultTenantHeader),
		LocalHostname: getEnv("LOCAL_HOSTNAME", DefaultLocalHostname),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AdminSecret:   os.Getenv("ADMIN_SECRET"),
		RateLimitRPS:  getEnvInt("RATE_LIMIT_RPS", DefaultRateLimit),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.PublicSchema == "" {
		return fmt.Errorf("PUBLIC_SCHEMA must not be empty")
	}
	if c.IsProduction() && c.AdminSecret == "" {
		return fmt.Errorf("ADMIN_SECRET is required in production")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

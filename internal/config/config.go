// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Payment gateway (Razorpay)
	RazorpayKeyID     string
	RazorpayKeySecret string
	Currency          string

	// Signature verification
	// WebhookSecret is the shared secret used to verify payment callbacks.
	// Defaults to RazorpayKeySecret when unset.
	WebhookSecret string
	// AllowMockSignature accepts the development sentinel signature when no
	// secret is configured. Refused in production (see Validate).
	AllowMockSignature bool

	// Network risk lookup
	RiskLookupURL     string
	RiskLookupAPIKey  string
	RiskLookupTimeout time.Duration

	// Auth
	JWTSecret string

	// Security
	RateLimitRPS int

	// Tracing
	OTLPEndpoint string
}

// Defaults
const (
	DefaultPort              = "8080"
	DefaultEnv               = "development"
	DefaultLogLevel          = "info"
	DefaultCurrency          = "INR"
	DefaultRateLimit         = 100
	DefaultRiskLookupTimeout = 5 * time.Second
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:        os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		RazorpayKeyID:      os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:  os.Getenv("RAZORPAY_KEY_SECRET"),
		Currency:           getEnv("CURRENCY", DefaultCurrency),
		WebhookSecret:      os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		AllowMockSignature: getEnvBool("ALLOW_MOCK_SIGNATURE", false),
		RiskLookupURL:      os.Getenv("RISK_LOOKUP_URL"),
		RiskLookupAPIKey:   os.Getenv("RISK_LOOKUP_API_KEY"),
		RiskLookupTimeout:  getEnvDuration("RISK_LOOKUP_TIMEOUT", DefaultRiskLookupTimeout),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		RateLimitRPS:       int(getEnvInt64("RATE_LIMIT_RPS", int64(DefaultRateLimit))),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = cfg.RazorpayKeySecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and that
// development conveniences cannot leak into production.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.IsProduction() {
		if c.RazorpayKeyID == "" || c.RazorpayKeySecret == "" {
			return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required in production")
		}
		if c.WebhookSecret == "" {
			return fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required in production")
		}
		// Mock signature verification must never reach production.
		if c.AllowMockSignature {
			return fmt.Errorf("ALLOW_MOCK_SIGNATURE cannot be enabled in production")
		}
	}

	if c.RiskLookupTimeout <= 0 {
		return fmt.Errorf("RISK_LOOKUP_TIMEOUT must be positive")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

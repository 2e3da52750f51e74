package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/cashtrackr/internal/credential"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	DBPath string

	// Credentials
	JWTSecret  string
	JWTTTL     time.Duration
	TokenTTL   time.Duration
	BcryptCost int

	// Email
	PostmarkToken string
	FromEmail     string
	FrontendURL   string

	// Rate limiting for /api/auth
	RateLimit  int
	RateWindow time.Duration
	TrustProxy bool

	// Logging
	LogLevel  string
	LogFormat string

	Env string
}

// Load reads the configuration from the environment. A .env file in the
// working directory, if present, fills in variables not already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:   getEnv("PORT", "4000"),
		DBPath: getEnv("DB_PATH", "cashtrackr.db"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		JWTTTL:     getEnvDuration("JWT_TTL", credential.DefaultJWTTTL),
		TokenTTL:   getEnvDuration("TOKEN_TTL", 0),
		BcryptCost: getEnvInt("BCRYPT_COST", bcrypt.DefaultCost),

		PostmarkToken: getEnv("POSTMARK_TOKEN", ""),
		FromEmail:     getEnv("FROM_EMAIL", ""),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),

		RateLimit:  getEnvInt("RATE_LIMIT", 10),
		RateWindow: getEnvDuration("RATE_WINDOW", time.Minute),
		TrustProxy: getEnvBool("TRUST_PROXY", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		Env: getEnv("APP_ENV", "development"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// EmailConfigured reports whether outbound email can be sent.
func (c *Config) EmailConfigured() bool {
	return c.PostmarkToken != "" && c.FromEmail != ""
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	}

	if c.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	} else if c.IsProduction() && len(c.JWTSecret) < 32 {
		errors = append(errors, "JWT_SECRET must be at least 32 characters in production")
	}
	if c.JWTTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid JWT TTL %v: must be at least 1 minute", c.JWTTTL))
	}
	if c.TokenTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid token TTL %v: must not be negative", c.TokenTTL))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errors = append(errors, fmt.Sprintf("invalid bcrypt cost %d: must be between %d and %d", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}

	if u, err := url.Parse(c.FrontendURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid frontend URL '%s': must be an absolute URL", c.FrontendURL))
	}
	if c.IsProduction() && !c.EmailConfigured() {
		errors = append(errors, "POSTMARK_TOKEN and FROM_EMAIL are required in production")
	}

	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimit))
	}
	if c.RateWindow < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rate window %v: must be at least 1 second", c.RateWindow))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// FrontendHost returns the host of FrontendURL, used as the allowed
// websocket origin.
func (c *Config) FrontendHost() string {
	u, err := url.Parse(c.FrontendURL)
	if err != nil {
		return ""
	}
	return u.Host
}

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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("15m") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

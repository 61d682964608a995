package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server configuration
	Port string `yaml:"port"`
	Mode string `yaml:"mode"`

	// Database configuration
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`

	// Redis configuration
	RedisURL string `yaml:"redis_url"`

	// Request serializer
	LockBackend string        `yaml:"lock_backend"` // memory or redis
	LockKey     string        `yaml:"lock_key"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
	LockTTL     time.Duration `yaml:"lock_ttl"`

	// Admin session
	AdminJWTSecret       string        `yaml:"admin_jwt_secret"`
	AdminSessionTTL      time.Duration `yaml:"admin_session_ttl"`
	AdminDefaultUsername string        `yaml:"admin_default_username"`
	AdminDefaultPassword string        `yaml:"admin_default_password"`

	// Licensing and ledger
	TokenPrefix           string `yaml:"token_prefix"`
	StoreTimezone         string `yaml:"store_timezone"`
	OrderRateLimitMinutes int    `yaml:"order_rate_limit_minutes"`

	// Outbound notification
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
	WebhookSecret  string        `yaml:"webhook_secret"`
	BrevoAPIKey    string        `yaml:"brevo_api_key"`
	BrevoFromEmail string        `yaml:"brevo_from_email"`
	BrevoFromName  string        `yaml:"brevo_from_name"`
	OperatorEmail  string        `yaml:"operator_email"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

var AppConfig *Config

func InitConfig() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load reads .env (if present) and the environment, then applies the YAML file
// named by CONFIG_FILE on top.
func Load() (*Config, error) {
	// Ignore error if .env file doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		Mode:                  getEnv("GIN_MODE", "debug"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		SQLitePath:            getEnv("SQLITE_PATH", "pos-ledger.db"),
		RedisURL:              getEnv("REDIS_URL", ""),
		LockBackend:           getEnv("LOCK_BACKEND", "memory"),
		LockKey:               getEnv("LOCK_KEY", "pos-ledger:request-lock"),
		LockTimeout:           getEnvDuration("LOCK_TIMEOUT", 10*time.Second),
		LockTTL:               getEnvDuration("LOCK_TTL", 30*time.Second),
		AdminJWTSecret:        getEnv("ADMIN_JWT_SECRET", ""),
		AdminSessionTTL:       getEnvDuration("ADMIN_SESSION_TTL", 12*time.Hour),
		AdminDefaultUsername:  getEnv("ADMIN_DEFAULT_USERNAME", "admin"),
		AdminDefaultPassword:  getEnv("ADMIN_DEFAULT_PASSWORD", "admin123"),
		TokenPrefix:           getEnv("TOKEN_PREFIX", "ARB"),
		StoreTimezone:         getEnv("STORE_TIMEZONE", "Local"),
		OrderRateLimitMinutes: getEnvInt("ORDER_RATE_LIMIT_MINUTES", 1),
		WebhookTimeout:        getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		WebhookSecret:         getEnv("WEBHOOK_SECRET", ""),
		BrevoAPIKey:           getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:        getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:         getEnv("BREVO_FROM_NAME", "POS Licensing"),
		OperatorEmail:         getEnv("OPERATOR_EMAIL", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFile:               getEnv("LOG_FILE", ""),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyYAML(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.LockBackend {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("LOCK_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unsupported LOCK_BACKEND %q", c.LockBackend)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT must be positive")
	}
	if c.AdminJWTSecret == "" && c.Mode == "release" {
		return fmt.Errorf("ADMIN_JWT_SECRET is required in release mode")
	}
	return nil
}

// Location resolves StoreTimezone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	if c.StoreTimezone == "" || c.StoreTimezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func applyYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		// Support seconds as integer without suffix.
		if secs, convErr := strconv.Atoi(value); convErr == nil {
			return time.Duration(secs) * time.Second
		}
		return defaultValue
	}
	return d
}

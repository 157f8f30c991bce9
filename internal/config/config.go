package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Log      LogConfig
	Gateway  GatewayConfig
	Webhook  WebhookConfig
	Payment  PaymentConfig
	APIKeys  []string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds store configuration.
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Format string // json or console
}

// GatewayConfig holds payment processor configuration.
type GatewayConfig struct {
	BaseURL       string
	SecretKey     string
	Timeout       time.Duration
	CheckoutTitle string
}

// WebhookConfig holds webhook authentication configuration.
type WebhookConfig struct {
	SecretHash string
}

// PaymentConfig holds payment defaults.
type PaymentConfig struct {
	HomeCurrency  string
	PublicBaseURL string // Public address of this service; the processor redirects payers here.
	NodeID        int64  // Reference generator node, unique per running instance.
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 45*time.Second),
			RequestTimeout: getDurationEnv("SERVER_REQUEST_TIMEOUT", 40*time.Second),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", DriverPostgres),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "paycollect"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "paycollect.db"),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			LockTTL:  getDurationEnv("REDIS_LOCK_TTL", 30*time.Second),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "paycollect"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Gateway: GatewayConfig{
			BaseURL:       getEnv("FLUTTERWAVE_BASE_URL", "https://api.flutterwave.com/v3"),
			SecretKey:     getEnv("FLUTTERWAVE_SECRET_KEY", ""),
			Timeout:       getDurationEnv("FLUTTERWAVE_TIMEOUT", 15*time.Second),
			CheckoutTitle: getEnv("CHECKOUT_TITLE", "Payment"),
		},
		Webhook: WebhookConfig{
			SecretHash: getEnv("FLUTTERWAVE_SECRET_HASH", ""),
		},
		Payment: PaymentConfig{
			HomeCurrency:  strings.ToUpper(getEnv("HOME_CURRENCY", "UGX")),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			NodeID:        int64(getIntEnv("NODE_ID", 1)),
		},
		APIKeys: getListEnv("API_KEYS"),
	}
}

// Validate reports settings the service cannot run without.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver))
	}
	if c.Gateway.SecretKey == "" {
		errs = append(errs, errors.New("FLUTTERWAVE_SECRET_KEY is required"))
	}
	if c.Webhook.SecretHash == "" {
		errs = append(errs, errors.New("FLUTTERWAVE_SECRET_HASH is required"))
	}
	if n := len(c.Payment.HomeCurrency); n < 3 || n > 10 {
		errs = append(errs, fmt.Errorf("HOME_CURRENCY must be 3 to 10 characters, got %q", c.Payment.HomeCurrency))
	}
	if c.Payment.NodeID < 0 || c.Payment.NodeID > 1023 {
		errs = append(errs, fmt.Errorf("NODE_ID must be between 0 and 1023, got %d", c.Payment.NodeID))
	}

	return errors.Join(errs...)
}

// RedirectURL is the verification endpoint the processor sends payers back to.
func (c *Config) RedirectURL() string {
	return c.Payment.PublicBaseURL + "/api/payment/verify/"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping empty entries.
func getListEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

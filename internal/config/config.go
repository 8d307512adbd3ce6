package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment. A .env file
// in the working directory is loaded first when present.
type Config struct {
	Port        string
	Environment string
	LogLevel    string
	LogFile     string

	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig

	JWTSecret          string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration
}

// DatabaseConfig selects the gorm driver and its DSN
type DatabaseConfig struct {
	Driver   string // postgres, mysql or sqlite
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig holds the vote set store connection settings
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// StorageConfig holds S3 settings for uploaded images
type StorageConfig struct {
	Region     string
	Bucket     string
	CDNBaseURL string
	HMACSecret string
}

// TelemetryConfig configures OpenTelemetry tracing
type TelemetryConfig struct {
	Enabled      bool
	Endpoint     string
	SamplingRate float64
}

// Load reads the configuration. Missing .env files are not an error.
func Load() (*Config, bool) {
	envLoaded := godotenv.Load() == nil

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8787"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:     getEnvOrDefault("LOG_FILE", "server.log"),
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnvOrDefault("DB_DRIVER", "postgres")),
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnvOrDefault("DB_NAME", "inkwell"),
			SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Region:     getEnvOrDefault("AWS_REGION", "us-east-1"),
			Bucket:     os.Getenv("AWS_BUCKET"),
			CDNBaseURL: os.Getenv("CDN_BASE_URL"),
			HMACSecret: os.Getenv("UPLOAD_HMAC_SECRET"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnvOrDefault("OTEL_ENABLED", "false") == "true",
			Endpoint:     getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SamplingRate: getFloatOrDefault("OTEL_SAMPLING_RATE", 1.0),
		},
		JWTSecret:          os.Getenv("JWT_SECRET"),
		RateLimitPerMinute: getIntOrDefault("RATE_LIMIT_PER_MINUTE", 60),
		ShutdownTimeout:    30 * time.Second,
	}

	return cfg, envLoaded
}

// Validate fails fast on settings the server cannot run without
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	}
	return nil
}

// IsDevelopment reports whether verbose development behaviour is enabled
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// DSN builds the driver specific data source name when DATABASE_URL is unset
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true",
			d.User, d.Password, d.Host, d.Port, d.Name)
	case "sqlite":
		return d.Name + ".db"
	default:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

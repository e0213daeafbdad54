package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	OpenFoodFacts OpenFoodFactsConfig
	Cache         CacheConfig
	RateLimit     RateLimitConfig
	Scoring       ScoringConfig
	Store         StoreConfig
	Insights      InsightsConfig
	Events        EventsConfig
	Telemetry     TelemetryConfig
	Logging       LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// OpenFoodFactsConfig holds upstream food-data API configuration
type OpenFoodFactsConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	MaxEntries      int           `mapstructure:"max_entries"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
	Burst int `mapstructure:"burst"`
}

// ScoringConfig tunes the health scorer
type ScoringConfig struct {
	AdditivePenaltyCap int `mapstructure:"additive_penalty_cap"`
	LabelBonusCap      int `mapstructure:"label_bonus_cap"`
	// AdditivesFile replaces the embedded additive knowledge base when set
	AdditivesFile string `mapstructure:"additives_file"`
}

// StoreConfig holds report persistence configuration
type StoreConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Path          string        `mapstructure:"path"`
	Retention     time.Duration `mapstructure:"retention"`
	PruneSchedule string        `mapstructure:"prune_schedule"`
}

// InsightsConfig holds configuration for generated commentary
type InsightsConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// EventsConfig holds event publishing configuration. An empty URL disables publishing.
type EventsConfig struct {
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}

// TelemetryConfig holds tracing configuration. An empty endpoint disables export.
type TelemetryConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Format string `mapstructure:"format"` // "json" or "text"
	Level  string `mapstructure:"level"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration like Load, reading the given file instead of
// searching the default paths when path is not empty
func LoadFile(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/foodlens/")
	}

	// Environment variable settings: FOODLENS_SERVER_PORT -> server.port
	v.SetEnvPrefix("FOODLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile exports variables from ./.env without overriding ones already set
func loadEnvFile() error {
	err := gotenv.Load(".env")
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can bind it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*"})
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Upstream defaults
	v.SetDefault("openfoodfacts.base_url", "https://world.openfoodfacts.net")
	v.SetDefault("openfoodfacts.user_agent", "FoodLens/1.0 (https://github.com/foodlens/backend)")
	v.SetDefault("openfoodfacts.timeout", "6s")
	v.SetDefault("openfoodfacts.requests_per_minute", 100)
	v.SetDefault("openfoodfacts.burst", 10)

	// Cache defaults
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.cleanup_interval", "10m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.burst", 20)

	// Scoring defaults
	v.SetDefault("scoring.additive_penalty_cap", 20)
	v.SetDefault("scoring.label_bonus_cap", 5)
	v.SetDefault("scoring.additives_file", "")

	// Store defaults
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", "foodlens.db")
	v.SetDefault("store.retention", "720h") // 30 days
	v.SetDefault("store.prune_schedule", "@daily")

	// Insights defaults
	v.SetDefault("insights.enabled", true)
	v.SetDefault("insights.api_key", "")
	v.SetDefault("insights.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("insights.model", "llama-3.3-70b-versatile")
	v.SetDefault("insights.timeout", "20s")

	// Events defaults
	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.subject", "foodlens.product.analyzed")

	// Telemetry defaults
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", "foodlens-backend")
	v.SetDefault("telemetry.sample_ratio", 1.0)

	// Logging defaults
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.OpenFoodFacts.BaseURL == "" {
		return fmt.Errorf("openfoodfacts base URL is required (set FOODLENS_OPENFOODFACTS_BASE_URL)")
	}

	if config.OpenFoodFacts.RequestsPerMinute <= 0 {
		return fmt.Errorf("openfoodfacts requests_per_minute must be positive, got: %d", config.OpenFoodFacts.RequestsPerMinute)
	}

	if config.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got: %s", config.Cache.TTL)
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("ratelimit per_ip must be positive, got: %d", config.RateLimit.PerIP)
	}

	if config.Scoring.AdditivePenaltyCap < 0 || config.Scoring.LabelBonusCap < 0 {
		return fmt.Errorf("scoring caps must not be negative")
	}

	if config.Store.Enabled && config.Store.Path == "" {
		return fmt.Errorf("store path is required when the store is enabled")
	}

	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample_ratio must be within [0,1], got: %g", config.Telemetry.SampleRatio)
	}

	switch strings.ToLower(config.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("logging format must be 'json' or 'text', got: %s", config.Logging.Format)
	}

	return nil
}

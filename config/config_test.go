package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// chdirTemp switches into a fresh directory so no local config.yaml or .env is picked up
func chdirTemp(t *testing.T) string {
	t.Helper()
	originalDir, _ := os.Getwd()
	tempDir := t.TempDir()
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(originalDir) })
	return tempDir
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		chdirTemp(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.OpenFoodFacts.BaseURL != "https://world.openfoodfacts.net" {
			t.Errorf("OpenFoodFacts.BaseURL = %s, want https://world.openfoodfacts.net", cfg.OpenFoodFacts.BaseURL)
		}
		if cfg.OpenFoodFacts.Timeout != 6*time.Second {
			t.Errorf("OpenFoodFacts.Timeout = %v, want 6s", cfg.OpenFoodFacts.Timeout)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
		if cfg.Scoring.AdditivePenaltyCap != 20 || cfg.Scoring.LabelBonusCap != 5 {
			t.Errorf("Scoring caps = %d/%d, want 20/5", cfg.Scoring.AdditivePenaltyCap, cfg.Scoring.LabelBonusCap)
		}
		if !cfg.Store.Enabled || cfg.Store.Retention != 720*time.Hour {
			t.Errorf("Store = %+v, want enabled with 720h retention", cfg.Store)
		}
		if cfg.Insights.Model != "llama-3.3-70b-versatile" {
			t.Errorf("Insights.Model = %s, want llama-3.3-70b-versatile", cfg.Insights.Model)
		}
		if cfg.Events.NATSURL != "" {
			t.Errorf("Events.NATSURL = %s, want empty", cfg.Events.NATSURL)
		}
		if cfg.Logging.Format != "text" || cfg.Logging.Level != "info" {
			t.Errorf("Logging = %+v, want text/info", cfg.Logging)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("FOODLENS_SERVER_PORT", "9090")
		t.Setenv("FOODLENS_SERVER_ENVIRONMENT", "production")
		t.Setenv("FOODLENS_SERVER_ALLOWED_ORIGINS", "chrome-extension://*,http://localhost:3000")
		t.Setenv("FOODLENS_OPENFOODFACTS_BASE_URL", "https://world.openfoodfacts.org")
		t.Setenv("FOODLENS_CACHE_TTL", "1h")
		t.Setenv("FOODLENS_RATELIMIT_PER_IP", "200")
		t.Setenv("FOODLENS_SCORING_ADDITIVE_PENALTY_CAP", "30")
		t.Setenv("FOODLENS_STORE_ENABLED", "false")
		t.Setenv("FOODLENS_INSIGHTS_API_KEY", "gsk-test")
		t.Setenv("FOODLENS_EVENTS_NATS_URL", "nats://localhost:4222")
		t.Setenv("FOODLENS_TELEMETRY_SAMPLE_RATIO", "0.5")
		t.Setenv("FOODLENS_LOGGING_FORMAT", "json")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://localhost:3000" {
			t.Errorf("Server.AllowedOrigins = %v, want two origins", cfg.Server.AllowedOrigins)
		}
		if cfg.OpenFoodFacts.BaseURL != "https://world.openfoodfacts.org" {
			t.Errorf("OpenFoodFacts.BaseURL = %s, want https://world.openfoodfacts.org", cfg.OpenFoodFacts.BaseURL)
		}
		if cfg.Cache.TTL != time.Hour {
			t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
		if cfg.Scoring.AdditivePenaltyCap != 30 {
			t.Errorf("Scoring.AdditivePenaltyCap = %d, want 30", cfg.Scoring.AdditivePenaltyCap)
		}
		if cfg.Store.Enabled {
			t.Errorf("Store.Enabled = true, want false")
		}
		if cfg.Insights.APIKey != "gsk-test" {
			t.Errorf("Insights.APIKey = %s, want gsk-test", cfg.Insights.APIKey)
		}
		if cfg.Events.NATSURL != "nats://localhost:4222" {
			t.Errorf("Events.NATSURL = %s, want nats://localhost:4222", cfg.Events.NATSURL)
		}
		if cfg.Telemetry.SampleRatio != 0.5 {
			t.Errorf("Telemetry.SampleRatio = %g, want 0.5", cfg.Telemetry.SampleRatio)
		}
		if cfg.Logging.Format != "json" {
			t.Errorf("Logging.Format = %s, want json", cfg.Logging.Format)
		}
	})

	t.Run("fails validation for invalid logging format", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("FOODLENS_LOGGING_FORMAT", "xml")

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for invalid logging format")
		}
		if !strings.HasPrefix(err.Error(), "invalid configuration:") {
			t.Errorf("Load() error = %v, want validation error", err)
		}
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("reads explicit yaml file", func(t *testing.T) {
		dir := chdirTemp(t)
		path := filepath.Join(dir, "custom.yaml")
		content := `
server:
  port: "7070"
cache:
  ttl: 2h
store:
  path: /var/lib/foodlens/reports.db
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v, want nil", err)
		}

		if cfg.Server.Port != "7070" {
			t.Errorf("Server.Port = %s, want 7070", cfg.Server.Port)
		}
		if cfg.Cache.TTL != 2*time.Hour {
			t.Errorf("Cache.TTL = %v, want 2h", cfg.Cache.TTL)
		}
		if cfg.Store.Path != "/var/lib/foodlens/reports.db" {
			t.Errorf("Store.Path = %s, want /var/lib/foodlens/reports.db", cfg.Store.Path)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		dir := chdirTemp(t)
		path := filepath.Join(dir, "custom.yaml")
		if err := os.WriteFile(path, []byte("server:\n  port: \"7070\"\n"), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		t.Setenv("FOODLENS_SERVER_PORT", "6060")

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v, want nil", err)
		}
		if cfg.Server.Port != "6060" {
			t.Errorf("Server.Port = %s, want 6060", cfg.Server.Port)
		}
	})

	t.Run("fails for missing explicit file", func(t *testing.T) {
		dir := chdirTemp(t)

		_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
		if err == nil {
			t.Error("LoadFile() error = nil, want error for missing file")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		chdirTemp(t)

		err := loadEnvFile()
		if err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables from .env file", func(t *testing.T) {
		chdirTemp(t)

		envContent := `
# Comment line
TEST_VAR_1=value1
TEST_VAR_2=value2

# Another comment
TEST_VAR_3=value3
# TEST_COMMENTED=should_not_load
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		for _, k := range []string{"TEST_VAR_1", "TEST_VAR_2", "TEST_VAR_3", "TEST_COMMENTED"} {
			os.Unsetenv(k)
		}
		t.Cleanup(func() {
			for _, k := range []string{"TEST_VAR_1", "TEST_VAR_2", "TEST_VAR_3"} {
				os.Unsetenv(k)
			}
		})

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_3") != "value3" {
			t.Errorf("TEST_VAR_3 = %s, want value3", os.Getenv("TEST_VAR_3"))
		}
		if os.Getenv("TEST_COMMENTED") != "" {
			t.Errorf("TEST_COMMENTED should not be loaded from comment")
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("TEST_OVERRIDE", "existing-value")

		if err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}
	})

	t.Run("feeds configuration", func(t *testing.T) {
		chdirTemp(t)
		if err := os.WriteFile(".env", []byte("FOODLENS_INSIGHTS_API_KEY=from-dotenv\n"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		os.Unsetenv("FOODLENS_INSIGHTS_API_KEY")
		t.Cleanup(func() { os.Unsetenv("FOODLENS_INSIGHTS_API_KEY") })

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}
		if cfg.Insights.APIKey != "from-dotenv" {
			t.Errorf("Insights.APIKey = %s, want from-dotenv", cfg.Insights.APIKey)
		}
	})
}

func validConfig() *Config {
	return &Config{
		OpenFoodFacts: OpenFoodFactsConfig{BaseURL: "https://world.openfoodfacts.net", RequestsPerMinute: 100},
		Cache:         CacheConfig{TTL: time.Hour},
		RateLimit:     RateLimitConfig{PerIP: 100},
		Store:         StoreConfig{Enabled: true, Path: "foodlens.db"},
		Telemetry:     TelemetryConfig{SampleRatio: 1},
		Logging:       LoggingConfig{Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing base URL", func(c *Config) { c.OpenFoodFacts.BaseURL = "" }, true},
		{"zero upstream rate", func(c *Config) { c.OpenFoodFacts.RequestsPerMinute = 0 }, true},
		{"zero cache TTL", func(c *Config) { c.Cache.TTL = 0 }, true},
		{"zero per-IP limit", func(c *Config) { c.RateLimit.PerIP = 0 }, true},
		{"negative cap", func(c *Config) { c.Scoring.LabelBonusCap = -1 }, true},
		{"store without path", func(c *Config) { c.Store.Path = "" }, true},
		{"disabled store without path", func(c *Config) { c.Store.Enabled = false; c.Store.Path = "" }, false},
		{"sample ratio above one", func(c *Config) { c.Telemetry.SampleRatio = 1.5 }, true},
		{"json logging", func(c *Config) { c.Logging.Format = "JSON" }, false},
		{"unknown logging format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

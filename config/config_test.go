package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Clean up environment before tests
	cleanupEnv := func() {
		os.Unsetenv("HORECAWATCH_SERVER_PORT")
		os.Unsetenv("HORECAWATCH_SERVER_ENVIRONMENT")
		os.Unsetenv("HORECAWATCH_DATABASE_URL")
		os.Unsetenv("HORECAWATCH_CACHE_TYPE")
		os.Unsetenv("HORECAWATCH_CACHE_REDIS_ADDR")
		os.Unsetenv("HORECAWATCH_CACHE_TTL")
		os.Unsetenv("HORECAWATCH_MATCHING_WORKERS")
		os.Unsetenv("HORECAWATCH_DETECTOR_PRICE_CHANGE_THRESHOLD")
		os.Unsetenv("HORECAWATCH_DETECTOR_LOOKBACK_DAYS")
		os.Unsetenv("HORECAWATCH_RATELIMIT_RPS")
		os.Unsetenv("HORECAWATCH_RATELIMIT_BURST")
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		// Check defaults
		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.Cache.TTL != time.Hour {
			t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
		}
		if cfg.Matching.Workers != 4 {
			t.Errorf("Matching.Workers = %d, want 4", cfg.Matching.Workers)
		}
		if cfg.Detector.PriceChangeThreshold != 5.0 {
			t.Errorf("Detector.PriceChangeThreshold = %v, want 5.0", cfg.Detector.PriceChangeThreshold)
		}
		if cfg.Detector.LookbackDays != 7 {
			t.Errorf("Detector.LookbackDays = %d, want 7", cfg.Detector.LookbackDays)
		}
		if cfg.RateLimit.Burst != 100 {
			t.Errorf("RateLimit.Burst = %d, want 100", cfg.RateLimit.Burst)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("HORECAWATCH_SERVER_PORT", "9090")
		os.Setenv("HORECAWATCH_SERVER_ENVIRONMENT", "production")
		os.Setenv("HORECAWATCH_DATABASE_URL", "postgres://test:test@db:5432/test")
		os.Setenv("HORECAWATCH_CACHE_TYPE", "redis")
		os.Setenv("HORECAWATCH_CACHE_REDIS_ADDR", "redis:6379")
		os.Setenv("HORECAWATCH_CACHE_TTL", "24h")
		os.Setenv("HORECAWATCH_MATCHING_WORKERS", "8")
		os.Setenv("HORECAWATCH_DETECTOR_PRICE_CHANGE_THRESHOLD", "3.5")
		defer cleanupEnv()

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
		if cfg.Database.URL != "postgres://test:test@db:5432/test" {
			t.Errorf("Database.URL = %s, want postgres://test:test@db:5432/test", cfg.Database.URL)
		}
		if cfg.Cache.Type != "redis" {
			t.Errorf("Cache.Type = %s, want redis", cfg.Cache.Type)
		}
		if cfg.Cache.RedisAddr != "redis:6379" {
			t.Errorf("Cache.RedisAddr = %s, want redis:6379", cfg.Cache.RedisAddr)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.Matching.Workers != 8 {
			t.Errorf("Matching.Workers = %d, want 8", cfg.Matching.Workers)
		}
		if cfg.Detector.PriceChangeThreshold != 3.5 {
			t.Errorf("Detector.PriceChangeThreshold = %v, want 3.5", cfg.Detector.PriceChangeThreshold)
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("HORECAWATCH_CACHE_TYPE", "invalid")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for invalid cache type")
		}
	})

	t.Run("fails validation for zero workers", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("HORECAWATCH_MATCHING_WORKERS", "0")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for zero workers")
		}
	})

	t.Run("fails validation for negative threshold", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("HORECAWATCH_DETECTOR_PRICE_CHANGE_THRESHOLD", "-1")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for negative threshold")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		// Save current directory
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		// Create temp directory
		tempDir := t.TempDir()
		os.Chdir(tempDir)

		err := loadEnvFile()
		if err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables from .env file", func(t *testing.T) {
		// Save current directory
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		// Create temp directory
		tempDir := t.TempDir()
		os.Chdir(tempDir)

		// Create .env file
		envContent := `
# Comment line
TEST_ENV_VAR_1=value1
TEST_ENV_VAR_2=value2

# Another comment
TEST_ENV_VAR_3=value3
`
		err := os.WriteFile(".env", []byte(envContent), 0644)
		if err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		// Clear any existing values
		os.Unsetenv("TEST_ENV_VAR_1")
		os.Unsetenv("TEST_ENV_VAR_2")
		os.Unsetenv("TEST_ENV_VAR_3")

		err = loadEnvFile()
		if err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_ENV_VAR_1") != "value1" {
			t.Errorf("TEST_ENV_VAR_1 = %s, want value1", os.Getenv("TEST_ENV_VAR_1"))
		}
		if os.Getenv("TEST_ENV_VAR_2") != "value2" {
			t.Errorf("TEST_ENV_VAR_2 = %s, want value2", os.Getenv("TEST_ENV_VAR_2"))
		}
		if os.Getenv("TEST_ENV_VAR_3") != "value3" {
			t.Errorf("TEST_ENV_VAR_3 = %s, want value3", os.Getenv("TEST_ENV_VAR_3"))
		}

		os.Unsetenv("TEST_ENV_VAR_1")
		os.Unsetenv("TEST_ENV_VAR_2")
		os.Unsetenv("TEST_ENV_VAR_3")
	})

	t.Run("existing environment variables are not overwritten", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		err := os.WriteFile(".env", []byte("TEST_ENV_KEEP=from_file\n"), 0644)
		if err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		os.Setenv("TEST_ENV_KEEP", "from_env")
		defer os.Unsetenv("TEST_ENV_KEEP")

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_ENV_KEEP") != "from_env" {
			t.Errorf("TEST_ENV_KEEP = %s, want from_env", os.Getenv("TEST_ENV_KEEP"))
		}
	})
}

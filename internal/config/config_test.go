package config

import (
	"os"
	"strings"
	"testing"
)

// WithEnv is a test helper that sets environment variables for the duration of a test
func WithEnv(t *testing.T, key, value string) {
	t.Helper()
	original := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if original == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, original)
		}
	})
}

func TestConfig_Load_ValidConfig(t *testing.T) {
	WithEnv(t, "DATABASE_URL", "postgres://localhost/test")
	WithEnv(t, "CLOSE_API_KEY", "api_abc123")
	WithEnv(t, "APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Database.URL != "postgres://localhost/test" {
		t.Errorf("Expected DATABASE_URL=postgres://localhost/test, got %s", cfg.Database.URL)
	}

	if cfg.Close.APIKey != "api_abc123" {
		t.Errorf("Expected CLOSE_API_KEY=api_abc123, got %s", cfg.Close.APIKey)
	}

	if cfg.Logger.Environment != "development" {
		t.Errorf("Expected APP_ENV=development, got %s", cfg.Logger.Environment)
	}
}

func TestConfig_Load_Defaults(t *testing.T) {
	// Only set required fields
	WithEnv(t, "DATABASE_URL", "postgres://localhost/test")
	WithEnv(t, "CLOSE_API_KEY", "api_abc123")
	WithEnv(t, "APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Database.MigrationsPath != DefaultMigrationsPath {
		t.Errorf("Expected default migrations path %q, got %q", DefaultMigrationsPath, cfg.Database.MigrationsPath)
	}

	if cfg.Server.Host != DefaultServerHost {
		t.Errorf("Expected default server host %q, got %q", DefaultServerHost, cfg.Server.Host)
	}

	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Expected default server port %d, got %d", DefaultServerPort, cfg.Server.Port)
	}

	if cfg.Close.BaseURL != DefaultCloseBaseURL {
		t.Errorf("Expected default Close base URL %q, got %q", DefaultCloseBaseURL, cfg.Close.BaseURL)
	}

	if cfg.Close.Timeout != DefaultCloseTimeout {
		t.Errorf("Expected default Close timeout %v, got %v", DefaultCloseTimeout, cfg.Close.Timeout)
	}

	if cfg.Sync.WindowDays != DefaultSyncWindowDays {
		t.Errorf("Expected default sync window %d, got %d", DefaultSyncWindowDays, cfg.Sync.WindowDays)
	}

	if cfg.Sync.PageLimit != DefaultSyncPageLimit {
		t.Errorf("Expected default page limit %d, got %d", DefaultSyncPageLimit, cfg.Sync.PageLimit)
	}
}

func TestConfig_Validate_MissingDatabaseURL(t *testing.T) {
	WithEnv(t, "CLOSE_API_KEY", "api_abc123")
	WithEnv(t, "APP_ENV", "development")
	// Don't set DATABASE_URL
	WithEnv(t, "DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected error when DATABASE_URL is missing")
	}

	if verr, ok := err.(ValidationErrors); ok {
		found := false
		for _, e := range verr {
			if e.Field == "DATABASE_URL" {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected validation error for DATABASE_URL, got: %v", verr)
		}
	} else {
		t.Errorf("Expected ValidationErrors, got %T", err)
	}
}

func TestConfig_Validate_MissingCloseAPIKey(t *testing.T) {
	WithEnv(t, "DATABASE_URL", "postgres://localhost/test")
	WithEnv(t, "APP_ENV", "development")
	WithEnv(t, "CLOSE_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected error when CLOSE_API_KEY is missing")
	}

	if !strings.Contains(err.Error(), "CLOSE_API_KEY") {
		t.Errorf("Expected error to mention CLOSE_API_KEY, got: %v", err)
	}
}

func TestConfig_Validate_InvalidLogLevel(t *testing.T) {
	WithEnv(t, "DATABASE_URL", "postgres://localhost/test")
	WithEnv(t, "CLOSE_API_KEY", "api_abc123")
	WithEnv(t, "APP_ENV", "development")
	WithEnv(t, "LOG_LEVEL", "verbose")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected error for invalid log level")
	}

	if !strings.Contains(err.Error(), "LOG_LEVEL") {
		t.Errorf("Expected error to mention LOG_LEVEL, got: %v", err)
	}
}

func TestConfig_Validate_InvalidSyncTuning(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		field string
	}{
		{"negative window", "SYNC_WINDOW_DAYS", "-5", "SYNC_WINDOW_DAYS"},
		{"zero page limit", "SYNC_PAGE_LIMIT", "0", "SYNC_PAGE_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			WithEnv(t, "DATABASE_URL", "postgres://localhost/test")
			WithEnv(t, "CLOSE_API_KEY", "api_abc123")
			WithEnv(t, "APP_ENV", "development")
			WithEnv(t, tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Expected error to mention %s, got: %v", tt.field, err)
			}
		})
	}
}

func TestConfig_GetBindAddress(t *testing.T) {
	cfg := TestConfig()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 9090

	if got := cfg.GetBindAddress(); got != "0.0.0.0:9090" {
		t.Errorf("Expected bind address 0.0.0.0:9090, got %s", got)
	}
}

func TestConfig_EnvironmentHelpers(t *testing.T) {
	cfg := TestConfig()

	cfg.Logger.Environment = "production"
	if !cfg.IsProduction() || cfg.IsDevelopment() {
		t.Error("Expected production environment")
	}

	cfg.Logger.Environment = "development"
	if cfg.IsProduction() || !cfg.IsDevelopment() {
		t.Error("Expected development environment")
	}
}

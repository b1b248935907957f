package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv blanks every variable Load reads, restored when the test ends
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range GetEnvVars() {
		t.Setenv(name, "")
	}
}

func TestLoadValidConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8002")
	t.Setenv("ADDRESS", "127.0.0.1")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CATALOG_PATH", "/srv/mfds.csv")
	t.Setenv("MATCH_WORKERS", "4")
	t.Setenv("GENERIC_COUNT_BASIS", "base_form")
	t.Setenv("REVIEW_THRESHOLD", "0.8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" {
		t.Errorf("Expected port 8002, got %s", cfg.Port)
	}
	if cfg.Env != EnvProduction {
		t.Errorf("Expected env prod, got %s", cfg.Env)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.LogLevel)
	}
	if cfg.CatalogPath != "/srv/mfds.csv" {
		t.Errorf("Expected catalog path, got %s", cfg.CatalogPath)
	}
	if cfg.MatchWorkers != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.MatchWorkers)
	}
	if cfg.Match.GenericCountBasis != "base_form" || cfg.Match.ReviewThreshold != 0.8 {
		t.Errorf("Expected match options from env, got %+v", cfg.Match)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected default address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected default env dev, got %s", cfg.Env)
	}
	if cfg.MaxRequestBody != 10485760 || cfg.MaxHeaderSize != 1048576 {
		t.Errorf("Expected default size limits, got body %d and headers %d", cfg.MaxRequestBody, cfg.MaxHeaderSize)
	}
	if cfg.ReloadTimes != "06:00;18:00" {
		t.Errorf("Expected default reload times, got %s", cfg.ReloadTimes)
	}
	if cfg.Match != DefaultMatchOptions() {
		t.Errorf("Expected default match options, got %+v", cfg.Match)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	testCases := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{"port not a number", "PORT", "abc", "PORT must be a valid number"},
		{"port out of range", "PORT", "65536", "PORT must be between 1 and 65535"},
		{"privileged port", "PORT", "80", "PORT 80 is privileged"},
		{"bad address", "ADDRESS", "invalid", "ADDRESS must be a valid IP address"},
		{"public address", "ADDRESS", "8.8.8.8", "is a public IP"},
		{"bad env", "ENV", "invalid", "ENV must be one of"},
		{"bad log level", "LOG_LEVEL", "invalid", "LOG_LEVEL must be one of"},
		{"retention too long", "LOG_RETENTION_WEEKS", "60", "max 52 weeks"},
		{"log file too small", "MAX_LOG_FILE_SIZE", "10", "too small"},
		{"negative body limit", "MAX_REQUEST_BODY", "-1", "MAX_REQUEST_BODY must be positive"},
		{"header limit too large", "MAX_HEADER_SIZE", "209715200", "MAX_HEADER_SIZE is too large"},
		{"catalog url without scheme", "CATALOG_URL", "mfds.go.kr/export.csv", "CATALOG_URL must be an http or https URL"},
		{"bad reload time", "RELOAD_TIMES", "06:00;25:99", "RELOAD_TIMES entries must be HH:MM"},
		{"too many workers", "MATCH_WORKERS", "1000", "MATCH_WORKERS"},
		{"bad basis", "GENERIC_COUNT_BASIS", "form", "GENERIC_COUNT_BASIS"},
		{"bad definition", "GENERIC_DEFINITION", "all", "GENERIC_DEFINITION"},
		{"bad cancel filter", "CANCEL_FILTER", "none", "CANCEL_FILTER"},
		{"threshold above one", "REVIEW_THRESHOLD", "1.5", "REVIEW_THRESHOLD"},
		{"threshold not a number", "REVIEW_THRESHOLD", "high", "REVIEW_THRESHOLD"},
		{"threshold NaN", "REVIEW_THRESHOLD", "NaN", "REVIEW_THRESHOLD"},
		{"threshold infinite", "REVIEW_THRESHOLD", "+Inf", "REVIEW_THRESHOLD"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error for %s=%s, got nil", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("Expected error containing %q, got %v", tc.expected, err)
			}
		})
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
		hasError bool
	}{
		{"dev", EnvDevelopment, false},
		{"development", EnvDevelopment, false},
		{"staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"Production", EnvProduction, false},
		{"test", EnvTest, false},
		{"invalid", EnvDevelopment, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for %s, got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for %s: %v", tt.input, err)
			}
			if env != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, env)
			}
		})
	}
}

func TestEnvironmentString(t *testing.T) {
	tests := []struct {
		env      Environment
		expected string
	}{
		{EnvDevelopment, "dev"},
		{EnvStaging, "staging"},
		{EnvProduction, "prod"},
		{EnvTest, "test"},
	}

	for _, tt := range tests {
		if got := tt.env.String(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}

func TestLoadOptionsFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "options.yaml")
	content := "generic_count_basis: base_form\ncancel_filter: all\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write options file: %v", err)
	}

	opts, err := LoadOptionsFile(path, DefaultMatchOptions())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if opts.GenericCountBasis != "base_form" || opts.CancelFilter != "all" {
		t.Errorf("Expected values from file, got %+v", opts)
	}
	if opts.GenericDefinition != "excl_original" || opts.ReviewThreshold != 0.9 {
		t.Errorf("Expected unset keys to keep defaults, got %+v", opts)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("generic_definition: sometimes\n"), 0o644); err != nil {
		t.Fatalf("Failed to write options file: %v", err)
	}
	if _, err := LoadOptionsFile(bad, DefaultMatchOptions()); err == nil {
		t.Error("Expected error for invalid generic_definition")
	}

	nan := filepath.Join(dir, "nan.yaml")
	if err := os.WriteFile(nan, []byte("review_threshold: .nan\n"), 0o644); err != nil {
		t.Fatalf("Failed to write options file: %v", err)
	}
	if _, err := LoadOptionsFile(nan, DefaultMatchOptions()); err == nil || !strings.Contains(err.Error(), "REVIEW_THRESHOLD") {
		t.Errorf("Expected REVIEW_THRESHOLD error for NaN, got %v", err)
	}

	if _, err := LoadOptionsFile(filepath.Join(dir, "missing.yaml"), DefaultMatchOptions()); err == nil {
		t.Error("Expected error for missing file")
	}
}

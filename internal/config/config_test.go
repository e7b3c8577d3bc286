package config

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test database defaults
	if cfg.Database.Port != 3306 {
		t.Errorf("expected database port 3306, got %d", cfg.Database.Port)
	}
	if cfg.Database.TLS != "preferred" {
		t.Errorf("expected database TLS 'preferred', got %s", cfg.Database.TLS)
	}
	if cfg.Database.Connection != "default" {
		t.Errorf("expected connection 'default', got %s", cfg.Database.Connection)
	}

	// Test replica defaults
	if cfg.Replica.Enabled != false {
		t.Errorf("expected replica disabled by default")
	}

	// Test anonymize defaults
	if cfg.Anonymize.ChunkSize != 1000 {
		t.Errorf("expected chunk_size 1000, got %d", cfg.Anonymize.ChunkSize)
	}
	if cfg.Anonymize.Locale != "en_US" {
		t.Errorf("expected locale 'en_US', got %s", cfg.Anonymize.Locale)
	}
	if len(cfg.Anonymize.RestrictedEnv) != 2 ||
		cfg.Anonymize.RestrictedEnv[0] != "production" ||
		cfg.Anonymize.RestrictedEnv[1] != "staging" {
		t.Errorf("expected restricted_env [production staging], got %v", cfg.Anonymize.RestrictedEnv)
	}
	if cfg.Anonymize.AllowedDBConnectionsEnabled {
		t.Errorf("expected allowed_db_connections to be disabled by default")
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level 'info', got %s", cfg.Logging.Level)
	}
}

func TestDefaultRestrictedEnvReturnsFreshSlice(t *testing.T) {
	a := DefaultRestrictedEnv()
	a[0] = "mutated"

	if DefaultRestrictedEnv()[0] != "production" {
		t.Errorf("DefaultRestrictedEnv must not share its backing array")
	}
}

func TestResolveEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		override string
		config   string
		appEnv   string
		expected string
	}{
		{name: "override wins", override: "local", config: "production", appEnv: "staging", expected: "local"},
		{name: "config used", config: "staging", appEnv: "local", expected: "staging"},
		{name: "APP_ENV fallback", appEnv: "testing", expected: "testing"},
		{name: "unexpanded placeholder ignored", config: "${APP_ENV}", appEnv: "qa", expected: "qa"},
		{name: "fail safe default", expected: DefaultEnvironment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.appEnv)
			cfg := DefaultConfig()
			cfg.Environment = tt.config

			if got := cfg.ResolveEnvironment(tt.override); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()

	cfg.ApplyOverrides(Overrides{
		LogLevel:     "debug",
		ChunkSize:    250,
		SleepSeconds: 0.5,
		Locale:       "fr_FR",
		SkipLock:     true,
	})

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level override, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected log format untouched, got %s", cfg.Logging.Format)
	}
	if cfg.Anonymize.ChunkSize != 250 {
		t.Errorf("expected chunk size 250, got %d", cfg.Anonymize.ChunkSize)
	}
	if cfg.Anonymize.SleepSeconds != 0.5 {
		t.Errorf("expected sleep 0.5, got %f", cfg.Anonymize.SleepSeconds)
	}
	if cfg.Anonymize.Locale != "fr_FR" {
		t.Errorf("expected locale fr_FR, got %s", cfg.Anonymize.Locale)
	}
	if !cfg.Safety.SkipLock {
		t.Errorf("expected skip lock override")
	}
}

func TestApplyOverrides_ZeroValuesIgnored(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyOverrides(Overrides{})

	if cfg.Anonymize.ChunkSize != 1000 {
		t.Errorf("expected chunk size to stay 1000, got %d", cfg.Anonymize.ChunkSize)
	}
	if cfg.Safety.SkipLock {
		t.Errorf("expected skip lock to stay false")
	}
}

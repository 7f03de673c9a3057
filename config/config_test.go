package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestGet_Singleton(t *testing.T) {
	// Reset for clean test
	Reload()

	// Get config twice
	cfg1 := Get()
	cfg2 := Get()

	// Should be the same instance
	if cfg1 != cfg2 {
		t.Error("Get() should return the same instance (singleton pattern)")
	}
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		shouldPanic bool
	}{
		{
			name: "valid config",
			env: map[string]string{
				"SERVER_PORT": "8080",
				"ENV":         "development",
				"LOG_LEVEL":   "info",
			},
			shouldPanic: false,
		},
		{
			name: "invalid port",
			env: map[string]string{
				"SERVER_PORT": "invalid",
			},
			shouldPanic: true,
		},
		{
			name: "invalid environment",
			env: map[string]string{
				"ENV": "invalid",
			},
			shouldPanic: true,
		},
		{
			name: "invalid log level",
			env: map[string]string{
				"LOG_LEVEL": "loud",
			},
			shouldPanic: true,
		},
		{
			name: "too few minimum options",
			env: map[string]string{
				"POLL_MIN_OPTIONS": "1",
			},
			shouldPanic: true,
		},
		{
			name: "max options below min options",
			env: map[string]string{
				"POLL_MIN_OPTIONS": "4",
				"POLL_MAX_OPTIONS": "3",
			},
			shouldPanic: true,
		},
		{
			name: "default time limit above max",
			env: map[string]string{
				"POLL_DEFAULT_TIME_LIMIT": "20m",
				"POLL_MAX_TIME_LIMIT":     "10m",
			},
			shouldPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				os.Setenv(key, value)
			}
			defer func() {
				for key := range tt.env {
					os.Unsetenv(key)
				}
				Reload()
			}()

			defer func() {
				r := recover()
				if tt.shouldPanic && r == nil {
					t.Error("expected panic for invalid configuration")
				}
				if !tt.shouldPanic && r != nil {
					t.Errorf("unexpected panic: %v", r)
				}
			}()

			Reload()
			Get()
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	// Make sure nothing from other tests leaks in
	for _, key := range []string{
		"SERVER_HOST", "SERVER_PORT", "LOG_LEVEL", "ENV",
		"POLL_DEFAULT_TIME_LIMIT", "POLL_MIN_OPTIONS", "POLL_MAX_OPTIONS",
	} {
		os.Unsetenv(key)
	}
	Reload()

	cfg := Get()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if !strings.EqualFold(cfg.Logging.Level, "info") {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
	if cfg.Poll.DefaultTimeLimit != 60*time.Second {
		t.Errorf("expected default time limit 60s, got %s", cfg.Poll.DefaultTimeLimit)
	}
	if cfg.Poll.MinOptions != 2 || cfg.Poll.MaxOptions != 10 {
		t.Errorf("expected option bounds 2..10, got %d..%d", cfg.Poll.MinOptions, cfg.Poll.MaxOptions)
	}
}

func TestConfig_GetServerAddress(t *testing.T) {
	os.Setenv("SERVER_HOST", "0.0.0.0")
	os.Setenv("SERVER_PORT", "9090")
	defer func() {
		os.Unsetenv("SERVER_HOST")
		os.Unsetenv("SERVER_PORT")
		Reload()
	}()

	ForceReload()
	cfg := Get()

	if cfg.GetServerAddress() != "0.0.0.0:9090" {
		t.Errorf("expected 0.0.0.0:9090, got %s", cfg.GetServerAddress())
	}
}

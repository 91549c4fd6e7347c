package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("expected memory store, got %s", cfg.Store.Type)
	}
	if cfg.Repository.Driver != "sqlite" {
		t.Errorf("expected sqlite repository, got %s", cfg.Repository.Driver)
	}
	if cfg.EventBus.Type != "channel" {
		t.Errorf("expected channel bus, got %s", cfg.EventBus.Type)
	}
	if cfg.Engine.DetectorTimeout != 300*time.Millisecond {
		t.Errorf("expected 300ms detector timeout, got %s", cfg.Engine.DetectorTimeout)
	}
}

func TestLoadProductionProfile(t *testing.T) {
	t.Setenv("HARRIER_PROFILE", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Store.Type != "redis" {
		t.Errorf("expected redis store, got %s", cfg.Store.Type)
	}
	if cfg.Repository.Driver != "postgres" {
		t.Errorf("expected postgres repository, got %s", cfg.Repository.Driver)
	}
	if cfg.EventBus.Type != "nats" {
		t.Errorf("expected nats bus, got %s", cfg.EventBus.Type)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HARRIER_PORT", "9090")
	t.Setenv("HARRIER_LOG_LEVEL", "debug")
	t.Setenv("HARRIER_DETECTOR_TIMEOUT_MS", "200")
	t.Setenv("HARRIER_SQLITE_PATH", "/tmp/override.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug log level, got %s", cfg.Logging.Level)
	}
	if cfg.Engine.DetectorTimeout != 200*time.Millisecond {
		t.Errorf("expected 200ms detector timeout, got %s", cfg.Engine.DetectorTimeout)
	}
	if cfg.Repository.SQLitePath != "/tmp/override.db" {
		t.Errorf("expected override sqlite path, got %s", cfg.Repository.SQLitePath)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("HARRIER_PORT", "70000")

	if _, err := Load(); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("HARRIER_STORE", "etcd")

	if _, err := Load(); err == nil {
		t.Error("expected error for unknown store type")
	}
}

func TestLoadRejectsInvertedTimeouts(t *testing.T) {
	// Detector timeout above the whole-assessment timeout makes the
	// per-detector bound meaningless.
	t.Setenv("HARRIER_DETECTOR_TIMEOUT_MS", "2000")

	if _, err := Load(); err == nil {
		t.Error("expected error for detector timeout above assess timeout")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("HARRIER_TEST_STR", "custom")
	t.Setenv("HARRIER_TEST_INT", "42")
	t.Setenv("HARRIER_TEST_BAD_INT", "not-a-number")

	if got := getEnv("HARRIER_TEST_STR", "default"); got != "custom" {
		t.Errorf("expected custom, got %s", got)
	}
	if got := getEnv("HARRIER_TEST_MISSING", "default"); got != "default" {
		t.Errorf("expected default, got %s", got)
	}
	if got := getEnvInt("HARRIER_TEST_INT", 0); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := getEnvInt("HARRIER_TEST_BAD_INT", 7); got != 7 {
		t.Errorf("expected fallback 7, got %d", got)
	}
	if got := getEnvMillis("HARRIER_TEST_INT", time.Second); got != 42*time.Millisecond {
		t.Errorf("expected 42ms, got %s", got)
	}
}

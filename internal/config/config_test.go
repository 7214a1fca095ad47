package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerURL != "" {
		t.Errorf("expected empty server url, got %q", cfg.ServerURL)
	}
	if cfg.ProbeInterval != 30*time.Second {
		t.Errorf("unexpected probe interval: %v", cfg.ProbeInterval)
	}
	if cfg.TickInterval != 5*time.Minute {
		t.Errorf("unexpected tick interval: %v", cfg.TickInterval)
	}
	if cfg.DashboardPort != 8319 {
		t.Errorf("unexpected dashboard port: %d", cfg.DashboardPort)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := "server_url: https://sync.example.com\ntick_interval: 1m\ndashboard_port: 0\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerURL != "https://sync.example.com" {
		t.Errorf("unexpected server url: %q", cfg.ServerURL)
	}
	if cfg.TickInterval != time.Minute {
		t.Errorf("unexpected tick interval: %v", cfg.TickInterval)
	}
	if cfg.DashboardPort != 0 {
		t.Errorf("expected dashboard disabled, got port %d", cfg.DashboardPort)
	}
	// Unset keys keep their defaults.
	if cfg.ProbeInterval != 30*time.Second {
		t.Errorf("unexpected probe interval: %v", cfg.ProbeInterval)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("::: not yaml"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("POCKETBOOK_SERVER_URL", "https://env.example.com")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerURL != "https://env.example.com" {
		t.Errorf("env override ignored: %q", cfg.ServerURL)
	}
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteDefault(dir)
	if err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("unexpected config path: %s", path)
	}

	// The rendered file must load back to the defaults.
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ProbeInterval != Defaults().ProbeInterval {
		t.Errorf("round-tripped defaults differ: %v", cfg.ProbeInterval)
	}

	// A second write must refuse to clobber.
	if _, err := WriteDefault(dir); err == nil {
		t.Error("expected error overwriting existing config")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPPort != 8080 || cfg.HopLimit != 6 || cfg.FrameCeiling != 256 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.HopTimeout() != 2*time.Minute {
		t.Fatalf("unexpected hop timeout: %v", cfg.HopTimeout())
	}
	if cfg.MaxConcurrentRelays != 8 || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadMissingFileIsOK(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not fail: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http_port: 9090
hop_limit: 4
hop_timeout_ms: 30000
database_url: relay.db
endpoints:
  - label: A
    base_url: http://localhost:8001
    username: u
    password: p
  - label: B
    base_url: http://localhost:8002
    headers:
      X-Token: abc
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPPort != 9090 || cfg.HopLimit != 4 {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.HopTimeout() != 30*time.Second {
		t.Fatalf("unexpected hop timeout: %v", cfg.HopTimeout())
	}
	if len(cfg.Endpoints) != 2 || cfg.Endpoints[0].Username != "u" || cfg.Endpoints[1].Headers["X-Token"] != "abc" {
		t.Fatalf("endpoints not parsed: %+v", cfg.Endpoints)
	}
	// Unset fields keep their defaults.
	if cfg.FrameCeiling != 256 {
		t.Fatalf("default not preserved: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("HOP_LIMIT", "9")
	t.Setenv("ENDPOINT_A_URL", "http://a.local")
	t.Setenv("ENDPOINT_B_URL", "http://b.local")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPPort != 7070 || cfg.HopLimit != 9 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if len(cfg.Endpoints) != 2 || cfg.Endpoints[0].Label != "A" || cfg.Endpoints[1].BaseURL != "http://b.local" {
		t.Fatalf("env endpoints not applied: %+v", cfg.Endpoints)
	}
}

func TestLoadEnvOverridesYAMLEndpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
endpoints:
  - label: A
    base_url: http://old.local
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("ENDPOINT_A_URL", "http://new.local")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Endpoints) != 1 || cfg.Endpoints[0].BaseURL != "http://new.local" {
		t.Fatalf("env must override the matching endpoint: %+v", cfg.Endpoints)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:10000" {
		t.Fatalf("unexpected addr %s", cfg.Addr())
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 10000 {
		t.Fatalf("expected default port, got %d", cfg.Server.Port)
	}
	if _, err := Load(path, true); err == nil {
		t.Fatal("expected error for missing required file")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  host: 127.0.0.1
  port: 8081
  timeout: 5s
model:
  path: /srv/models/driver.json
log:
  format: console
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:8081" {
		t.Fatalf("unexpected addr %s", cfg.Addr())
	}
	if cfg.Server.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Server.Timeout)
	}
	if cfg.Model.Path != "/srv/models/driver.json" || cfg.Model.Type != "decision_tree" {
		t.Fatalf("unexpected model config %+v", cfg.Model)
	}
	if cfg.Cache.Size != 1024 {
		t.Fatalf("expected default cache size, got %d", cfg.Cache.Size)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	mutations := map[string]func(*Config){
		"port":   func(c *Config) { c.Server.Port = 70000 },
		"model":  func(c *Config) { c.Model.Type = "svm" },
		"path":   func(c *Config) { c.Model.Path = "" },
		"format": func(c *Config) { c.Log.Format = "xml" },
		"cache":  func(c *Config) { c.Cache.Size = -1 },
	}
	for name, mutate := range mutations {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("expected default host, got %q", cfg.Server.Host)
	}
}

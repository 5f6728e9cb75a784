package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.ListenAddr != "127.0.0.1:8590" {
		t.Errorf("unexpected default listen addr %q", cfg.ListenAddr)
	}
	if cfg.Sync.Interval.Std() != 15*time.Minute {
		t.Errorf("unexpected default interval %v", cfg.Sync.Interval.Std())
	}
	if cfg.Sync.RetentionHorizon.Std() != 7*24*time.Hour {
		t.Errorf("unexpected default retention horizon %v", cfg.Sync.RetentionHorizon.Std())
	}
}

// Load always validates, even with no config file: defaults carry no
// api.base_url, and an engine without a remote should fail at startup
// rather than run permanently offline.
func TestLoadEmptyPathRequiresBaseURL(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("expected error: defaults have no api.base_url")
	}
}

func TestLoadOverridesAndKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.example.com
  auth_token: tok-1
sync:
  interval: 5m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != "https://api.example.com" {
		t.Errorf("base_url not loaded: %q", cfg.API.BaseURL)
	}
	if cfg.Sync.Interval.Std() != 5*time.Minute {
		t.Errorf("interval override lost: %v", cfg.Sync.Interval.Std())
	}
	// Unset fields keep their defaults.
	if cfg.Sync.RunTimeout.Std() != 5*time.Minute {
		t.Errorf("run_timeout default lost: %v", cfg.Sync.RunTimeout.Std())
	}
	if cfg.API.Timeout.Std() != 15*time.Second {
		t.Errorf("api timeout default lost: %v", cfg.API.Timeout.Std())
	}
}

func TestLoadRejectsMissingBaseURL(t *testing.T) {
	path := writeConfig(t, `
sync:
  interval: 5m
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for missing api.base_url")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.example.com
sync:
  interval: soon
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestLoadRejectsNegativeInterval(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.example.com
sync:
  interval: -5m
`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for negative interval")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

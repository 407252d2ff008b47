package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/convocore/convocore/internal/config"
)

func TestLoadDefaultsWithEnv(t *testing.T) {
	t.Setenv("CONVOCORE_GEMINI_API_KEY", "test-key")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load with explicit missing file succeeded, want error")
	}

	// No explicit path: a missing config.yaml is fine, defaults plus env
	// carry the configuration.
	cfg, err = config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Gemini.APIKey != "test-key" {
		t.Errorf("gemini api key = %q, want %q", cfg.Gemini.APIKey, "test-key")
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("log defaults = (%q, %q), want (info, json)", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("http addr default = %q, want :8080", cfg.HTTP.Addr)
	}
	if cfg.HTTP.RequestTimeout != 2*time.Minute {
		t.Errorf("request timeout default = %v, want 2m", cfg.HTTP.RequestTimeout)
	}
	if cfg.Database.Path != "convocore.db" {
		t.Errorf("database path default = %q, want convocore.db", cfg.Database.Path)
	}
	if !cfg.Scheduler.MaintenanceEnabled {
		t.Error("maintenance not enabled by default")
	}
	if cfg.Telegram.Token != "" {
		t.Errorf("telegram token default = %q, want empty", cfg.Telegram.Token)
	}
}

func TestLoadMissingAPIKeyFails(t *testing.T) {
	t.Setenv("CONVOCORE_GEMINI_API_KEY", "")

	if _, err := config.Load(""); err == nil {
		t.Fatal("Load without gemini api key succeeded, want validation error")
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("CONVOCORE_GEMINI_API_KEY", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
log:
  level: debug
  format: text
http:
  addr: ":9090"
gemini:
  api_key: file-key
  model: gemini-2.0-flash
telegram:
  token: bot-token
cache:
  redis_addr: localhost:6379
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log = (%q, %q), want (debug, text)", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("http addr = %q, want :9090", cfg.HTTP.Addr)
	}
	if cfg.Gemini.APIKey != "file-key" {
		t.Errorf("gemini api key = %q, want file-key", cfg.Gemini.APIKey)
	}
	if cfg.Telegram.Token != "bot-token" {
		t.Errorf("telegram token = %q, want bot-token", cfg.Telegram.Token)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr = %q, want localhost:6379", cfg.Cache.RedisAddr)
	}
}

func TestLoadRejectsBadLevel(t *testing.T) {
	t.Setenv("CONVOCORE_GEMINI_API_KEY", "test-key")
	t.Setenv("CONVOCORE_LOG_LEVEL", "loud")

	if _, err := config.Load(""); err == nil {
		t.Fatal("Load with invalid log level succeeded, want validation error")
	}
}

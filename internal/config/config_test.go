package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Engine.MaxDepth != 5 {
		t.Errorf("MaxDepth = %d, want 5", cfg.Engine.MaxDepth)
	}
	if cfg.Engine.MaxEvalRetries != 3 {
		t.Errorf("MaxEvalRetries = %d, want 3", cfg.Engine.MaxEvalRetries)
	}
	if cfg.Retry.BreakerThreshold != 5 {
		t.Errorf("BreakerThreshold = %d, want 5", cfg.Retry.BreakerThreshold)
	}
	if cfg.Anthropic.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want 4096", cfg.Anthropic.MaxTokens)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
anthropic:
  model: test-model
  max_tokens: 1024
engine:
  max_depth: 7
retry:
  breaker_threshold: 2
tui:
  enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Anthropic.Model != "test-model" {
		t.Errorf("Model = %q, want test-model", cfg.Anthropic.Model)
	}
	if cfg.Anthropic.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want 1024", cfg.Anthropic.MaxTokens)
	}
	if cfg.Engine.MaxDepth != 7 {
		t.Errorf("MaxDepth = %d, want 7", cfg.Engine.MaxDepth)
	}
	if cfg.Retry.BreakerThreshold != 2 {
		t.Errorf("BreakerThreshold = %d, want 2", cfg.Retry.BreakerThreshold)
	}
	if !cfg.TUI.Enabled {
		t.Error("TUI.Enabled = false, want true")
	}
	// Unset keys keep their defaults.
	if cfg.Engine.MaxEvalRetries != 3 {
		t.Errorf("MaxEvalRetries = %d, want default 3", cfg.Engine.MaxEvalRetries)
	}
}

func TestLoadFromPathExpandsEnv(t *testing.T) {
	t.Setenv("LATTICE_TEST_KEY", "sk-test-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "anthropic:\n  api_key: ${LATTICE_TEST_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-test-123" {
		t.Errorf("APIKey = %q, want expanded value", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestUserConfigDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	got := getUserConfigDir()
	want := filepath.Join("/tmp/xdg-test", "lattice")
	if got != want {
		t.Errorf("getUserConfigDir = %q, want %q", got, want)
	}
}

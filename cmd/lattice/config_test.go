package main

import (
	"strings"
	"testing"

	"github.com/ShayCichocki/lattice/internal/config"
)

func TestSetConfigValueRoundTrip(t *testing.T) {
	cfg := config.Default()

	cases := []struct {
		key   string
		value string
		want  string
	}{
		{"anthropic.model", "claude-test", "claude-test"},
		{"anthropic.max_tokens", "2048", "2048"},
		{"engine.max_depth", "3", "3"},
		{"engine.debug_log", "true", "true"},
		{"retry.breaker_threshold", "9", "9"},
		{"tui.enabled", "true", "true"},
	}
	for _, tc := range cases {
		if err := setConfigValue(cfg, tc.key, tc.value); err != nil {
			t.Fatalf("setConfigValue(%s): %v", tc.key, err)
		}
		got, err := getConfigValue(cfg, tc.key)
		if err != nil {
			t.Fatalf("getConfigValue(%s): %v", tc.key, err)
		}
		if got != tc.want {
			t.Errorf("%s = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestSetConfigValueRejectsBadInput(t *testing.T) {
	cfg := config.Default()

	if err := setConfigValue(cfg, "engine.max_depth", "not-a-number"); err == nil {
		t.Error("expected error for non-integer max_depth")
	}
	if err := setConfigValue(cfg, "engine.max_depth", "0"); err == nil {
		t.Error("expected error for zero max_depth")
	}
	if err := setConfigValue(cfg, "nonsense.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestGetConfigValueMasksAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.Anthropic.APIKey = "sk-secret"

	got, err := getConfigValue(cfg, "anthropic.api_key")
	if err != nil {
		t.Fatalf("getConfigValue: %v", err)
	}
	if strings.Contains(got, "secret") {
		t.Errorf("api key leaked: %q", got)
	}
}

func TestJoinArgs(t *testing.T) {
	if got := joinArgs([]string{"calculate", "2", "+", "2"}); got != "calculate 2 + 2" {
		t.Errorf("joinArgs = %q", got)
	}
	if got := joinArgs([]string{"single"}); got != "single" {
		t.Errorf("joinArgs = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  short  ", 20); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	long := strings.Repeat("x", 30)
	if got := truncate(long, 10); got != strings.Repeat("x", 10)+"..." {
		t.Errorf("truncate = %q", got)
	}
}

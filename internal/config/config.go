// Package config handles configuration loading and management for lattice.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for lattice.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Retry     RetryConfig     `mapstructure:"retry"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// AnthropicConfig holds oracle API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// UseBedrock routes oracle calls through AWS Bedrock.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
	MaxTokens  int    `mapstructure:"max_tokens"`
}

// EngineConfig holds execution engine settings.
type EngineConfig struct {
	// MaxDepth is the hard decomposition depth ceiling.
	MaxDepth int `mapstructure:"max_depth"`
	// MaxEvalRetries bounds consecutive unparseable oracle decisions.
	MaxEvalRetries int `mapstructure:"max_eval_retries"`
	// EventBuffer is the emitter channel buffer size.
	EventBuffer int `mapstructure:"event_buffer"`
	// DebugLog enables the file-backed engine debug log.
	DebugLog bool `mapstructure:"debug_log"`
}

// RetryConfig holds retry subsystem settings.
type RetryConfig struct {
	// PoliciesFile is an optional YAML file overriding the per-error-type
	// policy table.
	PoliciesFile string `mapstructure:"policies_file"`
	// BreakerThreshold is the consecutive-failure count that opens a breaker.
	BreakerThreshold int `mapstructure:"breaker_threshold"`
	// BreakerCooldownSeconds is the open-state cooldown.
	BreakerCooldownSeconds int `mapstructure:"breaker_cooldown_seconds"`
}

// TUIConfig holds TUI display settings.
type TUIConfig struct {
	// Enabled turns the live run view on by default.
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (LATTICE_*, ANTHROPIC_API_KEY)
// 2. Project config (.lattice.yaml in current directory or parent)
// 3. User config (~/.config/lattice/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project config takes precedence over the user config
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("LATTICE")
	v.AutomaticEnv()

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY", "LATTICE_API_KEY")
	v.BindEnv("anthropic.model", "LATTICE_MODEL")
	v.BindEnv("anthropic.use_bedrock", "CLAUDE_CODE_USE_BEDROCK")
	v.BindEnv("engine.max_depth", "LATTICE_MAX_DEPTH")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.max_tokens", cfg.Anthropic.MaxTokens)
	v.Set("engine.max_depth", cfg.Engine.MaxDepth)
	v.Set("engine.max_eval_retries", cfg.Engine.MaxEvalRetries)
	v.Set("engine.event_buffer", cfg.Engine.EventBuffer)
	v.Set("engine.debug_log", cfg.Engine.DebugLog)
	v.Set("retry.policies_file", cfg.Retry.PoliciesFile)
	v.Set("retry.breaker_threshold", cfg.Retry.BreakerThreshold)
	v.Set("retry.breaker_cooldown_seconds", cfg.Retry.BreakerCooldownSeconds)
	v.Set("tui.enabled", cfg.TUI.Enabled)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.max_tokens", 4096)

	v.SetDefault("engine.max_depth", 5)
	v.SetDefault("engine.max_eval_retries", 3)
	v.SetDefault("engine.event_buffer", 256)
	v.SetDefault("engine.debug_log", false)

	v.SetDefault("retry.policies_file", "")
	v.SetDefault("retry.breaker_threshold", 5)
	v.SetDefault("retry.breaker_cooldown_seconds", 30)

	v.SetDefault("tui.enabled", false)
}

// getUserConfigDir returns the XDG config directory for lattice.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "lattice")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "lattice")
	}
	return filepath.Join(home, ".config", "lattice")
}

// findProjectConfig searches for .lattice.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".lattice.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			MaxTokens: 4096,
		},
		Engine: EngineConfig{
			MaxDepth:       5,
			MaxEvalRetries: 3,
			EventBuffer:    256,
		},
		Retry: RetryConfig{
			BreakerThreshold:       5,
			BreakerCooldownSeconds: 30,
		},
	}
}

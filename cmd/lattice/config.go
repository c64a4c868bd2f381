package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/lattice/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify lattice configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/lattice/config.yaml
Project-specific overrides can be placed in .lattice.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	// Mask API key if set
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("anthropic.max_tokens: %d\n", cfg.Anthropic.MaxTokens)
	fmt.Printf("engine.max_depth: %d\n", cfg.Engine.MaxDepth)
	fmt.Printf("engine.max_eval_retries: %d\n", cfg.Engine.MaxEvalRetries)
	fmt.Printf("engine.event_buffer: %d\n", cfg.Engine.EventBuffer)
	fmt.Printf("engine.debug_log: %t\n", cfg.Engine.DebugLog)
	fmt.Printf("retry.policies_file: %s\n", cfg.Retry.PoliciesFile)
	fmt.Printf("retry.breaker_threshold: %d\n", cfg.Retry.BreakerThreshold)
	fmt.Printf("retry.breaker_cooldown_seconds: %d\n", cfg.Retry.BreakerCooldownSeconds)
	fmt.Printf("tui.enabled: %t\n", cfg.TUI.Enabled)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
	fmt.Printf("Saved to %s\n", config.GetUserConfigPath())
}

// getConfigValue reads one config key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.max_tokens":
		return strconv.Itoa(cfg.Anthropic.MaxTokens), nil
	case "engine.max_depth":
		return strconv.Itoa(cfg.Engine.MaxDepth), nil
	case "engine.max_eval_retries":
		return strconv.Itoa(cfg.Engine.MaxEvalRetries), nil
	case "engine.event_buffer":
		return strconv.Itoa(cfg.Engine.EventBuffer), nil
	case "engine.debug_log":
		return strconv.FormatBool(cfg.Engine.DebugLog), nil
	case "retry.policies_file":
		return cfg.Retry.PoliciesFile, nil
	case "retry.breaker_threshold":
		return strconv.Itoa(cfg.Retry.BreakerThreshold), nil
	case "retry.breaker_cooldown_seconds":
		return strconv.Itoa(cfg.Retry.BreakerCooldownSeconds), nil
	case "tui.enabled":
		return strconv.FormatBool(cfg.TUI.Enabled), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// setConfigValue writes one config key, parsing the value per its type.
func setConfigValue(cfg *config.Config, key, value string) error {
	parseInt := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%s requires an integer, got %q", key, value)
		}
		return n, nil
	}
	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("%s requires a boolean, got %q", key, value)
		}
		return b, nil
	}

	switch key {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.max_tokens":
		n, err := parseInt()
		if err != nil {
			return err
		}
		cfg.Anthropic.MaxTokens = n
	case "engine.max_depth":
		n, err := parseInt()
		if err != nil {
			return err
		}
		if n < 1 {
			return fmt.Errorf("engine.max_depth must be at least 1")
		}
		cfg.Engine.MaxDepth = n
	case "engine.max_eval_retries":
		n, err := parseInt()
		if err != nil {
			return err
		}
		cfg.Engine.MaxEvalRetries = n
	case "engine.event_buffer":
		n, err := parseInt()
		if err != nil {
			return err
		}
		cfg.Engine.EventBuffer = n
	case "engine.debug_log":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.Engine.DebugLog = b
	case "retry.policies_file":
		cfg.Retry.PoliciesFile = value
	case "retry.breaker_threshold":
		n, err := parseInt()
		if err != nil {
			return err
		}
		cfg.Retry.BreakerThreshold = n
	case "retry.breaker_cooldown_seconds":
		n, err := parseInt()
		if err != nil {
			return err
		}
		cfg.Retry.BreakerCooldownSeconds = n
	case "tui.enabled":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.TUI.Enabled = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Package config handles configuration and session storage for novachat.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/marcos/novachat/internal/models"
)

// Environment variable overrides, loadable from a .env file.
const (
	EnvBaseURL = "NOVACHAT_BASE_URL"
	EnvSession = "NOVACHAT_SESSION"
)

// Config represents the user configuration
type Config struct {
	// BaseURL is the backend the client talks to.
	BaseURL string `json:"base_url"`
	// CopyToClipboard copies one-shot replies to the clipboard.
	CopyToClipboard bool `json:"copy_to_clipboard"`
	// KeepAlive keeps the session warm with a periodic identity probe.
	KeepAlive bool `json:"keep_alive"`
	// KeepAliveSeconds is the probe interval. Default is 540 (9 minutes).
	KeepAliveSeconds int `json:"keep_alive_seconds"`
	// MarkdownStyle is the glamour style for assistant messages.
	MarkdownStyle string `json:"markdown_style"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:          models.DefaultBaseURL,
		CopyToClipboard:  false,
		KeepAlive:        true,
		KeepAliveSeconds: 540,
		MarkdownStyle:    "dark",
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".novachat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the directory holds the session cookie
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads the configuration, falling back to defaults for a
// missing file, then applies environment overrides.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("invalid config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides layers .env and process environment on top of the
// file-based config. A missing .env file is not an error.
func applyEnvOverrides(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
}

// SaveConfig writes the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(configDir, "config.json")
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

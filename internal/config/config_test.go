package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marcos/novachat/internal/models"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BaseURL != models.DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, models.DefaultBaseURL)
	}
	if cfg.CopyToClipboard {
		t.Error("CopyToClipboard should default to false")
	}
	if !cfg.KeepAlive {
		t.Error("KeepAlive should default to true")
	}
	if cfg.KeepAliveSeconds != 540 {
		t.Errorf("KeepAliveSeconds = %d, want 540", cfg.KeepAliveSeconds)
	}
	if cfg.MarkdownStyle != "dark" {
		t.Errorf("MarkdownStyle = %q, want dark", cfg.MarkdownStyle)
	}
}

func TestLoadConfigMissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvBaseURL, "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("LoadConfig() = %+v, want defaults", cfg)
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvBaseURL, "")

	dir := filepath.Join(home, ".novachat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	body := `{"base_url":"https://staging.novachat.ai","keep_alive":false,"markdown_style":"light"}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.BaseURL != "https://staging.novachat.ai" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.KeepAlive {
		t.Error("KeepAlive should be false from the file")
	}
	if cfg.MarkdownStyle != "light" {
		t.Errorf("MarkdownStyle = %q, want light", cfg.MarkdownStyle)
	}
	// Fields the file omits keep their defaults.
	if cfg.KeepAliveSeconds != 540 {
		t.Errorf("KeepAliveSeconds = %d, want default 540", cfg.KeepAliveSeconds)
	}
}

func TestLoadConfigInvalidFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvBaseURL, "")

	dir := filepath.Join(home, ".novachat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func TestLoadConfigEnvOverridesBaseURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvBaseURL, "https://override.novachat.ai")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.BaseURL != "https://override.novachat.ai" {
		t.Errorf("BaseURL = %q, want env override", cfg.BaseURL)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvBaseURL, "")

	cfg := DefaultConfig()
	cfg.CopyToClipboard = true
	cfg.KeepAliveSeconds = 120

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded != cfg {
		t.Errorf("round trip mismatch: got %+v, want %+v", loaded, cfg)
	}
}

package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marcos/novachat/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Show or change settings",
	Long: `Show the current configuration, or set a value.

Keys:
  base_url       NovaChat server URL
  clipboard      Copy replies to the clipboard (true/false)
  keepalive      Keep the session alive in the background (true/false)
  style          Markdown style for replies (dark, light, notty)`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			printConfig(cfg)
			return nil
		}
		if len(args) == 1 {
			return fmt.Errorf("missing value for key %q", args[0])
		}

		if err := setConfigValue(&cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := config.SaveConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("Set %s = %s\n", args[0], args[1])
		return nil
	},
}

func printConfig(cfg config.Config) {
	path, _ := config.GetConfigPath()
	fmt.Printf("Configuration (%s)\n\n", path)
	fmt.Printf("  base_url   %s\n", cfg.BaseURL)
	fmt.Printf("  clipboard  %t\n", cfg.CopyToClipboard)
	fmt.Printf("  keepalive  %t (every %ds)\n", cfg.KeepAlive, cfg.KeepAliveSeconds)
	fmt.Printf("  style      %s\n", cfg.MarkdownStyle)
}

func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "base_url":
		cfg.BaseURL = value
	case "clipboard":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("clipboard wants true or false, got %q", value)
		}
		cfg.CopyToClipboard = b
	case "keepalive":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("keepalive wants true or false, got %q", value)
		}
		cfg.KeepAlive = b
	case "style":
		switch value {
		case "dark", "light", "notty":
			cfg.MarkdownStyle = value
		default:
			return fmt.Errorf("unknown style %q (dark, light, notty)", value)
		}
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration command handlers for treq.
//
// Command: config
// Short:   Show or change configuration
// Aliases: cfg
//
// Subcommands:
//   show (default)     Show the current configuration
//   get KEY            Print one value (e.g. api.url)
//   set KEY VALUE      Change a value and save
//   keys               List all settable keys
//   path               Print the config file location
//   reset              Restore defaults
//
// Examples:
//   treq config
//   treq config get api.url
//   treq config set api.url http://10.0.0.5:8000
//   treq config set ui.theme light
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/treq-tui/internal/config"
)

// =============================================================================
// CONFIG STYLES
// =============================================================================

var (
	configKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Light gray
			Width(20)

	configValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82")) // Green

	configPathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)
)

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return ""
	}
	return path
}

// =============================================================================
// HANDLE CONFIG
// =============================================================================

// HandleConfigCommand dispatches config subcommands.
func HandleConfigCommand(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return handleConfigShow(args.JSON)
	case "get":
		return handleConfigGet(args.ConfigKey)
	case "set":
		return handleConfigSet(args.ConfigKey, args.ConfigVal)
	case "keys":
		return handleConfigKeys()
	case "path":
		return handleConfigPath(args.JSON)
	case "reset":
		return handleConfigReset(args.Yes)
	default:
		return fmt.Errorf("unknown config subcommand: %s", args.Subcommand)
	}
}

// handleConfigShow displays the current configuration, grouped the way the
// TOML file is.
func handleConfigShow(jsonMode bool) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s (using defaults)\n", err)
		cfg = config.Default()
	}

	if jsonMode {
		return outputJSON(cfg)
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("treq configuration"))
	fmt.Println(SeparatorStyle.Render(strings.Repeat("─", 41)))
	fmt.Println()

	fmt.Println(SectionStyle.Render("[api]"))
	printConfigLine("url:", cfg.API.URL)
	printConfigLine("timeout_secs:", fmt.Sprintf("%d", cfg.API.TimeoutSecs))
	printConfigLine("max_retries:", fmt.Sprintf("%d", cfg.API.MaxRetries))
	fmt.Println()

	fmt.Println(SectionStyle.Render("[user]"))
	userID := cfg.User.ID
	if userID == "" {
		userID = getCurrentUserID() + " (from environment)"
	}
	printConfigLine("id:", userID)
	fmt.Println()

	fmt.Println(SectionStyle.Render("[chat]"))
	printConfigLine("stream:", fmt.Sprintf("%t", cfg.Chat.Stream))
	printConfigLine("visualization:", fmt.Sprintf("%t", cfg.Chat.Visualization))
	printConfigLine("save_history:", fmt.Sprintf("%t", cfg.Chat.SaveHistory))
	printConfigLine("max_conversations:", fmt.Sprintf("%d", cfg.Chat.MaxConversations))
	fmt.Println()

	fmt.Println(SectionStyle.Render("[audio]"))
	printConfigLine("enabled:", fmt.Sprintf("%t", cfg.Audio.Enabled))
	fmt.Println()

	fmt.Println(SectionStyle.Render("[ui]"))
	printConfigLine("theme:", cfg.UI.Theme)
	printConfigLine("compact_mode:", fmt.Sprintf("%t", cfg.UI.CompactMode))
	printConfigLine("show_sources:", fmt.Sprintf("%t", cfg.UI.ShowSources))
	printConfigLine("markdown:", fmt.Sprintf("%t", cfg.UI.Markdown))
	fmt.Println()

	fmt.Println(SeparatorStyle.Render(strings.Repeat("-", 41)))
	fmt.Printf("Config file: %s\n", configPathStyle.Render(ConfigPath()))
	fmt.Println()
	return nil
}

func printConfigLine(key, value string) {
	fmt.Printf("  %s%s\n", configKeyStyle.Render(key), configValueStyle.Render(value))
}

// handleConfigGet prints a single configuration value.
func handleConfigGet(key string) error {
	if key == "" {
		return ErrMissingArgument("key", "treq config get api.url")
	}
	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "loading configuration")
	}
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}
	fmt.Printf("%v\n", value)
	return nil
}

// handleConfigSet changes a configuration value and saves the file.
func handleConfigSet(key, value string) error {
	if key == "" {
		return ErrMissingArgument("key", "treq config set api.url http://localhost:8000")
	}
	if value == "" {
		return ErrMissingArgument("value", "treq config set api.url http://localhost:8000")
	}

	cfg, err := config.Load()
	if err != nil {
		// A broken file should not make recovery impossible
		fmt.Fprintf(os.Stderr, "Warning: %s (starting from defaults)\n", err)
		cfg = config.Default()
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return WrapError(err, "saving configuration")
	}

	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), key, value)
	return nil
}

// handleConfigKeys lists all settable keys.
func handleConfigKeys() error {
	for _, key := range config.GetAllKeys() {
		fmt.Println(key)
	}
	return nil
}

// handleConfigPath prints the config file location.
func handleConfigPath(jsonMode bool) error {
	path := ConfigPath()
	_, err := os.Stat(path)
	exists := !os.IsNotExist(err)

	if jsonMode {
		return outputJSON(map[string]interface{}{
			"path":   path,
			"exists": exists,
		})
	}

	fmt.Println(path)
	if !exists {
		fmt.Println(DimStyle.Render("(not created yet; run 'treq config set' to create it)"))
	}
	return nil
}

// handleConfigReset restores the default configuration.
func handleConfigReset(yes bool) error {
	if !yes {
		answer := promptInput("Reset configuration to defaults? [y/N] ")
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Println("Aborted.")
			return nil
		}
	}
	if err := config.Save(config.Default()); err != nil {
		return WrapError(err, "saving configuration")
	}
	fmt.Printf("%s configuration reset to defaults\n", SuccessStyle.Render("[OK]"))
	return nil
}

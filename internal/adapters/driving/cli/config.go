package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/levelshelf/levelshelf/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and set configuration values stored in the TOML config file.

Common keys:
  embedding.provider    ollama (default) or openai
  embedding.model       model name, e.g. nomic-embed-text
  embedding.base_url    provider base URL
  embedding.api_key     API key for openai
  embedding.dimensions  vector size override`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func ensureConfig() (*file.ConfigStore, error) {
	if cs, ok := configStore.(*file.ConfigStore); ok && cs != nil {
		return cs, nil
	}
	cs, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	configStore = cs
	return cs, nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := ensureConfig()
	if err != nil {
		return err
	}

	cmd.Printf("Config file: %s\n\n", cfg.Path())

	keys := []string{
		"embedding.provider",
		"embedding.model",
		"embedding.base_url",
		"embedding.api_key",
		"embedding.dimensions",
	}
	sort.Strings(keys)
	for _, key := range keys {
		val, ok := cfg.Get(key)
		if !ok {
			cmd.Printf("  %-22s (unset)\n", key)
			continue
		}
		if key == "embedding.api_key" {
			val = "***"
		}
		cmd.Printf("  %-22s %v\n", key, val)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, err := ensureConfig()
	if err != nil {
		return err
	}

	key, raw := args[0], args[1]

	// Store numbers and booleans with their natural TOML type.
	var value any = raw
	if n, err := strconv.Atoi(raw); err == nil {
		value = n
	} else if b, err := strconv.ParseBool(raw); err == nil {
		value = b
	}

	if err := cfg.Set(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	cmd.Printf("%s set\n", key)
	return nil
}

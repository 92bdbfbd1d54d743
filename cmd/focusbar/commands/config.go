package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/FocusBar/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage FocusBar configuration",
	Long:  `View and manage FocusBar configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current FocusBar configuration.`,
	Example: `  # Show configuration as YAML (default)
  focusbar config show

  # Show configuration as JSON
  focusbar config show --format json`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value.

Keys: ` + strings.Join(settableKeys, ", "),
	Example: `  # Set server port
  focusbar config set server_port 9090

  # Use the sway backend
  focusbar config set backend sway

  # Hide window icons
  focusbar config set focused.show_icon false`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Long:  `Get a specific configuration value. Nested keys use dots.`,
	Example: `  # Get server port
  focusbar config get server_port

  # Get icon size
  focusbar config get focused.icon_size`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var formatFlag string

var settableKeys = []string{
	"backend",
	"server_port",
	"log_level",
	"focused.show_icon",
	"focused.show_title",
	"focused.icon_size",
	"focused.icon_theme",
	"reconnect.enabled",
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configPathCmd)

	configShowCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "output format (yaml or json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	return writeConfig(cmd.OutOrStdout(), configMgr.Get(), formatFlag)
}

func writeConfig(out io.Writer, cfg *config.Config, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", format)
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := setConfigValue(configMgr, key, value); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Configuration updated: %s = %s\n", key, value)
	return nil
}

// setConfigValue parses value for key and applies it through the typed setter
func setConfigValue(configMgr *config.Manager, key, value string) error {
	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid boolean: %s (use: true or false)", value)
		}
		return b, nil
	}
	parseInt := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid number: %s", value)
		}
		return n, nil
	}

	switch key {
	case "backend":
		return configMgr.SetBackend(strings.ToLower(value))
	case "log_level":
		return configMgr.SetLogLevel(value)
	case "server_port":
		port, err := parseInt()
		if err != nil {
			return err
		}
		return configMgr.SetPort(port)
	case "focused.icon_size":
		size, err := parseInt()
		if err != nil {
			return err
		}
		return configMgr.SetIconSize(size)
	case "focused.icon_theme":
		return configMgr.SetIconTheme(value)
	case "focused.show_icon":
		show, err := parseBool()
		if err != nil {
			return err
		}
		return configMgr.SetShowIcon(show)
	case "focused.show_title":
		show, err := parseBool()
		if err != nil {
			return err
		}
		return configMgr.SetShowTitle(show)
	case "reconnect.enabled":
		enabled, err := parseBool()
		if err != nil {
			return err
		}
		return configMgr.SetReconnect(enabled)
	default:
		return fmt.Errorf("unknown configuration key: %s (use: %s)", key, strings.Join(settableKeys, ", "))
	}
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value, err := configValue(configMgr.Get(), args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

// configValue looks up a dotted key in the YAML form of cfg
func configValue(cfg *config.Config, key string) (any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}

	var node any = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("configuration key not found: %s", key)
		}
		if node, ok = m[part]; !ok {
			return nil, fmt.Errorf("configuration key not found: %s", key)
		}
	}
	return node, nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), configMgr.GetConfigPath())
	return nil
}

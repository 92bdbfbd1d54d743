package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/bryanchriswhite/FocusBar/internal/config"
	"github.com/bryanchriswhite/FocusBar/internal/logger"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "focusbar",
		Short: "FocusBar - focused window indicator for status bars",
		Long: `FocusBar follows the window manager's focus events and shows the
label and icon of the focused window.

Features:
  • Sway/i3 IPC, X11 (EWMH), GNOME Shell and KWin backends
  • One line per focus change for status bars (text or waybar JSON)
  • Icon lookup in freedesktop icon themes
  • REST + WebSocket API with a rendered PNG indicator
  • Persistent configuration`,
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/focusbar/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("backend", "", "window manager backend (auto, sway, x11, gnome, kwin)")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
}

func initConfig() {
	viper.SetEnvPrefix("FOCUSBAR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile == "" {
		cfgFile = os.Getenv("FOCUSBAR_CONFIG")
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// applyOverrides copies flag and environment values over the file config.
// The file itself is left untouched.
func applyOverrides(cfg *config.Config, v *viper.Viper) error {
	if v.IsSet("server_port") {
		if port := v.GetInt("server_port"); port > 0 {
			cfg.ServerPort = port
		}
	}
	if v.IsSet("log_level") {
		if level := v.GetString("log_level"); level != "" {
			cfg.LogLevel = strings.ToLower(level)
		}
	}
	if v.IsSet("backend") {
		if backend := v.GetString("backend"); backend != "" {
			cfg.Backend = strings.ToLower(backend)
		}
	}
	return cfg.Validate()
}

// loadConfig loads the config file, applies overrides and initializes logging
func loadConfig() (*config.Manager, *config.Config, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configMgr.Get()
	if err := applyOverrides(cfg, viper.GetViper()); err != nil {
		return nil, nil, fmt.Errorf("invalid flags: %w", err)
	}

	logger.Init(cfg.LogLevel, isatty.IsTerminal(os.Stderr.Fd()))
	return configMgr, cfg, nil
}

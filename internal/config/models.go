package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusBar/internal/logger"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// FocusedConfig controls what the indicator renders for the focused window
type FocusedConfig struct {
	ShowIcon  bool   `json:"show_icon" yaml:"show_icon"`
	ShowTitle bool   `json:"show_title" yaml:"show_title"`
	IconSize  int    `json:"icon_size" yaml:"icon_size"`
	IconTheme string `json:"icon_theme,omitempty" yaml:"icon_theme,omitempty"`
}

// ReconnectConfig controls re-subscribing after the window manager stream ends
type ReconnectConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	MinDelay time.Duration `json:"min_delay" yaml:"min_delay"`
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`
}

// GnomeConfig holds polling settings for the GNOME Shell backend, also used by kwin
type GnomeConfig struct {
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
}

// Config represents the application configuration
type Config struct {
	Backend    string          `json:"backend" yaml:"backend"`
	LogLevel   string          `json:"log_level" yaml:"log_level"`
	ServerPort int             `json:"server_port" yaml:"server_port"`
	Focused    FocusedConfig   `json:"focused" yaml:"focused"`
	Reconnect  ReconnectConfig `json:"reconnect" yaml:"reconnect"`
	Gnome      GnomeConfig     `json:"gnome" yaml:"gnome"`
}

// Valid option values
var (
	Backends  = []string{"auto", "sway", "x11", "gnome", "kwin"}
	LogLevels = []string{"trace", "debug", "info", "warn", "error"}
)

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs *multierror.Error

	if !contains(Backends, c.Backend) {
		errs = multierror.Append(errs, fmt.Errorf("invalid backend %q (use: %s)", c.Backend, strings.Join(Backends, ", ")))
	}
	if !contains(LogLevels, strings.ToLower(c.LogLevel)) {
		errs = multierror.Append(errs, fmt.Errorf("invalid log level %q (use: %s)", c.LogLevel, strings.Join(LogLevels, ", ")))
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		errs = multierror.Append(errs, fmt.Errorf("invalid server port %d", c.ServerPort))
	}
	if c.Focused.IconSize <= 0 || c.Focused.IconSize > 512 {
		errs = multierror.Append(errs, fmt.Errorf("invalid icon size %d (must be 1-512)", c.Focused.IconSize))
	}
	if c.Reconnect.Enabled {
		if c.Reconnect.MinDelay <= 0 {
			errs = multierror.Append(errs, fmt.Errorf("reconnect min_delay must be positive"))
		}
		if c.Reconnect.MaxDelay < c.Reconnect.MinDelay {
			errs = multierror.Append(errs, fmt.Errorf("reconnect max_delay %s is below min_delay %s", c.Reconnect.MaxDelay, c.Reconnect.MinDelay))
		}
	}
	if c.Gnome.PollInterval < 0 {
		errs = multierror.Append(errs, fmt.Errorf("gnome poll_interval must not be negative"))
	}

	return errs.ErrorOrNil()
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		Backend:    "auto",
		LogLevel:   "info",
		ServerPort: 8080,
		Focused: FocusedConfig{
			ShowIcon:  true,
			ShowTitle: true,
			IconSize:  32,
		},
		Reconnect: ReconnectConfig{
			Enabled:  false,
			MinDelay: time.Second,
			MaxDelay: 30 * time.Second,
		},
		Gnome: GnomeConfig{
			PollInterval: 250 * time.Millisecond,
		},
	}
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// DefaultConfigPath returns $HOME/.config/focusbar/config.yaml
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "focusbar", "config.yaml"), nil
}

// NewManager loads configFile (or the default path), creating it with defaults when missing
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = defaultPath
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Str("backend", m.config.Backend).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk. Keys missing from the file keep their defaults.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	cfg := m.Get()

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Saving config")

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Update validates and replaces the entire configuration
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	c := *cfg
	m.mu.Lock()
	m.config = &c
	m.mu.Unlock()
	return m.Save()
}

// modify applies fn to a copy of the configuration and keeps it if still valid
func (m *Manager) modify(fn func(cfg *Config)) error {
	cfg := m.Get()
	fn(cfg)
	return m.Update(cfg)
}

// SetBackend sets the window manager backend
func (m *Manager) SetBackend(backend string) error {
	return m.modify(func(cfg *Config) { cfg.Backend = backend })
}

// SetPort sets the server port
func (m *Manager) SetPort(port int) error {
	return m.modify(func(cfg *Config) { cfg.ServerPort = port })
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) error {
	return m.modify(func(cfg *Config) { cfg.LogLevel = strings.ToLower(level) })
}

// SetIconSize sets the icon size in pixels
func (m *Manager) SetIconSize(size int) error {
	return m.modify(func(cfg *Config) { cfg.Focused.IconSize = size })
}

// SetIconTheme sets the icon theme; empty selects the default search
func (m *Manager) SetIconTheme(theme string) error {
	return m.modify(func(cfg *Config) { cfg.Focused.IconTheme = theme })
}

// SetShowIcon toggles icon rendering
func (m *Manager) SetShowIcon(show bool) error {
	return m.modify(func(cfg *Config) { cfg.Focused.ShowIcon = show })
}

// SetShowTitle toggles label rendering
func (m *Manager) SetShowTitle(show bool) error {
	return m.modify(func(cfg *Config) { cfg.Focused.ShowTitle = show })
}

// SetReconnect enables or disables re-subscribing after the stream ends
func (m *Manager) SetReconnect(enabled bool) error {
	return m.modify(func(cfg *Config) { cfg.Reconnect.Enabled = enabled })
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

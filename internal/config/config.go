package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"docksight/internal/logger"
)

// Config holds the dock tracker settings plus the pinned launcher list that
// consumers cross-reference against running apps.
type Config struct {
	LogLevel     string        `mapstructure:"log_level" yaml:"log_level"`
	PrettyLogs   bool          `mapstructure:"pretty_logs" yaml:"pretty_logs"`
	ServerPort   int           `mapstructure:"server_port" yaml:"server_port"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	PinnedApps   []string      `mapstructure:"pinned_apps" yaml:"pinned_apps"`
}

// Manager loads, watches, and saves the configuration file.
type Manager struct {
	mu   sync.RWMutex
	v    *viper.Viper
	cfg  *Config
	path string
}

// NewManager loads configuration from configFile, or from the default
// location ($HOME/.config/docksight/config.yaml) when empty. A missing file
// is not an error; defaults apply. The file is watched for changes and
// reloaded in place.
func NewManager(configFile string) (*Manager, error) {
	v := viper.New()
	v.SetDefault("log_level", "info")
	v.SetDefault("pretty_logs", true)
	v.SetDefault("server_port", 8080)
	v.SetDefault("poll_interval", 2*time.Second)
	v.SetDefault("poll_timeout", 5*time.Second)
	v.SetDefault("pinned_apps", []string{})

	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		configFile = filepath.Join(home, ".config", "docksight", "config.yaml")
	}
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
		logger.WithComponent("config").Debug().Str("path", configFile).Msg("No config file, using defaults")
	}

	m := &Manager{v: v, path: configFile}
	if err := m.reload(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := m.reload(); err != nil {
			logger.WithComponent("config").Warn().Err(err).Msg("Config reload failed, keeping previous settings")
			return
		}
		logger.WithComponent("config").Info().Str("path", e.Name).Msg("Config reloaded")
	})
	v.WatchConfig()

	return m, nil
}

func (m *Manager) reload() error {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	m.mu.Lock()
	m.cfg = &cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.cfg
}

// Path returns the config file location.
func (m *Manager) Path() string {
	return m.path
}

// PinnedApps returns the pinned launcher commands.
func (m *Manager) PinnedApps() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.cfg.PinnedApps))
	copy(out, m.cfg.PinnedApps)
	return out
}

// IsPinned reports whether appID matches a pinned launcher, using the same
// bidirectional case-insensitive containment rule the registry uses for
// window lookups.
func (m *Manager) IsPinned(appID string) bool {
	key := strings.ToLower(appID)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, pinned := range m.cfg.PinnedApps {
		p := strings.ToLower(pinned)
		if p == key || strings.Contains(p, key) || strings.Contains(key, p) {
			return true
		}
	}
	return false
}

// SetServerPort overrides the API port for this process.
func (m *Manager) SetServerPort(port int) {
	m.mu.Lock()
	m.cfg.ServerPort = port
	m.mu.Unlock()
}

// SetLogLevel overrides the log level for this process.
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	m.cfg.LogLevel = level
	m.mu.Unlock()
}

// Save writes the current configuration back to disk, creating the parent
// directory if needed.
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := *m.cfg
	m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", m.path, err)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/nudgeproject/nudge/pkg/nudge/controller"
	"github.com/nudgeproject/nudge/pkg/nudge/logging"
	"github.com/nudgeproject/nudge/pkg/nudge/policy"
)

// ControllerConfig holds the learning and sampling parameters.
type ControllerConfig struct {
	Alpha    int64         `mapstructure:"alpha" yaml:"alpha"`
	Gamma    int64         `mapstructure:"gamma" yaml:"gamma"`
	Epsilon  int64         `mapstructure:"epsilon" yaml:"epsilon"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Step     int           `mapstructure:"step" yaml:"step"`
	Seed     int64         `mapstructure:"seed" yaml:"seed"`
	Exclude  []string      `mapstructure:"exclude" yaml:"exclude"`
}

// Runtime converts the configuration section into controller parameters.
func (c ControllerConfig) Runtime() controller.Config {
	return controller.Config{
		Alpha:    c.Alpha,
		Gamma:    c.Gamma,
		Epsilon:  c.Epsilon,
		Interval: c.Interval,
		Step:     c.Step,
		Seed:     c.Seed,
		Exclude:  c.Exclude,
	}
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" yaml:"level"`
	Path       string            `mapstructure:"path" yaml:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation" yaml:"rotation"`
	Components map[string]string `mapstructure:"components" yaml:"components"`
}

// Runtime converts the configuration section into logging parameters,
// parsing the humanized rotation size. An optional console level (used by
// the foreground run mode) can be supplied.
func (l LoggingConfig) Runtime(consoleLevel string) (logging.Config, error) {
	cfg := logging.Config{
		Level:        l.Level,
		Path:         l.Path,
		Components:   l.Components,
		ConsoleLevel: consoleLevel,
		Rotation: logging.RotationConfig{
			MaxAge:     l.Rotation.MaxAge,
			MaxBackups: l.Rotation.MaxBackups,
		},
	}
	if l.Rotation.MaxSize != "" {
		size, err := humanize.ParseBytes(l.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("parsing logging.rotation.max_size: %w", err)
		}
		cfg.Rotation.MaxSize = int64(size)
	}
	return cfg, nil
}

// DaemonConfig configures the background daemon.
type DaemonConfig struct {
	AutoStart  bool   `mapstructure:"auto_start" yaml:"auto_start"`
	BinaryPath string `mapstructure:"binary_path" yaml:"binary_path"` // path to nudged (auto-discovered if empty)
	SocketPath string `mapstructure:"socket_path" yaml:"socket_path"`
	PIDPath    string `mapstructure:"pid_path" yaml:"pid_path"`
}

// Config represents the application configuration.
type Config struct {
	Controller ControllerConfig `mapstructure:"controller" yaml:"controller"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Daemon     DaemonConfig     `mapstructure:"daemon" yaml:"daemon"`
}

// ErrInvalidConfig reports a configuration value outside its allowed range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks every field against its allowed range.
func (c *Config) Validate() error {
	if err := permille("controller.alpha", c.Controller.Alpha); err != nil {
		return err
	}
	if err := permille("controller.gamma", c.Controller.Gamma); err != nil {
		return err
	}
	if err := permille("controller.epsilon", c.Controller.Epsilon); err != nil {
		return err
	}

	if c.Controller.Interval < 10*time.Millisecond {
		return fmt.Errorf("%w: controller.interval must be at least 10ms, got %s", ErrInvalidConfig, c.Controller.Interval)
	}
	if c.Controller.Step < 1 {
		return fmt.Errorf("%w: controller.step must be at least 1, got %d", ErrInvalidConfig, c.Controller.Step)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	for comp, lvl := range c.Logging.Components {
		if _, err := logging.ParseLevel(lvl); err != nil {
			return fmt.Errorf("%w: logging.components.%s: %v", ErrInvalidConfig, comp, err)
		}
	}
	if c.Logging.Rotation.MaxSize != "" {
		if _, err := humanize.ParseBytes(c.Logging.Rotation.MaxSize); err != nil {
			return fmt.Errorf("%w: logging.rotation.max_size: %v", ErrInvalidConfig, err)
		}
	}

	return nil
}

func permille(name string, v int64) error {
	if v < 0 || v > policy.Permille {
		return fmt.Errorf("%w: %s must be in [0, %d], got %d", ErrInvalidConfig, name, policy.Permille, v)
	}
	return nil
}

// Load loads configuration from file and environment variables.
// With a non-empty path only that file is considered; otherwise the search
// order is:
//   - $XDG_CONFIG_HOME/nudge/config.yaml
//   - $HOME/.config/nudge/config.yaml
//
// Environment variables are prefixed with NUDGE_
// (e.g. NUDGE_CONTROLLER_EPSILON).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "nudge"))
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", "nudge"))
	}

	v.SetEnvPrefix("NUDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Controller defaults
	v.SetDefault("controller.alpha", DefaultAlpha)
	v.SetDefault("controller.gamma", DefaultGamma)
	v.SetDefault("controller.epsilon", DefaultEpsilon)
	v.SetDefault("controller.interval", DefaultInterval)
	v.SetDefault("controller.step", DefaultStep)
	v.SetDefault("controller.seed", 0)
	v.SetDefault("controller.exclude", []string{})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.components", map[string]string{
		"controller": "info",
		"daemon":     "info",
		"procs":      "warn",
	})

	// Daemon defaults
	v.SetDefault("daemon.auto_start", true)
	v.SetDefault("daemon.socket_path", "") // empty means use default XDG path
	v.SetDefault("daemon.pid_path", "")    // empty means use default XDG path

	if err := v.ReadInConfig(); err != nil {
		// An explicit file must exist; a missing search-path file just
		// means defaults.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Logging.Path, &cfg.Daemon.SocketPath, &cfg.Daemon.PIDPath, &cfg.Daemon.BinaryPath} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	return &cfg, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "nudge"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "nudge"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Nudge Configuration

# Learning and sampling parameters
controller:
  # Learning rate in parts per thousand
  alpha: %d
  # Discount factor in parts per thousand
  gamma: %d
  # Exploration probability in parts per thousand
  epsilon: %d
  # Pause between scan cycles
  interval: %s
  # Niceness points moved per adjustment
  step: %d
  # Randomness seed; 0 seeds from the OS entropy pool
  seed: 0
  # Process names the controller must never touch
  exclude: []

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/nudge/nudge.log)
  path: ""
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
  # Per-component log levels
  components:
    controller: info
    daemon: info
    procs: warn

# Daemon configuration
daemon:
  # Automatically start the daemon when commands need it
  auto_start: true
  # Unix socket path (empty means use default: $XDG_DATA_HOME/nudge/nudged.sock)
  socket_path: ""
  # PID file path (empty means use default: $XDG_DATA_HOME/nudge/nudged.pid)
  pid_path: ""
`, DefaultAlpha, DefaultGamma, DefaultEpsilon, DefaultInterval, DefaultStep)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/nudge/ for socket and pid files.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "nudge")
}

// StateDir returns $XDG_STATE_HOME/nudge/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "nudge")
}

// DefaultSocketPath returns the default Unix socket path.
func DefaultSocketPath() string {
	return filepath.Join(DataDir(), "nudged.sock")
}

// DefaultPIDPath returns the default PID file path.
func DefaultPIDPath() string {
	return filepath.Join(DataDir(), "nudged.pid")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "nudge.log")
}

// DefaultBinaryPath returns the nudged binary path from the standard Go
// binary locations (GOBIN > GOPATH/bin > $HOME/go/bin), or "" if none
// holds a nudged binary.
func DefaultBinaryPath() string {
	var dirs []string
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		dirs = append(dirs, gobin)
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		dirs = append(dirs, filepath.Join(gopath, "bin"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "go", "bin"))
	}

	for _, dir := range dirs {
		candidate := filepath.Join(dir, "nudged")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

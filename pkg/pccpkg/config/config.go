package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/logging"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/types"
)

// EnvPrefix prefixes environment overrides, e.g. PCCPKG_OUTPUT_DIR.
const EnvPrefix = "PCCPKG"

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level" yaml:"level"`
	Path         string            `mapstructure:"path" yaml:"path"`
	ConsoleLevel string            `mapstructure:"console_level" yaml:"console_level"`
	Rotation     RotationConfig    `mapstructure:"rotation" yaml:"rotation"`
	Components   map[string]string `mapstructure:"components" yaml:"components"`
}

// ArchiveConfig configures archive writing.
type ArchiveConfig struct {
	Exclude     []string `mapstructure:"exclude" yaml:"exclude"`
	Compression string   `mapstructure:"compression" yaml:"compression"`
	MaxSize     string   `mapstructure:"max_size" yaml:"max_size"`
}

// HistoryConfig configures the build history log.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir           string `mapstructure:"dir" yaml:"dir"`
	RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days"`
}

// CacheConfig configures the discovery cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// Config represents the application configuration.
type Config struct {
	WebRoots          []string      `mapstructure:"webroots" yaml:"webroots"`
	OutputDir         string        `mapstructure:"output_dir" yaml:"output_dir"`
	Format            string        `mapstructure:"format" yaml:"format"`
	ExportSchema      bool          `mapstructure:"export_schema" yaml:"export_schema"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval" yaml:"reconnect_interval"`
	Archive           ArchiveConfig `mapstructure:"archive" yaml:"archive"`
	History           HistoryConfig `mapstructure:"history" yaml:"history"`
	Cache             CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Watch             WatchConfig   `mapstructure:"watch" yaml:"watch"`
	Logging           LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// New returns a viper instance configured by Configure.
func New(file string) *viper.Viper {
	v := viper.New()
	Configure(v, file)
	return v
}

// Configure sets defaults, env binding and the config search path on v.
// file, when not empty, replaces the search path.
func Configure(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("webroots", []string{})
	v.SetDefault("output_dir", ".")
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("export_schema", false)
	v.SetDefault("reconnect_interval", DefaultReconnectInterval)

	v.SetDefault("archive.exclude", DefaultExclusions)
	v.SetDefault("archive.compression", DefaultCompression)
	v.SetDefault("archive.max_size", "")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.dir", filepath.Join(DataDir(), "history"))
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", filepath.Join(CacheDir(), "discovery"))

	v.SetDefault("watch.debounce", DefaultDebounce)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.console_level", "warn")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.components", map[string]string{
		"builder":      "info",
		"installation": "info",
		"watcher":      "warn",
	})
}

// Load reads the configuration. A missing config file is not an error;
// the defaults are used.
func Load(file string) (*Config, error) {
	return FromViper(New(file))
}

// FromViper reads v's config file when one is set and unmarshals it.
func FromViper(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.expand(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) expand() error {
	for _, p := range []*string{&c.OutputDir, &c.History.Dir, &c.Cache.Dir, &c.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	for i, root := range c.WebRoots {
		expanded, err := ExpandPath(root)
		if err != nil {
			return err
		}
		c.WebRoots[i] = expanded
	}
	return nil
}

// Validate checks values that cannot be checked by unmarshalling.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.ConsoleLevel != "" {
		if _, err := logging.ParseLevel(c.Logging.ConsoleLevel); err != nil {
			errs = append(errs, fmt.Errorf("logging.console_level: %w", err))
		}
	}
	if c.Logging.Rotation.MaxSize != "" {
		if _, err := types.ParseSize(c.Logging.Rotation.MaxSize); err != nil {
			errs = append(errs, fmt.Errorf("logging.rotation.max_size: %w", err))
		}
	}
	if c.Archive.MaxSize != "" {
		if _, err := types.ParseSize(c.Archive.MaxSize); err != nil {
			errs = append(errs, fmt.Errorf("archive.max_size: %w", err))
		}
	}
	switch strings.ToLower(c.Archive.Compression) {
	case "store", "deflate":
	default:
		errs = append(errs, fmt.Errorf("archive.compression: unknown method %q", c.Archive.Compression))
	}
	if c.History.RetentionDays < 0 {
		errs = append(errs, errors.New("history.retention_days cannot be negative"))
	}
	return errors.Join(errs...)
}

// LoggingConfig converts the logging section for logging.Init.
func (c *Config) LoggingConfig() logging.Config {
	rotation := logging.DefaultRotationConfig()
	if size, err := types.ParseSize(c.Logging.Rotation.MaxSize); err == nil && size > 0 {
		rotation.MaxSize = size
	}
	if c.Logging.Rotation.MaxBackups > 0 {
		rotation.MaxBackups = c.Logging.Rotation.MaxBackups
	}

	path := c.Logging.Path
	if path == "" {
		path = logging.DefaultLogPath()
	}

	return logging.Config{
		Level:        c.Logging.Level,
		Path:         path,
		Rotation:     rotation,
		Components:   c.Logging.Components,
		ConsoleLevel: c.Logging.ConsoleLevel,
	}
}

// ArchiveMaxSize returns archive.max_size in bytes, 0 when unset.
func (c *Config) ArchiveMaxSize() int64 {
	size, err := types.ParseSize(c.Archive.MaxSize)
	if err != nil {
		return 0
	}
	return size
}

// ConfigDir returns $XDG_CONFIG_HOME/pccpkg.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "pccpkg")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns $XDG_DATA_HOME/pccpkg for build history.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "pccpkg")
}

// CacheDir returns $XDG_CACHE_HOME/pccpkg for the discovery cache.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "pccpkg")
}

// WriteDefault writes the default config template to path. An existing
// file is left alone and reported through the returned bool.
func WriteDefault(path string) (bool, error) {
	if path == "" {
		path = ConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(DefaultTemplate()), 0o644); err != nil {
		return false, fmt.Errorf("failed to write default config: %w", err)
	}
	return true, nil
}

// DefaultTemplate returns the commented default configuration.
func DefaultTemplate() string {
	return fmt.Sprintf(`# pccpkg configuration

# Folders whose sub-directories hold site installations
webroots: []

# Where archives are written when no --output is given
output_dir: .

# Report format: pretty, plain, json, yaml, toml, paths, markdown
format: %s

# Export install/uninstall SQL for the component's tables
export_schema: false

# Reopen the file source when a section takes longer than this
reconnect_interval: %s

archive:
  # Glob patterns never added to an archive
  exclude:
    - .git
    - .svn
    - .DS_Store
  # store or deflate
  compression: %s
  # Warn when an archive is larger than this (e.g. 50MB); empty disables
  max_size: ""

history:
  enabled: true
  dir: %s
  retention_days: %d

cache:
  enabled: true
  dir: %s

watch:
  debounce: %s

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/pccpkg/pccpkg.log)
  path: ""
  console_level: warn
  rotation:
    max_size: 10MB
    max_backups: 5
  components:
    builder: info
    installation: info
    watcher: warn
`, DefaultFormat, DefaultReconnectInterval, DefaultCompression,
		filepath.Join(DataDir(), "history"), DefaultRetentionDays,
		filepath.Join(CacheDir(), "discovery"), DefaultDebounce)
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

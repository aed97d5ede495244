package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matsen/bibhub/internal/format"
)

// GlobalConfig represents configuration stored in ~/.config/bibhub/config.yml.
type GlobalConfig struct {
	LibraryPath string       `yaml:"library_path,omitempty"`
	Output      OutputConfig `yaml:"output,omitempty"`
	Server      ServerConfig `yaml:"server,omitempty"`
}

// OutputConfig holds generator defaults.
type OutputConfig struct {
	Indent     string `yaml:"indent,omitempty"`
	LineEnding string `yaml:"line_ending,omitempty"`
	Sort       bool   `yaml:"sort,omitempty"`
}

// ServerConfig holds settings for the HTTP conversion service.
type ServerConfig struct {
	Addr      string        `yaml:"addr,omitempty"`
	Rate      float64       `yaml:"rate,omitempty"`  // requests per second per client
	Burst     int           `yaml:"burst,omitempty"` // token bucket size
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	MaxBodyKB int64         `yaml:"max_body_kb,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "bibhub"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"

	// EnvLibrary overrides library_path.
	EnvLibrary = "BIBHUB_LIBRARY"
	// EnvAddr overrides server.addr.
	EnvAddr = "BIBHUB_ADDR"
	// EnvRate overrides server.rate.
	EnvRate = "BIBHUB_RATE"
)

// Server defaults, applied by ServerConfig.WithDefaults.
const (
	DefaultAddr      = ":8080"
	DefaultRate      = 10
	DefaultBurst     = 20
	DefaultTimeout   = 30 * time.Second
	DefaultMaxBodyKB = 10 * 1024
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/bibhub/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file and applies
// environment overrides. Returns an empty config (not an error) if the file
// doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	var cfg GlobalConfig
	if path := GlobalConfigPath(); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing global config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.LibraryPath != "" {
		cfg.LibraryPath = ExpandPath(cfg.LibraryPath)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

func (c *GlobalConfig) applyEnv() error {
	if v := os.Getenv(EnvLibrary); v != "" {
		c.LibraryPath = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvRate); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvRate, err)
		}
		c.Server.Rate = rate
	}
	return nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// Options returns generator options with the configured output defaults.
func (c *GlobalConfig) Options() format.Options {
	opts := format.DefaultOptions()
	if c == nil {
		return opts
	}
	if c.Output.Indent != "" {
		opts.Indent = c.Output.Indent
	}
	if le, ok := ValidLineEndings[c.Output.LineEnding]; ok {
		opts.LineEnding = le
	}
	opts.Sort = c.Output.Sort
	return opts
}

// WithDefaults fills unset server settings.
func (s ServerConfig) WithDefaults() ServerConfig {
	if s.Addr == "" {
		s.Addr = DefaultAddr
	}
	if s.Rate <= 0 {
		s.Rate = DefaultRate
	}
	if s.Burst <= 0 {
		s.Burst = DefaultBurst
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	if s.MaxBodyKB <= 0 {
		s.MaxBodyKB = DefaultMaxBodyKB
	}
	return s
}

// GetLibraryPath returns the configured library path from global config.
func GetLibraryPath() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.LibraryPath
}

// ErrLibraryPathNotConfigured is returned when library_path is not set in config.
var ErrLibraryPathNotConfigured = errors.New("library_path not configured")

// ErrLibraryPathNotExist is returned when the configured library_path doesn't exist.
var ErrLibraryPathNotExist = errors.New("library_path does not exist")

// ValidateLibraryPath returns the library path from global config after validation.
func ValidateLibraryPath() (string, error) {
	path := GetLibraryPath()
	if path == "" {
		return "", ErrLibraryPathNotConfigured
	}
	if !IsLibrary(path) {
		return "", fmt.Errorf("%w: %s", ErrLibraryPathNotExist, path)
	}
	return path, nil
}

// HelpfulConfigMessage returns a helpful message when no library is found.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No bibhub library found.

Tip: run 'bibhub init' in a directory, or create %s to set a default library:
  mkdir -p %s
  echo 'library_path: /path/to/your/library' > %s

The %s environment variable overrides library_path.`,
		configPath,
		filepath.Dir(configPath),
		configPath,
		EnvLibrary)
}

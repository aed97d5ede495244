// Package config handles library and global configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/bibhub/internal/format"
)

// Config represents library configuration stored in .bibhub/config.json.
type Config struct {
	ExportFormat string `json:"export_format,omitempty"` // Default target for export
	Sort         *bool  `json:"sort,omitempty"`          // Sort entries by id on output
	Indent       string `json:"indent,omitempty"`        // Field indentation
	LineEnding   string `json:"line_ending,omitempty"`   // "lf" or "crlf"
}

const (
	LibraryDir  = ".bibhub"
	ConfigFile  = "config.json"
	EntriesFile = "entries.jsonl"
	CacheDir    = "cache"
	DBFile      = "entries.db"
)

// ErrLibraryNotFound is returned when no .bibhub directory can be located.
var ErrLibraryNotFound = errors.New("not in a bibhub library (no .bibhub directory found)")

// ValidLineEndings lists the accepted line_ending values.
var ValidLineEndings = map[string]string{"lf": "\n", "crlf": "\r\n"}

// LibraryPath returns the path to the .bibhub directory from a root path.
func LibraryPath(root string) string {
	return filepath.Join(root, LibraryDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, LibraryDir, ConfigFile)
}

// EntriesPath returns the path to entries.jsonl from a root path.
func EntriesPath(root string) string {
	return filepath.Join(root, LibraryDir, EntriesFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, LibraryDir, CacheDir)
}

// DBPath returns the path to entries.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, LibraryDir, CacheDir, DBFile)
}

// IsLibrary checks if the given path contains a bibhub library.
func IsLibrary(root string) bool {
	info, err := os.Stat(LibraryPath(root))
	return err == nil && info.IsDir()
}

// FindLibrary walks up from the given path to find a bibhub library.
// Returns the library root path or ErrLibraryNotFound.
func FindLibrary(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsLibrary(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrLibraryNotFound
		}
		abs = parent
	}
}

// ResolveLibrary finds the library for a command run in start: the nearest
// enclosing library, else the library_path from global config (which
// BIBHUB_LIBRARY overrides).
func ResolveLibrary(start string) (string, error) {
	if root, err := FindLibrary(start); err == nil {
		return root, nil
	}

	cfg, err := LoadGlobalConfig()
	if err != nil {
		return "", err
	}
	if cfg.LibraryPath != "" && IsLibrary(cfg.LibraryPath) {
		return cfg.LibraryPath, nil
	}
	return "", ErrLibraryNotFound
}

// Load reads configuration from the library at the given root.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// Save writes configuration to the library at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Options layers the library's output settings over base.
func (c *Config) Options(base format.Options) format.Options {
	if c == nil {
		return base
	}
	if c.Sort != nil {
		base.Sort = *c.Sort
	}
	if c.Indent != "" {
		base.Indent = c.Indent
	}
	if le, ok := ValidLineEndings[c.LineEnding]; ok {
		base.LineEnding = le
	}
	return base
}

// ValidateExportFormat checks that the export format is a known format.
func ValidateExportFormat(name string) error {
	if name == "" {
		return nil // Empty means csl-json
	}
	_, err := format.ParseFormat(name)
	return err
}

// ValidateLineEnding checks that the line ending value is valid.
func ValidateLineEnding(value string) error {
	if value == "" {
		return nil
	}
	if _, ok := ValidLineEndings[value]; !ok {
		return fmt.Errorf("invalid line_ending: %s (valid: lf, crlf)", value)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}

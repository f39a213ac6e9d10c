// Package config loads simplethink's YAML configuration and manages
// installed vocabulary packs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Version is the release version reported by --version and /health
var Version = "0.1.0"

// EnvDir overrides the configuration directory
const EnvDir = "SIMPLETHINK_DIR"

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// BatchConfig bounds batch generation
type BatchConfig struct {
	RetryMultiple          int `yaml:"retry_multiple"`
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`
}

// APIConfig configures the HTTP server
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Config is the contents of config.yaml
type Config struct {
	LibraryDir      string      `yaml:"library_dir"`
	Store           string      `yaml:"store"`
	DatabasePath    string      `yaml:"database_path,omitempty"`
	VocabularyPath  string      `yaml:"vocabulary_path,omitempty"`
	Session         string      `yaml:"session"`
	LogLevel        string      `yaml:"log_level"`
	LogFormat       string      `yaml:"log_format"`
	StrategyLogging bool        `yaml:"strategy_logging"`
	Batch           BatchConfig `yaml:"batch"`
	API             APIConfig   `yaml:"api"`

	dir string
}

// Dir returns the configuration directory: $SIMPLETHINK_DIR or ~/.simplethink
func Dir() (string, error) {
	if dir := os.Getenv(EnvDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".simplethink"), nil
}

// Default returns the configuration used when no file exists
func Default(dir string) *Config {
	return &Config{
		LibraryDir: dir,
		Store:      StoreFile,
		Session:    "default",
		LogLevel:   "warn",
		LogFormat:  "console",
		Batch: BatchConfig{
			RetryMultiple:          5,
			MaxConsecutiveFailures: 25,
		},
		API: APIConfig{Host: "127.0.0.1", Port: 8080},
		dir: dir,
	}
}

// Load reads config.yaml from dir (Dir() when empty). A missing file yields
// the defaults; fields absent from the file keep their defaults.
func Load(dir string) (*Config, error) {
	if dir == "" {
		var err error
		if dir, err = Dir(); err != nil {
			return nil, err
		}
	}
	cfg := Default(dir)

	data, err := os.ReadFile(cfg.Path())
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", cfg.Path(), err)
	}
	cfg.dir = dir
	if cfg.LibraryDir == "" {
		cfg.LibraryDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the config file location
func (c *Config) Path() string {
	return filepath.Join(c.dir, "config.yaml")
}

// ConfigDir returns the directory the config was loaded from
func (c *Config) ConfigDir() string {
	return c.dir
}

// Save writes the configuration to config.yaml
func (c *Config) Save() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(c.Path(), data, 0644)
}

// Validate checks the fields with a closed set of values or a range
func (c *Config) Validate() error {
	var problems []string
	switch c.Store {
	case StoreFile, StoreSQLite:
	default:
		problems = append(problems, fmt.Sprintf("store must be %q or %q, got %q", StoreFile, StoreSQLite, c.Store))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("log_format must be json or console, got %q", c.LogFormat))
	}
	if strings.TrimSpace(c.Session) == "" {
		problems = append(problems, "session must not be empty")
	}
	if c.Batch.RetryMultiple < 1 {
		problems = append(problems, "batch.retry_multiple must be at least 1")
	}
	if c.Batch.MaxConsecutiveFailures < 1 {
		problems = append(problems, "batch.max_consecutive_failures must be at least 1")
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		problems = append(problems, fmt.Sprintf("api.port out of range: %d", c.API.Port))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DatabaseFile resolves the SQLite path; relative paths live in the library
func (c *Config) DatabaseFile() string {
	path := c.DatabasePath
	if path == "" {
		path = "simplethink.db"
	}
	if path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.LibraryDir, path)
}

// Addr returns host:port for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidFormat is returned for an output format that no sink handles.
var ErrInvalidFormat = errors.New("invalid output format")

// Output formats understood by the report sinks.
const (
	FormatText = "txt"
	FormatCSV  = "csv"
	FormatSQL  = "sql"
)

// Config holds all configuration loaded from redup.yaml.
type Config struct {
	Workers      int      `yaml:"workers"`
	Walkers      int      `yaml:"walkers"`
	Hash         string   `yaml:"hash"`
	Format       string   `yaml:"format"`
	Verify       bool     `yaml:"verify"`
	ExcludePaths []string `yaml:"exclude_paths"`
	LogLevel     string   `yaml:"log_level"`
}

// applyDefaults fills zero/empty fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Walkers == 0 {
		c.Walkers = 4
	}
	if c.Hash == "" {
		c.Hash = "xxh3"
	}
	if c.Format == "" {
		c.Format = FormatText
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Default returns a Config with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load reads and parses the YAML config file at path.
// If the file does not exist, Load returns a default Config so the tool
// runs without one.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return &cfg, nil
}

// NormalizeFormat maps the accepted spellings of an output format onto one
// of FormatText, FormatCSV or FormatSQL.
func NormalizeFormat(s string) (string, error) {
	switch strings.ToLower(s) {
	case "txt", "text":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "sql", "sqlite", "db":
		return FormatSQL, nil
	default:
		return "", fmt.Errorf("%w %q (want txt, csv or sql)", ErrInvalidFormat, s)
	}
}

// Validate checks values that defaults cannot repair. The format is
// normalized in place.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Walkers < 1 {
		return fmt.Errorf("walkers must be positive, got %d", c.Walkers)
	}
	format, err := NormalizeFormat(c.Format)
	if err != nil {
		return err
	}
	c.Format = format
	return nil
}

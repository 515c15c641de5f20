package sqlpager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the file representation of pagination settings, YAML:
//
//	cursor_ttl: 30m
//	default_size: 20
//	max_size: 200
//	default_each_side: 2
//
// or TOML with the same keys.
type Config struct {
	CursorTTL       time.Duration `yaml:"cursor_ttl" toml:"cursor_ttl"`
	DefaultSize     int           `yaml:"default_size" toml:"default_size"`
	MaxSize         int           `yaml:"max_size" toml:"max_size"`
	DefaultEachSide int           `yaml:"default_each_side" toml:"default_each_side"`
}

// DefaultPagingConfig returns the settings used when nothing is configured.
func DefaultPagingConfig() Config {
	return Config{
		CursorTTL:       DefaultCursorTTL,
		DefaultSize:     DefaultSize,
		MaxSize:         MaxSize,
		DefaultEachSide: 0,
	}
}

// ParseConfig decodes YAML settings. Missing keys keep their defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultPagingConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse paging config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid paging config: %w", err)
	}

	return cfg, nil
}

// ParseTOMLConfig is ParseConfig for TOML documents.
func ParseTOMLConfig(data []byte) (Config, error) {
	cfg := DefaultPagingConfig()
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse paging config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid paging config: %w", err)
	}

	return cfg, nil
}

// LoadConfig reads settings from path. Files ending with ".toml" are decoded
// as TOML, anything else as YAML.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read paging config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOMLConfig(data)
	}

	return ParseConfig(data)
}

func (c Config) validate() error {
	if c.CursorTTL < 0 {
		return fmt.Errorf("negative cursor_ttl %s", c.CursorTTL)
	}

	if c.MaxSize < 1 {
		return fmt.Errorf("max_size must be positive, got %d", c.MaxSize)
	}

	if c.DefaultSize < 1 || c.DefaultSize > c.MaxSize {
		return fmt.Errorf("default_size must be in [1, %d], got %d", c.MaxSize, c.DefaultSize)
	}

	if c.DefaultEachSide < 0 {
		return fmt.Errorf("negative default_each_side %d", c.DefaultEachSide)
	}

	return nil
}

// Options returns the Compiler options described by the config.
func (c Config) Options() []Option {
	return []Option{WithCursorTTL(c.CursorTTL)}
}

// Pager builds a Pager with the configured size limits and each side count.
// A non-positive size falls back to DefaultSize of the config.
func (c Config) Pager(page int, size int) Pager {
	if size <= 0 {
		size = c.DefaultSize
	}

	pager := NewPager(page, size)
	pager.size = NormalizeSizeMax(size, c.MaxSize)

	return pager.WithEachSide(c.DefaultEachSide)
}

// Package config provides the explicit configuration object passed into
// the composition root at startup.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime options. There is no global configuration
// state; the loaded value is handed to the components that need it.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`
	// DataDir holds the SQLite database and stored media.
	DataDir string `yaml:"data_dir"`
	// MaxImageBytes is the inclusive upload size ceiling.
	MaxImageBytes int64 `yaml:"max_image_bytes"`
	// PageSize is the number of scrapbooks or posts per page.
	PageSize int `yaml:"page_size"`
	// LogLevel follows logrus level names.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:          ":8080",
		DataDir:       "./data",
		MaxImageBytes: 2 * 1024 * 1024,
		PageSize:      6,
		LogLevel:      "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := os.Getenv("SCRAPBOOK_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("SCRAPBOOK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("SCRAPBOOK_MAX_IMAGE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCRAPBOOK_MAX_IMAGE_BYTES: %w", err)
		}
		cfg.MaxImageBytes = n
	}
	if v := os.Getenv("SCRAPBOOK_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCRAPBOOK_PAGE_SIZE: %w", err)
		}
		cfg.PageSize = n
	}
	if v := os.Getenv("SCRAPBOOK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if cfg.PageSize < 1 {
		return Config{}, fmt.Errorf("page_size must be positive, got %d", cfg.PageSize)
	}
	if cfg.MaxImageBytes < 1 {
		return Config{}, fmt.Errorf("max_image_bytes must be positive, got %d", cfg.MaxImageBytes)
	}
	return cfg, nil
}

// Package config loads the deskboard server configuration from a yaml file
// with environment fallbacks for the deployment-specific values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"deskboard/internal/permission"
	"deskboard/internal/util"
)

// Config is the root configuration for a deskboard deployment.
type Config struct {
	Addr           string `yaml:"addr"`             // HTTP listen address
	DBPath         string `yaml:"db_path"`          // SQLite database file
	StaticDir      string `yaml:"static_dir"`       // Built frontend, empty = API only
	OrderStateDir  string `yaml:"order_state_dir"`  // Per-operator arrangement cache files
	UploadDir      string `yaml:"upload_dir"`       // Uploaded files, served under /uploads
	PrivilegedRole string `yaml:"privileged_role"`  // Role that bypasses grant checks
	LogLevel       string `yaml:"log_level"`        // debug, info, warn, error
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Addr:           util.EnvOrDefault("DESKBOARD_ADDR", ":8080"),
		DBPath:         util.EnvOrDefault("DESKBOARD_DB_PATH", "data/deskboard.db"),
		StaticDir:      util.EnvOrDefault("DESKBOARD_STATIC_DIR", ""),
		OrderStateDir:  util.EnvOrDefault("DESKBOARD_ORDER_STATE_DIR", "data/order"),
		UploadDir:      util.EnvOrDefault("DESKBOARD_UPLOAD_DIR", "data/uploads"),
		PrivilegedRole: permission.AdminRole,
		LogLevel:       "info",
	}
}

// Load reads and parses the config file at the given path. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.PrivilegedRole == "" {
		return fmt.Errorf("privileged_role is required")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

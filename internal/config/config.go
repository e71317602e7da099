package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerURL string `yaml:"server_url"` // Trading-assistant server base URL
	DBPath    string `yaml:"db_path"`    // SQLite file for persisted chat state
	LogDir    string `yaml:"log_dir"`    // Directory for rotated logs and telemetry
	Debug     bool   `yaml:"debug"`

	// SessionID selects the session to activate on startup. Flag only,
	// never read from the config file.
	SessionID string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerURL: "http://localhost:8000",
		DBPath:    "kischat.db",
		LogDir:    "logs",
	}
}

// Load reads ~/.kischat/config.yaml over the defaults. A missing file
// is not an error; a malformed one is.
func Load() (Config, error) {
	cfg := Default()

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, nil
	}

	path := filepath.Join(home, ".kischat", "config.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

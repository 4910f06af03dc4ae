// Package config loads the YAML configuration describing this device's
// transfer port, save directory, display name and app data directory,
// following the load/validate/apply-defaults shape used across the
// example pack's YAML-backed config loaders.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPort is the UDP port the transfer endpoint listens on when none
// is configured.
const DefaultPort = 7890

// Config is this device's local configuration.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Transfer TransferConfig `yaml:"transfer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DeviceConfig holds this installation's display name and app data
// directory. The CLI announces and offers under the OS hostname recorded in
// the device identity; Name is not sent to peers.
type DeviceConfig struct {
	Name       string `yaml:"name"`
	AppDataDir string `yaml:"app_data_dir"`
}

// TransferConfig controls where the endpoint listens and where received
// files land.
type TransferConfig struct {
	Port     int    `yaml:"port"`
	SaveDir  string `yaml:"save_dir"`
}

// LoggingConfig controls the zerolog console writer's verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and validates a YAML config file at path, applying defaults
// for any field left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return &cfg, nil
}

// Default returns a Config with every field set to its default, usable
// when no config file exists yet (first run).
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Device.Name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "proxishare-device"
		}
		c.Device.Name = hostname
	}
	if c.Device.AppDataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Device.AppDataDir = filepath.Join(home, ".proxishare")
	}
	if c.Transfer.Port == 0 {
		c.Transfer.Port = DefaultPort
	}
	if c.Transfer.SaveDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Transfer.SaveDir = filepath.Join(home, "proxishare")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Transfer.Port <= 0 || c.Transfer.Port > 65535 {
		return fmt.Errorf("transfer.port must be between 1 and 65535, got %d", c.Transfer.Port)
	}
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of trace/debug/info/warn/error, got %q", c.Logging.Level)
	}
	return nil
}

// EnsureDirs creates the app data and save directories if they don't
// exist yet.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.Device.AppDataDir, 0o700); err != nil {
		return fmt.Errorf("create app data dir: %w", err)
	}
	if err := os.MkdirAll(c.Transfer.SaveDir, 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}
	return nil
}

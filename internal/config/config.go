// Package config loads shopcore configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "15m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// APIConfig configures the remote service transport.
type APIConfig struct {
	BaseURL   string   `yaml:"base_url"`
	AuthToken string   `yaml:"auth_token"`
	Timeout   Duration `yaml:"timeout"`
}

// SyncConfig configures the sync scheduler.
type SyncConfig struct {
	Interval         Duration `yaml:"interval"`
	RetentionHorizon Duration `yaml:"retention_horizon"`
	RunTimeout       Duration `yaml:"run_timeout"`
}

// Config is the full shopcore configuration.
type Config struct {
	DataDir    string     `yaml:"data_dir"`
	ListenAddr string     `yaml:"listen_addr"`
	MachineID  string     `yaml:"machine_id"`
	LogLevel   string     `yaml:"log_level"`
	API        APIConfig  `yaml:"api"`
	Sync       SyncConfig `yaml:"sync"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:    defaultDataDir(),
		ListenAddr: "127.0.0.1:8590",
		LogLevel:   "INFO",
		API: APIConfig{
			Timeout: Duration(15 * time.Second),
		},
		Sync: SyncConfig{
			Interval:         Duration(15 * time.Minute),
			RetentionHorizon: Duration(7 * 24 * time.Hour),
			RunTimeout:       Duration(5 * time.Minute),
		},
	}
}

// Load reads a YAML config file, applying defaults for anything unset. An
// empty path loads the defaults. The result is always validated: the engine
// cannot run without api.base_url, and failing fast here beats a process
// that sits permanently "offline" with nothing in the logs.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Sync.Interval.Std() <= 0 {
		return fmt.Errorf("sync.interval must be positive")
	}
	if c.Sync.RetentionHorizon.Std() <= 0 {
		return fmt.Errorf("sync.retention_horizon must be positive")
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shopcore"
	}
	return home + "/.shopcore"
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the server needs. Flags provide the defaults and a
// yaml file, when given, overrides them.
type Config struct {
	Addr         string        `yaml:"addr"`
	DBPath       string        `yaml:"db"`
	TickInterval time.Duration `yaml:"tick_interval"`
	LogFile      string        `yaml:"log_file"`
	Debug        bool          `yaml:"debug"`
}

func Default() Config {
	return Config{
		Addr:         ":8080",
		DBPath:       "finsim.db",
		TickInterval: 5 * time.Second,
	}
}

// UnmarshalYAML merges only the keys present in the document, so flag-derived
// values survive when the file omits them. Durations are written in Go
// notation ("5s", "1m30s").
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Addr         string `yaml:"addr"`
		DBPath       string `yaml:"db"`
		TickInterval string `yaml:"tick_interval"`
		LogFile      string `yaml:"log_file"`
		Debug        *bool  `yaml:"debug"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Addr != "" {
		c.Addr = raw.Addr
	}
	if raw.DBPath != "" {
		c.DBPath = raw.DBPath
	}
	if raw.TickInterval != "" {
		d, err := time.ParseDuration(raw.TickInterval)
		if err != nil {
			return fmt.Errorf("tick_interval: %w", err)
		}
		c.TickInterval = d
	}
	if raw.LogFile != "" {
		c.LogFile = raw.LogFile
	}
	if raw.Debug != nil {
		c.Debug = *raw.Debug
	}
	return nil
}

// Load merges the yaml file at path into cfg.
func Load(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db must not be empty")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	return nil
}

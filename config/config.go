// Package config reads the optional ramlights YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	AdapterGeneric = "generic"
	AdapterNanoPi  = "nanopi"
	AdapterMCP2221 = "mcp2221"
)

const DefaultPath = "ramlights.yaml"
const DefaultDevice = "/dev/i2c-1"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Adapter   string  `yaml:"adapter"`
	Device    string  `yaml:"device"`
	BusNumber int     `yaml:"bus_number"`
	ProbeRate float64 `yaml:"probe_rate"` // probes per second, 0 means unlimited
	Confirm   bool    `yaml:"confirm"`
	DryRun    bool    `yaml:"dry_run"`
	SpeedKHz  int     `yaml:"speed_khz"` // generic adapter clock, 0 keeps the kernel setting
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

// Load reads path. A missing file is not an error and yields defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	c := &Config{}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	c.sanitize()
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes c as YAML, replacing the file at path.
func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) sanitize() {
	c.Adapter = strings.ToLower(strings.TrimSpace(c.Adapter))
	c.Device = strings.TrimSpace(c.Device)
}

func (c *Config) setDefaults() {
	if c.Adapter == "" {
		c.Adapter = AdapterGeneric
	}
	if c.Device == "" {
		c.Device = DefaultDevice
	}
}

// Validate checks values that may also come from flags.
func (c *Config) Validate() error {
	switch c.Adapter {
	case AdapterGeneric, AdapterNanoPi, AdapterMCP2221:
	default:
		return fmt.Errorf("%w: unknown adapter %q", ErrInvalidConfig, c.Adapter)
	}
	if c.BusNumber < 0 {
		return fmt.Errorf("%w: negative bus number %d", ErrInvalidConfig, c.BusNumber)
	}
	if c.SpeedKHz < 0 {
		return fmt.Errorf("%w: negative bus speed %d", ErrInvalidConfig, c.SpeedKHz)
	}
	if c.ProbeRate < 0 {
		return fmt.Errorf("%w: negative probe rate %v", ErrInvalidConfig, c.ProbeRate)
	}
	return nil
}

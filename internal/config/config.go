// Package config loads the shotline runtime configuration from JSON. Only
// deployment concerns live here (port path, serial settings, listen address);
// the smart-mode thresholds are device constants and deliberately not
// configurable.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/speleodata/shotline/internal/devicemux"
)

// Config is the root runtime configuration. Fields omitted from the JSON
// file retain their defaults, so partial configs are safe.
type Config struct {
	// DevicePath is the serial port the rangefinder is bridged to.
	DevicePath string `json:"device_path,omitempty"`

	// Port holds the serial connection parameters.
	Port devicemux.PortOptions `json:"port,omitempty"`

	// Listen is the debug HTTP listen address.
	Listen string `json:"listen,omitempty"`

	// AutoAck controls measurement acknowledgement; nil means enabled.
	AutoAck *bool `json:"auto_ack,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DevicePath: "/dev/rfcomm0",
		Listen:     "localhost:8080",
	}
}

// AutoAckEnabled reports the effective auto-ack setting.
func (c *Config) AutoAckEnabled() bool {
	return c.AutoAck == nil || *c.AutoAck
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.DevicePath == "" {
		return fmt.Errorf("device_path must not be empty")
	}
	if _, err := c.Port.Normalize(); err != nil {
		return fmt.Errorf("invalid port options: %w", err)
	}
	return nil
}

// Load reads a Config from a JSON file. The file must have a .json extension
// and stay under the size cap; fields left out keep their defaults.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

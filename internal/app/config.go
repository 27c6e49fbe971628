// Package app provides configuration management for the NES emulator.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all application configuration
type Config struct {
	Emulation EmulationConfig `json:"emulation"`
	Debug     DebugConfig     `json:"debug"`
	Paths     PathsConfig     `json:"paths"`

	// Internal state
	configPath string
	loaded     bool
}

// EmulationConfig contains emulation-specific settings
type EmulationConfig struct {
	Region        string `json:"region"` // "NTSC", "PAL", "Dendy"
	CycleAccuracy bool   `json:"cycle_accuracy"`
}

// DebugConfig contains debugging and development options
type DebugConfig struct {
	EnableLogging   bool   `json:"enable_logging"`
	LogLevel        string `json:"log_level"` // "DEBUG", "INFO", "WARN", "ERROR"
	CPUTracing      bool   `json:"cpu_tracing"`
	MemoryDebugging bool   `json:"memory_debugging"`
}

// PathsConfig contains file and directory paths
type PathsConfig struct {
	ROMs string `json:"roms"`
	Logs string `json:"logs"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Emulation: EmulationConfig{
			Region:        "NTSC",
			CycleAccuracy: true,
		},
		Debug: DebugConfig{
			EnableLogging:   false,
			LogLevel:        "INFO",
			CPUTracing:      false,
			MemoryDebugging: false,
		},
		Paths: PathsConfig{
			ROMs: "./roms",
			Logs: "./logs",
		},
		loaded: false,
	}
}

// LoadFromFile loads configuration from a JSON file
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %v", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %v", err)
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %v", err)
		}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}

	c.configPath = path
	return nil
}

// Save saves the configuration to the current config file
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config file path set")
	}
	return c.SaveToFile(c.configPath)
}

// validate validates the configuration values
func (c *Config) validate() error {
	switch c.Emulation.Region {
	case "NTSC", "PAL", "Dendy":
	case "":
		c.Emulation.Region = "NTSC"
	default:
		return fmt.Errorf("unknown region: %s", c.Emulation.Region)
	}

	switch c.Debug.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	case "":
		c.Debug.LogLevel = "INFO"
	default:
		return fmt.Errorf("unknown log level: %s", c.Debug.LogLevel)
	}

	return nil
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// UpdateDebug updates debug configuration
func (c *Config) UpdateDebug(enableLogging bool, cpuTracing bool, memoryDebugging bool) {
	c.Debug.EnableLogging = enableLogging
	c.Debug.CPUTracing = cpuTracing
	c.Debug.MemoryDebugging = memoryDebugging
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return "./config/gones.json"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

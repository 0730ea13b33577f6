// config.go - Configuration management for the solvency prover
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the application configuration
type Config struct {
	// Protocol settings
	NCurrencies int `json:"n_currencies"`
	NBytes      int `json:"n_bytes"`
	K           int `json:"k"`

	// Range check settings
	LimbBits     int  `json:"limb_bits"`
	NoRangeCheck bool `json:"no_range_check_unsafe"`

	// File paths
	SRSPath    string `json:"srs_path"`
	KeyDir     string `json:"key_dir"`
	OutputDir  string `json:"output_dir"`
	EntriesCSV string `json:"entries_csv"`

	// Logging
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		NCurrencies: 2,
		NBytes:      8,
		K:           9,
		LimbBits:    16,
		SRSPath:     "setup.srs",
		KeyDir:      "keys",
		OutputDir:   "artifacts",
		EntriesCSV:  "entries.csv",
		LogLevel:    "info",
	}
}

// LoadConfig loads configuration from file or creates default
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		var config Config
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}

		return &config, nil
	}

	// Create default config and save it
	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.NCurrencies <= 0 {
		return fmt.Errorf("n_currencies must be positive")
	}
	if c.NBytes <= 0 || c.NBytes > 31 {
		return fmt.Errorf("n_bytes must be in [1, 31]")
	}
	if c.K <= 0 || c.K > 28 {
		return fmt.Errorf("k must be in [1, 28]")
	}
	if c.LimbBits != 8 && c.LimbBits != 16 {
		return fmt.Errorf("limb_bits must be 8 or 16")
	}
	if (8*c.NBytes)%c.LimbBits != 0 {
		return fmt.Errorf("limb_bits %d does not divide the %d-byte balance width", c.LimbBits, c.NBytes)
	}
	return nil
}

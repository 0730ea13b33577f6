package main

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solvency.json")

	cfg := DefaultConfig()
	cfg.NCurrencies = 3
	cfg.K = 7
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.NCurrencies != 3 || loaded.K != 7 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solvency.json")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.K != DefaultConfig().K {
		t.Errorf("expected default config, got %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero currencies", func(c *Config) { c.NCurrencies = 0 }},
		{"oversized balances", func(c *Config) { c.NBytes = 32 }},
		{"bad domain exponent", func(c *Config) { c.K = 0 }},
		{"bad limb width", func(c *Config) { c.LimbBits = 12 }},
		{"limbs do not divide", func(c *Config) { c.NBytes = 3; c.LimbBits = 16 }},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

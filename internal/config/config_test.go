package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if !cfg.IsFormatSupported(".mp4") {
		t.Error("mp4 should be supported by default")
	}
	if cfg.IsFormatSupported(".txt") {
		t.Error("txt should not be supported")
	}
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %s, want default", cfg.Server.Port)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("default config file was not written")
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Server.Port = "9090"
	cfg.Library.Paths = []string{"/data/videos", "/mnt/archive"}
	cfg.Logging.Format = "json"
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Server.Port != "9090" {
		t.Errorf("Port = %s, want 9090", loaded.Server.Port)
	}
	if len(loaded.Library.Paths) != 2 || loaded.Library.Paths[1] != "/mnt/archive" {
		t.Errorf("Paths = %v", loaded.Library.Paths)
	}
	if loaded.Logging.Format != "json" {
		t.Errorf("Format = %s, want json", loaded.Logging.Format)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"empty host", func(c *Config) { c.Server.Host = "" }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"zero max connections", func(c *Config) { c.Database.MaxConnections = 0 }},
		{"no library paths", func(c *Config) { c.Library.Paths = nil }},
		{"no formats", func(c *Config) { c.Library.SupportedFormats = nil }},
		{"zero probe timeout", func(c *Config) { c.Library.ProbeTimeout = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGetAddress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "3000"
	if got := cfg.GetAddress(); got != "127.0.0.1:3000" {
		t.Errorf("GetAddress = %s", got)
	}
}

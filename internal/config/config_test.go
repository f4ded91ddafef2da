package config

import "testing"

func TestDefaultsAreValid(t *testing.T) {
	cfg := GetDefaults()
	if err := validateConfig(cfg); err != nil {
		t.Errorf("default configuration invalid: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad export strategy", func(c *Config) { c.Export.Strategy = "plaintext" }},
		{"bad monitor port", func(c *Config) { c.Monitor.Enabled = true; c.Monitor.Port = 70000 }},
		{"zero batch size", func(c *Config) { c.Pipeline.BatchSize = 0 }},
		{"negative rate", func(c *Config) { c.Pipeline.RecordsPerSec = -1 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaults()
			tt.mutate(cfg)
			if err := validateConfig(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

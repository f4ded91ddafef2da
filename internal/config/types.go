package config

import (
	"time"

	"github.com/carebridge/phi-sentinel/internal/monitor"
	"github.com/carebridge/phi-sentinel/internal/pipeline"
	"github.com/carebridge/phi-sentinel/internal/redact"
	"github.com/carebridge/phi-sentinel/internal/store"
	"github.com/carebridge/phi-sentinel/internal/vault"
)

// Config represents the main configuration structure
type Config struct {
	Redactor redact.Config   `yaml:"redactor" mapstructure:"redactor"`
	Export   ExportConfig    `yaml:"export" mapstructure:"export"`
	Pipeline pipeline.Config `yaml:"pipeline" mapstructure:"pipeline"`
	Database store.Config    `yaml:"database" mapstructure:"database"`
	Vault    vault.Config    `yaml:"vault" mapstructure:"vault"`
	Monitor  monitor.Config  `yaml:"monitor" mapstructure:"monitor"`
	Logging  LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// ExportConfig controls pseudonymization
type ExportConfig struct {
	// Strategy selects the token strategy: "hmac" or "rolling"
	Strategy string `yaml:"strategy" mapstructure:"strategy"`
	// PepperEnv names the environment variable holding the HMAC pepper.
	// The pepper itself never appears in config files.
	PepperEnv string `yaml:"pepper_env" mapstructure:"pepper_env"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
		Path     string `yaml:"path" mapstructure:"path"`
		MaxSize  int    `yaml:"max_size" mapstructure:"max_size"`
		MaxAge   int    `yaml:"max_age" mapstructure:"max_age"`
		Compress bool   `yaml:"compress" mapstructure:"compress"`
	} `yaml:"file" mapstructure:"file"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	return &Config{
		Redactor: redact.Config{
			Enabled:   true,
			Detectors: []string{"all"},
		},
		Export: ExportConfig{
			Strategy:  "hmac",
			PepperEnv: "PHISENTINEL_EXPORT_PEPPER",
		},
		Pipeline: pipeline.Config{
			BatchSize:      500,
			RecordsPerSec:  0,
			ValidateData:   true,
			ProgressReport: 1000,
		},
		Database: store.Config{
			DatabaseURL:     "postgres://localhost:5432/phi_sentinel?sslmode=disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Vault: vault.Config{
			RedisURL:       "redis://localhost:6379/0",
			KeyPrefix:      "phisentinel",
			DefaultTTL:     72 * time.Hour,
			MaxConnections: 10,
			MinIdleConns:   2,
		},
		Monitor: monitor.Config{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

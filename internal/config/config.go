// Package config provides configuration loading for minuted.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/minuted/internal/extraction"
	"github.com/fyrsmithlabs/minuted/internal/logging"
)

// Config is the full minuted configuration tree.
type Config struct {
	Server     ServerConfig      `koanf:"server"`
	Logging    logging.Config    `koanf:"logging"`
	Store      StoreConfig       `koanf:"store"`
	Extraction extraction.Config `koanf:"extraction"`
	Pipeline   PipelineConfig    `koanf:"pipeline"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// StoreConfig holds database settings.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// PipelineConfig holds pipeline tuning knobs.
type PipelineConfig struct {
	StageTimeout int `koanf:"stage_timeout"` // seconds
}

// NewDefaultConfig returns the configuration used when no file and no
// environment overrides are present.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: *logging.NewDefaultConfig(),
		Store: StoreConfig{
			Path: "minuted.db",
		},
		Extraction: extraction.Config{
			Timeout: 60,
		},
		Pipeline: PipelineConfig{
			StageTimeout: 60,
		},
	}
}

// Load reads configuration from the YAML file at configPath (skipped when
// empty or missing), then overrides with MINUTED_-prefixed environment
// variables, then fills gaps with defaults.
//
// Environment variables map section-first:
//
//	MINUTED_SERVER_PORT          -> server.port
//	MINUTED_EXTRACTION_API_KEY   -> extraction.api_key
//	MINUTED_LOGGING_LEVEL        -> logging.level
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
			}
		} else if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("MINUTED_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envTransform maps MINUTED_SECTION_FIELD_NAME to section.field_name.
// The split happens on the first underscore after the prefix so field names
// keep their own underscores.
func envTransform(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, "MINUTED_"))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func applyDefaults(cfg *Config) {
	def := NewDefaultConfig()
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = def.Store.Path
	}
	if cfg.Extraction.Timeout == 0 {
		cfg.Extraction.Timeout = def.Extraction.Timeout
	}
	if cfg.Pipeline.StageTimeout == 0 {
		cfg.Pipeline.StageTimeout = def.Pipeline.StageTimeout
	}
}

// Validate checks cross-field consistency after defaults are applied.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	switch c.Extraction.Provider {
	case "", "googleai", "openai":
	default:
		return fmt.Errorf("extraction.provider %q not supported (want googleai or openai)", c.Extraction.Provider)
	}
	if c.Pipeline.StageTimeout < 0 {
		return fmt.Errorf("pipeline.stage_timeout must not be negative")
	}
	return nil
}

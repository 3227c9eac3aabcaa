package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration from the given YAML file path.
// After parsing, it fills in defaults for anything left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches standard locations and loads the first config
// found. Search order: ./autodevops.yaml, ~/.autodevops/config.yaml.
// When none exists, the built-in defaults are returned.
func LoadDefault() (*Config, error) {
	candidates := []string{"autodevops.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".autodevops", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := &Config{}
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Agent.MaxAttempts == 0 {
		cfg.Agent.MaxAttempts = 3
	}
	if cfg.Agent.SettleDelay == "" {
		cfg.Agent.SettleDelay = "1s"
	}
	if cfg.Reasoning.Endpoint == "" {
		cfg.Reasoning.Endpoint = "https://generativelanguage.googleapis.com"
	}
	if cfg.Reasoning.Model == "" {
		cfg.Reasoning.Model = "gemini-2.5-flash"
	}
	if cfg.Reasoning.APIKeyEnv == "" {
		cfg.Reasoning.APIKeyEnv = "REASONING_API_KEY"
	}
	if cfg.Reasoning.Timeout == "" {
		cfg.Reasoning.Timeout = "120s"
	}
	if cfg.Clone.Mode == "" {
		cfg.Clone.Mode = "local"
	}
	if cfg.Clone.Timeout == "" {
		cfg.Clone.Timeout = "3m"
	}
	if cfg.Preflight.MaxContextFiles == 0 {
		cfg.Preflight.MaxContextFiles = 20
	}
	if cfg.Preflight.MaxFileChars == 0 {
		cfg.Preflight.MaxFileChars = 4000
	}
	if cfg.Preflight.MaxBlobChars == 0 {
		cfg.Preflight.MaxBlobChars = 2 * cfg.Preflight.MaxContextFiles * cfg.Preflight.MaxFileChars
	}
	if cfg.Preflight.TreeSample == 0 {
		cfg.Preflight.TreeSample = 200
	}
	if cfg.Preflight.QuietPeriod == "" {
		cfg.Preflight.QuietPeriod = "800ms"
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "memory"
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
}

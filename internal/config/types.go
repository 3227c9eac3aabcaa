package config

import "time"

// Config is the top-level configuration structure parsed from YAML.
type Config struct {
	Agent     Agent     `yaml:"agent"`
	Reasoning Reasoning `yaml:"reasoning"`
	Clone     Clone     `yaml:"clone"`
	Preflight Preflight `yaml:"preflight"`
	Store     Store     `yaml:"store"`
	Web       Web       `yaml:"web"`
}

// Agent tunes the remediation pipeline itself.
type Agent struct {
	MaxAttempts int    `yaml:"max_attempts"`
	SettleDelay string `yaml:"settle_delay"` // pause between issue fixes, e.g. "1s"
}

// Reasoning configures the reasoning engine client.
type Reasoning struct {
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"` // env var holding the key, never the key itself
	Timeout        string `yaml:"timeout"`
	RetryTransient bool   `yaml:"retry_transient"`
}

// Clone selects how repositories are fetched.
type Clone struct {
	Mode       string `yaml:"mode"` // "remote" or "local"
	ServiceURL string `yaml:"service_url"`
	Timeout    string `yaml:"timeout"`
}

// Preflight tunes repository context assembly.
type Preflight struct {
	MaxContextFiles int    `yaml:"max_context_files"`
	MaxFileChars    int    `yaml:"max_file_chars"`
	MaxBlobChars    int    `yaml:"max_blob_chars"`
	TreeSample      int    `yaml:"tree_sample"`
	QuietPeriod     string `yaml:"quiet_period"` // debounce before a preflight fires
}

// Store selects the snapshot persistence backend.
type Store struct {
	Driver string `yaml:"driver"` // "postgres", "file", or "memory"
	DSN    string `yaml:"dsn"`
}

// Web configures the API server.
type Web struct {
	Port int `yaml:"port"`
}

// SettleDelayDuration parses agent.settle_delay, falling back to the
// default when unset or unparsable.
func (a Agent) SettleDelayDuration() time.Duration {
	return parseDuration(a.SettleDelay, time.Second)
}

// TimeoutDuration parses reasoning.timeout.
func (r Reasoning) TimeoutDuration() time.Duration {
	return parseDuration(r.Timeout, 2*time.Minute)
}

// TimeoutDuration parses clone.timeout.
func (c Clone) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 3*time.Minute)
}

// QuietPeriodDuration parses preflight.quiet_period.
func (p Preflight) QuietPeriodDuration() time.Duration {
	return parseDuration(p.QuietPeriod, 800*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

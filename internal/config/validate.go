package config

import (
	"fmt"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var recognizedCloneModes = map[string]bool{
	"remote": true,
	"local":  true,
}

var recognizedStoreDrivers = map[string]bool{
	"postgres": true,
	"file":     true,
	"memory":   true,
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Agent.MaxAttempts < 1 {
		errs = append(errs, ValidationError{Field: "agent.max_attempts", Message: "must be at least 1"})
	}
	validateDuration(cfg.Agent.SettleDelay, "agent.settle_delay", &errs)

	if cfg.Reasoning.Endpoint == "" {
		errs = append(errs, ValidationError{Field: "reasoning.endpoint", Message: "is required"})
	}
	if cfg.Reasoning.Model == "" {
		errs = append(errs, ValidationError{Field: "reasoning.model", Message: "is required"})
	}
	validateDuration(cfg.Reasoning.Timeout, "reasoning.timeout", &errs)

	if !recognizedCloneModes[cfg.Clone.Mode] {
		errs = append(errs, ValidationError{
			Field:   "clone.mode",
			Message: fmt.Sprintf("unrecognized mode %q (expected remote or local)", cfg.Clone.Mode),
		})
	}
	if cfg.Clone.Mode == "remote" && cfg.Clone.ServiceURL == "" {
		errs = append(errs, ValidationError{Field: "clone.service_url", Message: "is required for remote mode"})
	}
	validateDuration(cfg.Clone.Timeout, "clone.timeout", &errs)
	validateDuration(cfg.Preflight.QuietPeriod, "preflight.quiet_period", &errs)

	if !recognizedStoreDrivers[cfg.Store.Driver] {
		errs = append(errs, ValidationError{
			Field:   "store.driver",
			Message: fmt.Sprintf("unrecognized driver %q (expected postgres, file, or memory)", cfg.Store.Driver),
		})
	}
	if cfg.Store.Driver == "postgres" && cfg.Store.DSN == "" {
		errs = append(errs, ValidationError{Field: "store.dsn", Message: "is required for the postgres driver"})
	}

	if cfg.Web.Port < 1 || cfg.Web.Port > 65535 {
		errs = append(errs, ValidationError{Field: "web.port", Message: "must be between 1 and 65535"})
	}

	return errs
}

func validateDuration(s, field string, errs *[]ValidationError) {
	if s == "" {
		return
	}
	if _, err := time.ParseDuration(s); err != nil {
		*errs = append(*errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid duration %q", s),
		})
	}
}

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRuntimeURL checks that u is an absolute http(s) URL
func (v *Validator) ValidateRuntimeURL(u string) error {
	if u == "" {
		return fmt.Errorf("runtime URL cannot be empty")
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return fmt.Errorf("invalid runtime URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid runtime URL scheme %q (must be http or https)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("runtime URL has no host")
	}
	return nil
}

// ValidateInstanceID validates a runtime instance id
func (v *Validator) ValidateInstanceID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("runtime instance_id cannot be empty")
	}
	if strings.ContainsAny(id, "/?# ") {
		return fmt.Errorf("runtime instance_id %q contains reserved characters", id)
	}
	return nil
}

// ValidateConcurrency validates the queue concurrency limit
func (v *Validator) ValidateConcurrency(n int) error {
	if n < 1 {
		return fmt.Errorf("queue concurrency must be >= 1")
	}
	if n > 64 {
		return fmt.Errorf("queue concurrency must be <= 64")
	}
	return nil
}

// ValidateLogLevel validates a log level
func (v *Validator) ValidateLogLevel(level string) error {
	switch level {
	case "", "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("invalid log level: %s (must be: trace, debug, info, warn, error)", level)
}

// ValidateConfig validates the whole configuration and returns every problem found
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := cfg.Validate(); err != nil {
		errors = append(errors, err)
	}

	if cfg.Runtime.URL != "" {
		if err := v.ValidateRuntimeURL(cfg.Runtime.URL); err != nil {
			errors = append(errors, err)
		}
	}
	if err := v.ValidateInstanceID(cfg.Runtime.InstanceID); err != nil {
		errors = append(errors, err)
	}
	if cfg.Queue.Concurrency >= 1 {
		if err := v.ValidateConcurrency(cfg.Queue.Concurrency); err != nil {
			errors = append(errors, err)
		}
	}
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}
	if cfg.Tracing.Enabled && strings.TrimSpace(cfg.Tracing.ServiceName) == "" {
		errors = append(errors, fmt.Errorf("tracing.service_name is required when tracing is enabled"))
	}

	return errors
}

// Warnings reports settings that are allowed but will make calls fail later
func (v *Validator) Warnings(cfg *Config) []string {
	var warnings []string
	if cfg.Runtime.URL == "" {
		warnings = append(warnings, "runtime.url is not set; every runtime call will fail")
	}
	if cfg.Runtime.TimeoutSeconds == 0 {
		warnings = append(warnings, "runtime.timeout_seconds is 0; runtime calls have no deadline")
	}
	return warnings
}

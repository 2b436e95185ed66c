package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the profiler configuration
type Config struct {
	// Runtime
	Runtime RuntimeConfig `json:"runtime" mapstructure:"runtime"`

	// Queue
	Queue QueueConfig `json:"queue" mapstructure:"queue"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Tracing
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`
}

// RuntimeConfig locates the analytics runtime
type RuntimeConfig struct {
	URL            string `json:"url" mapstructure:"url"`
	InstanceID     string `json:"instance_id" mapstructure:"instance_id"`
	Token          string `json:"token,omitempty" mapstructure:"token"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// Timeout returns the per-call timeout, zero when disabled
func (r RuntimeConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// QueueConfig holds request queue settings
type QueueConfig struct {
	Concurrency int `json:"concurrency" mapstructure:"concurrency"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"` // debug, info, warn, error
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds the prometheus listener address, empty to disable
type MetricsConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool    `json:"enabled" mapstructure:"enabled"`
	ServiceName string  `json:"service_name" mapstructure:"service_name"`
	SampleRatio float64 `json:"sample_ratio" mapstructure:"sample_ratio"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			URL:            "",
			InstanceID:     "default",
			TimeoutSeconds: 30,
		},
		Queue: QueueConfig{
			Concurrency: 6,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "profiler",
			SampleRatio: 1.0,
		},
	}
}

// String returns a JSON representation of the config with the token masked
func (c *Config) String() string {
	masked := *c
	if masked.Runtime.Token != "" {
		masked.Runtime.Token = "********"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks the settings the profiler cannot start without
func (c *Config) Validate() error {
	if c.Queue.Concurrency < 1 {
		return fmt.Errorf("queue.concurrency must be >= 1, got %d", c.Queue.Concurrency)
	}
	if c.Runtime.TimeoutSeconds < 0 {
		return fmt.Errorf("runtime.timeout_seconds must be >= 0")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1]")
	}
	return nil
}

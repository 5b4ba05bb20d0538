// Package config provides configuration management for rulecore services.
package config

import "time"

// Config holds the runtime configuration for the rulecore service.
type Config struct {
	Host               string
	Port               int
	EvaluationInterval time.Duration
	CacheTTL           time.Duration
	WorkflowTimeout    time.Duration
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               50061,
		EvaluationInterval: 5 * time.Second,
		CacheTTL:           5 * time.Minute,
		WorkflowTimeout:    30 * time.Minute,
	}
}

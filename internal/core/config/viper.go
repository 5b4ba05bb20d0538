package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration using viper.
// CLI flags > environment > config file > defaults precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Defaults matching Default()
	v.SetDefault("rulecore.host", "0.0.0.0")
	v.SetDefault("rulecore.port", 50061)
	v.SetDefault("rulecore.evaluation_interval", "5s")
	v.SetDefault("rulecore.cache_ttl", "5m")
	v.SetDefault("rulecore.workflow_timeout", "30m")

	// Environment variables with RG_ prefix, e.g. RG_RULECORE_PORT
	v.SetEnvPrefix("RG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Host:               v.GetString("rulecore.host"),
		Port:               v.GetInt("rulecore.port"),
		EvaluationInterval: v.GetDuration("rulecore.evaluation_interval"),
		CacheTTL:           v.GetDuration("rulecore.cache_ttl"),
		WorkflowTimeout:    v.GetDuration("rulecore.workflow_timeout"),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks port range and positive durations.
func validate(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.EvaluationInterval <= 0 {
		return fmt.Errorf("evaluation_interval must be positive, got %v", cfg.EvaluationInterval)
	}
	if cfg.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive, got %v", cfg.CacheTTL)
	}
	if cfg.WorkflowTimeout <= 0 {
		return fmt.Errorf("workflow_timeout must be positive, got %v", cfg.WorkflowTimeout)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from various sources with priority order:
// 1. Environment variables
// 2. Configuration file (config.yaml)
// 3. Default values
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mirador-remediate/")
	v.AddConfigPath("./configs/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("REMEDIATE")

	setDefaults(v)

	// Config file is optional; env vars and defaults still apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	overrideWithEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("environment", "development")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")

	// Cache defaults (Valkey)
	v.SetDefault("cache.nodes", []string{"localhost:6379"})
	v.SetDefault("cache.ttl", 300)
	v.SetDefault("cache.db", 0)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 3600)

	// AI diagnosis engine defaults
	v.SetDefault("ai_engine.endpoint", "http://localhost:9094")
	v.SetDefault("ai_engine.timeout", 30000)
	v.SetDefault("ai_engine.breaker_max_failures", 5)
	v.SetDefault("ai_engine.breaker_open_seconds", 60)

	// Notifier defaults
	v.SetDefault("notifier.enabled", false)
	v.SetDefault("notifier.timeout", 5000)

	// Remediation policy defaults (reference auto-apply policy)
	v.SetDefault("remediation.low_risk_confidence", 0.90)
	v.SetDefault("remediation.medium_risk_confidence", 0.95)
	v.SetDefault("remediation.diagnosis_timeout", 30000)

	// Learning policy defaults
	v.SetDefault("learning.min_sample_size", 5)
	v.SetDefault("learning.retry.attempts", 3)
	v.SetDefault("learning.retry.initial_delay", 20)
	v.SetDefault("learning.stats_cache_ttl", 30)

	// SON lifecycle defaults
	v.SetDefault("son.default_expiry", "24h")
	v.SetDefault("son.expiry_sweep_cron", "0 * * * *")   // hourly
	v.SetDefault("son.execute_sweep_cron", "* * * * *") // every minute

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
}

// overrideWithEnvVars explicitly handles environment variable overrides
func overrideWithEnvVars(v *viper.Viper) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("port", p)
		}
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		v.Set("environment", env)
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		v.Set("log_level", logLevel)
	}

	if aiEndpoint := os.Getenv("AI_ENGINE_ENDPOINT"); aiEndpoint != "" {
		v.Set("ai_engine.endpoint", aiEndpoint)
	}

	if cacheNodes := os.Getenv("VALKEY_CACHE_NODES"); cacheNodes != "" {
		nodes := strings.Split(cacheNodes, ",")
		for i, node := range nodes {
			nodes[i] = strings.TrimSpace(node)
		}
		v.Set("cache.nodes", nodes)
	}

	if cacheTTL := os.Getenv("CACHE_TTL"); cacheTTL != "" {
		if ttl, err := strconv.Atoi(cacheTTL); err == nil {
			v.Set("cache.ttl", ttl)
		}
	}

	if webhook := os.Getenv("ALERT_WEBHOOK_URL"); webhook != "" {
		v.Set("notifier.webhook_url", webhook)
		v.Set("notifier.enabled", true)
	}
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.AIEngine.Endpoint == "" {
		return fmt.Errorf("AI diagnosis engine endpoint is required")
	}

	if len(config.Cache.Nodes) == 0 {
		return fmt.Errorf("at least one Valkey cache node is required")
	}

	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Port)
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLogLevels, config.LogLevel) {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	validEnvironments := []string{"development", "staging", "production", "test"}
	if !contains(validEnvironments, config.Environment) {
		return fmt.Errorf("invalid environment: %s", config.Environment)
	}

	if config.Cache.TTL < 1 {
		return fmt.Errorf("cache TTL must be at least 1 second")
	}

	if config.Remediation.LowRiskConfidence < 0 || config.Remediation.LowRiskConfidence > 1 {
		return fmt.Errorf("low-risk confidence floor must be between 0 and 1")
	}

	if config.Remediation.MediumRiskConfidence < 0 || config.Remediation.MediumRiskConfidence > 1 {
		return fmt.Errorf("medium-risk confidence floor must be between 0 and 1")
	}

	if config.Learning.MinSampleSize < 1 {
		return fmt.Errorf("learning min sample size must be at least 1")
	}

	if config.Learning.Retry.Attempts < 1 {
		return fmt.Errorf("learning retry attempts must be at least 1")
	}

	validOperators := []string{">", ">=", "<", "<=", "=="}
	for i, rule := range config.Alerting.Rules {
		if rule.ID == "" || rule.MetricType == "" {
			return fmt.Errorf("alerting rule %d is missing id or metric_type", i)
		}
		if !contains(validOperators, rule.Operator) {
			return fmt.Errorf("alerting rule %q has invalid operator: %s", rule.ID, rule.Operator)
		}
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0.90, cfg.Remediation.LowRiskConfidence)
	assert.Equal(t, 0.95, cfg.Remediation.MediumRiskConfidence)
	assert.Equal(t, 5, cfg.Learning.MinSampleSize)
	assert.Equal(t, 3, cfg.Learning.Retry.Attempts)
	assert.Equal(t, 20, cfg.Learning.Retry.InitialDelay)
	assert.Equal(t, 24*time.Hour, cfg.SON.DefaultExpiry)
	assert.Equal(t, "0 * * * *", cfg.SON.ExpirySweepCron)
	assert.Equal(t, "* * * * *", cfg.SON.ExecuteSweepCron)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("VALKEY_CACHE_NODES", "cache-a:6379, cache-b:6379")
	t.Setenv("ALERT_WEBHOOK_URL", "http://hooks.internal/alerts")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, []string{"cache-a:6379", "cache-b:6379"}, cfg.Cache.Nodes)
	assert.True(t, cfg.Notifier.Enabled)
	assert.Equal(t, "http://hooks.internal/alerts", cfg.Notifier.WebhookURL)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment: "development",
			Port:        8080,
			LogLevel:    "info",
			Cache:       CacheConfig{Nodes: []string{"localhost:6379"}, TTL: 300},
			AIEngine:    AIEngineConfig{Endpoint: "http://localhost:9094"},
			Remediation: RemediationConfig{LowRiskConfidence: 0.90, MediumRiskConfidence: 0.95},
			Learning:    LearningConfig{MinSampleSize: 5, Retry: RetryConfig{Attempts: 3, InitialDelay: 20}},
		}
	}

	require.NoError(t, validateConfig(valid()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing engine endpoint", func(c *Config) { c.AIEngine.Endpoint = "" }},
		{"no cache nodes", func(c *Config) { c.Cache.Nodes = nil }},
		{"invalid port", func(c *Config) { c.Port = 0 }},
		{"invalid log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"invalid environment", func(c *Config) { c.Environment = "qa" }},
		{"confidence above one", func(c *Config) { c.Remediation.LowRiskConfidence = 1.5 }},
		{"zero sample size", func(c *Config) { c.Learning.MinSampleSize = 0 }},
		{"zero retry attempts", func(c *Config) { c.Learning.Retry.Attempts = 0 }},
		{"rule without id", func(c *Config) {
			c.Alerting.Rules = []SeedRule{{MetricType: "cpu_usage"}}
		}},
		{"rule with unknown operator", func(c *Config) {
			c.Alerting.Rules = []SeedRule{{ID: "r1", MetricType: "cpu_usage", Operator: "!="}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}

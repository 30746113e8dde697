package config

import "time"

type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	CORS        CORSConfig        `mapstructure:"cors" yaml:"cors"`
	AIEngine    AIEngineConfig    `mapstructure:"ai_engine" yaml:"ai_engine"`
	Notifier    NotifierConfig    `mapstructure:"notifier" yaml:"notifier"`
	Alerting    AlertingConfig    `mapstructure:"alerting" yaml:"alerting"`
	Remediation RemediationConfig `mapstructure:"remediation" yaml:"remediation"`
	Learning    LearningConfig    `mapstructure:"learning" yaml:"learning"`
	SON         SONConfig         `mapstructure:"son" yaml:"son"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring" yaml:"monitoring"`
}

// CacheConfig handles Valkey caching configuration
type CacheConfig struct {
	Nodes    []string `mapstructure:"nodes" yaml:"nodes"`
	TTL      int      `mapstructure:"ttl" yaml:"ttl"` // seconds
	Password string   `mapstructure:"password" yaml:"password"`
	DB       int      `mapstructure:"db" yaml:"db"`
}

// CORSConfig handles Cross-Origin Resource Sharing
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// AIEngineConfig configures the remote diagnosis engine client.
type AIEngineConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout  int    `mapstructure:"timeout" yaml:"timeout"` // milliseconds
	// Breaker settings guard against a flapping engine taking down the
	// alert-processing path.
	BreakerMaxFailures int `mapstructure:"breaker_max_failures" yaml:"breaker_max_failures"`
	BreakerOpenSeconds int `mapstructure:"breaker_open_seconds" yaml:"breaker_open_seconds"`
}

// NotifierConfig handles best-effort alert event publishing.
type NotifierConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
	Timeout    int    `mapstructure:"timeout" yaml:"timeout"` // milliseconds
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
}

// AlertingConfig seeds the rule store at startup.
type AlertingConfig struct {
	Rules []SeedRule `mapstructure:"rules" yaml:"rules"`
}

// SeedRule is the YAML shape of a startup-seeded alert rule.
type SeedRule struct {
	ID         string  `mapstructure:"id" yaml:"id"`
	Name       string  `mapstructure:"name" yaml:"name"`
	MetricType string  `mapstructure:"metric_type" yaml:"metric_type"`
	Operator   string  `mapstructure:"operator" yaml:"operator"`
	Threshold  float64 `mapstructure:"threshold" yaml:"threshold"`
	Severity   string  `mapstructure:"severity" yaml:"severity"`
	Message    string  `mapstructure:"message" yaml:"message"`
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
}

// RemediationConfig holds the auto-apply policy knobs.
type RemediationConfig struct {
	// Confidence floors per risk level. HIGH risk never auto-applies
	// regardless of confidence.
	LowRiskConfidence    float64 `mapstructure:"low_risk_confidence" yaml:"low_risk_confidence"`
	MediumRiskConfidence float64 `mapstructure:"medium_risk_confidence" yaml:"medium_risk_confidence"`
	DiagnosisTimeout     int     `mapstructure:"diagnosis_timeout" yaml:"diagnosis_timeout"` // milliseconds
}

// LearningConfig holds the learned-pattern policy knobs.
type LearningConfig struct {
	// MinSampleSize is the combined resolved+failed count below which a
	// pattern's adjusted confidence is treated as provisional.
	MinSampleSize int         `mapstructure:"min_sample_size" yaml:"min_sample_size"`
	Retry         RetryConfig `mapstructure:"retry" yaml:"retry"`
	StatsCacheTTL int         `mapstructure:"stats_cache_ttl" yaml:"stats_cache_ttl"` // seconds
}

// RetryConfig is the named optimistic-concurrency retry policy for learning
// updates.
type RetryConfig struct {
	Attempts     int `mapstructure:"attempts" yaml:"attempts"`
	InitialDelay int `mapstructure:"initial_delay" yaml:"initial_delay"` // milliseconds
}

// SONConfig drives the recommendation lifecycle and its two sweeps.
type SONConfig struct {
	DefaultExpiry    time.Duration `mapstructure:"default_expiry" yaml:"default_expiry"`
	ExpirySweepCron  string        `mapstructure:"expiry_sweep_cron" yaml:"expiry_sweep_cron"`
	ExecuteSweepCron string        `mapstructure:"execute_sweep_cron" yaml:"execute_sweep_cron"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	MetricsPath string `mapstructure:"metrics_path" yaml:"metrics_path"`
}

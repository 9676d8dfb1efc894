// Package config defines all configuration structures for the FormulaInfer
// services.  No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// CORSOrigins lists browser origins allowed to call the API.  Empty
	// disables CORS headers entirely.
	CORSOrigins []string `mapstructure:"cors_origins"`

	// RateLimitRPS is the per-client sustained request rate on /api/v1.
	// Zero disables rate limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// RedisConfig holds Redis connection parameters.  An empty Addr disables
// the result cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// KafkaConfig holds Apache Kafka producer/consumer parameters for the
// asynchronous inference worker.
type KafkaConfig struct {
	// Enabled turns on job submission in the API server.  The worker always
	// connects.
	Enabled         bool          `mapstructure:"enabled"`
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	AutoOffsetReset string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	RequestTopic    string        `mapstructure:"request_topic"`
	ResultTopic     string        `mapstructure:"result_topic"`
	DLQTopic        string        `mapstructure:"dlq_topic"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	BatchSize       int           `mapstructure:"batch_size"`
	Concurrency     int           `mapstructure:"concurrency"`

	SASLMechanism string `mapstructure:"sasl_mechanism"` // "" | PLAIN | SCRAM-SHA-256 | SCRAM-SHA-512
	SASLUsername  string `mapstructure:"sasl_username"`
	SASLPassword  string `mapstructure:"sasl_password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	TLSCertPath   string `mapstructure:"tls_cert_path"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
	Path      string `mapstructure:"path"`
}

// InferenceConfig bounds and defaults the formula searches.
type InferenceConfig struct {
	DefaultMaxCount          int           `mapstructure:"default_max_count"`
	MaxCountLimit            int           `mapstructure:"max_count_limit"`
	DefaultMassTolerance     float64       `mapstructure:"default_mass_tolerance"`
	DefaultFractionTolerance float64       `mapstructure:"default_fraction_tolerance"`
	MaxSearchSpace           float64       `mapstructure:"max_search_space"`
	Workers                  int           `mapstructure:"workers"` // 0 = GOMAXPROCS
	SolveTimeout             time.Duration `mapstructure:"solve_timeout"`
	CacheTTL                 time.Duration `mapstructure:"cache_ttl"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure shared by the API server, the
// worker and the CLI.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Inference InferenceConfig `mapstructure:"inference"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("config: server.rate_limit_rps must be >= 0, got %g", c.Server.RateLimitRPS)
	}

	// Redis
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}
	if c.Kafka.MaxRetries < 0 {
		return fmt.Errorf("config: kafka.max_retries must be ≥ 0, got %d", c.Kafka.MaxRetries)
	}

	// Inference
	inf := c.Inference
	if inf.MaxCountLimit < 1 {
		return fmt.Errorf("config: inference.max_count_limit must be ≥ 1, got %d", inf.MaxCountLimit)
	}
	if inf.DefaultMaxCount < 1 || inf.DefaultMaxCount > inf.MaxCountLimit {
		return fmt.Errorf("config: inference.default_max_count %d is out of range [1, %d]",
			inf.DefaultMaxCount, inf.MaxCountLimit)
	}
	if inf.DefaultMassTolerance <= 0 {
		return fmt.Errorf("config: inference.default_mass_tolerance must be > 0, got %g", inf.DefaultMassTolerance)
	}
	if inf.DefaultFractionTolerance <= 0 {
		return fmt.Errorf("config: inference.default_fraction_tolerance must be > 0, got %g", inf.DefaultFractionTolerance)
	}
	if inf.MaxSearchSpace < 1 {
		return fmt.Errorf("config: inference.max_search_space must be ≥ 1, got %g", inf.MaxSearchSpace)
	}
	if inf.Workers < 0 {
		return fmt.Errorf("config: inference.workers must be ≥ 0, got %d", inf.Workers)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

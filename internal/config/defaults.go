package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 60 * time.Second
	DefaultServerMaxBodySize     = 1 << 20
	DefaultServerShutdownTimeout = 15 * time.Second

	DefaultRedisKeyPrefix = "formula:"
	DefaultRedisPoolSize  = 10

	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaGroupID      = "formula-worker"
	DefaultKafkaRequestTopic = "formula.inference.requested"
	DefaultKafkaResultTopic  = "formula.inference.completed"
	DefaultKafkaDLQTopic     = "formula.inference.dlq"
	DefaultKafkaMaxRetries   = 3
	DefaultKafkaRetryBackoff = 500 * time.Millisecond
	DefaultKafkaConcurrency  = 2

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "formulainfer"
	DefaultMetricsPath      = "/metrics"

	DefaultMaxCount          = 10
	DefaultMaxCountLimit     = 100
	DefaultMassTolerance     = 0.2
	DefaultFractionTolerance = 0.5
	DefaultMaxSearchSpace    = 5e7
	DefaultSolveTimeout      = 30 * time.Second
	DefaultCacheTTL          = time.Hour
)

// ApplyDefaults fills every zero-value field in cfg with the default.
// Fields that have already been set (non-zero values) are left unchanged so
// that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultServerMaxBodySize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.RateLimitRPS > 0 && cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = int(2*cfg.Server.RateLimitRPS) + 1
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	// Addr stays empty unless configured; an empty address disables caching.
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.RequestTopic == "" {
		cfg.Kafka.RequestTopic = DefaultKafkaRequestTopic
	}
	if cfg.Kafka.ResultTopic == "" {
		cfg.Kafka.ResultTopic = DefaultKafkaResultTopic
	}
	if cfg.Kafka.DLQTopic == "" {
		cfg.Kafka.DLQTopic = DefaultKafkaDLQTopic
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = DefaultKafkaMaxRetries
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = DefaultKafkaRetryBackoff
	}
	if cfg.Kafka.Concurrency == 0 {
		cfg.Kafka.Concurrency = DefaultKafkaConcurrency
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Inference ─────────────────────────────────────────────────────────────
	if cfg.Inference.DefaultMaxCount == 0 {
		cfg.Inference.DefaultMaxCount = DefaultMaxCount
	}
	if cfg.Inference.MaxCountLimit == 0 {
		cfg.Inference.MaxCountLimit = DefaultMaxCountLimit
	}
	if cfg.Inference.DefaultMassTolerance == 0 {
		cfg.Inference.DefaultMassTolerance = DefaultMassTolerance
	}
	if cfg.Inference.DefaultFractionTolerance == 0 {
		cfg.Inference.DefaultFractionTolerance = DefaultFractionTolerance
	}
	if cfg.Inference.MaxSearchSpace == 0 {
		cfg.Inference.MaxSearchSpace = DefaultMaxSearchSpace
	}
	if cfg.Inference.SolveTimeout == 0 {
		cfg.Inference.SolveTimeout = DefaultSolveTimeout
	}
	if cfg.Inference.CacheTTL == 0 {
		cfg.Inference.CacheTTL = DefaultCacheTTL
	}
}

// Default returns a Config holding only defaults.
func Default() *Config {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	return cfg
}

package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/FormulaInfer/internal/config"
)

func TestDefault_PassesValidation(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10, cfg.Inference.DefaultMaxCount)
	assert.Equal(t, 100, cfg.Inference.MaxCountLimit)
	assert.Equal(t, 0.2, cfg.Inference.DefaultMassTolerance)
	assert.Equal(t, 0.5, cfg.Inference.DefaultFractionTolerance)
	assert.Equal(t, "formula.inference.requested", cfg.Kafka.RequestTopic)
	assert.False(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Metrics.Enabled)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	cfg.Server.Port = 9000
	cfg.Inference.DefaultMaxCount = 4
	cfg.Kafka.Brokers = []string{"kafka:29092"}
	config.ApplyDefaults(cfg)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Inference.DefaultMaxCount)
	assert.Equal(t, []string{"kafka:29092"}, cfg.Kafka.Brokers)
	assert.Equal(t, config.DefaultLogLevel, cfg.Log.Level)
}

func TestApplyDefaults_Nil(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { config.ApplyDefaults(nil) })
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantKey string
	}{
		{"port zero", func(c *config.Config) { c.Server.Port = 0 }, "server.port"},
		{"port too large", func(c *config.Config) { c.Server.Port = 65536 }, "server.port"},
		{"bad mode", func(c *config.Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"negative redis db", func(c *config.Config) { c.Redis.DB = -1 }, "redis.db"},
		{"no brokers", func(c *config.Config) { c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"no group", func(c *config.Config) { c.Kafka.GroupID = "" }, "kafka.group_id"},
		{"default above limit", func(c *config.Config) { c.Inference.DefaultMaxCount = 101 }, "inference.default_max_count"},
		{"zero limit", func(c *config.Config) { c.Inference.MaxCountLimit = 0 }, "inference.max_count_limit"},
		{"mass tolerance", func(c *config.Config) { c.Inference.DefaultMassTolerance = -0.1 }, "inference.default_mass_tolerance"},
		{"fraction tolerance", func(c *config.Config) { c.Inference.DefaultFractionTolerance = 0 }, "inference.default_fraction_tolerance"},
		{"search space", func(c *config.Config) { c.Inference.MaxSearchSpace = 0 }, "inference.max_search_space"},
		{"workers", func(c *config.Config) { c.Inference.Workers = -2 }, "inference.workers"},
		{"log level", func(c *config.Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *config.Config) { c.Log.Format = "text" }, "log.format"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantKey)
		})
	}
}

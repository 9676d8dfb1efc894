// Worker entry point: consumes inference jobs from Kafka and publishes their
// results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/FormulaInfer/internal/application/inference"
	"github.com/turtacn/FormulaInfer/internal/config"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/database/redis"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/FormulaInfer/internal/interfaces/http"
	"github.com/turtacn/FormulaInfer/internal/interfaces/http/handlers"
)

const (
	defaultHealthPort = 8081
	topicSetupTimeout = 15 * time.Second
	cacheWriteMargin  = 5 * time.Second

	// A live in-flight claim outlasts the solve budget by inFlightMargin;
	// a job that published its result is remembered for doneTTL.
	inFlightMargin = 30 * time.Second
	doneTTL        = 24 * time.Hour
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	concurrency := flag.Int("concurrency", 0, "number of consumers in the group (overrides kafka.concurrency)")
	healthPort := flag.Int("health-port", defaultHealthPort, "port serving /healthz, /readyz and metrics")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *concurrency > 0 {
		cfg.Kafka.Concurrency = *concurrency
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	if err := run(cfg, *healthPort, logger); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, healthPort int, logger logging.Logger) error {
	logger.Info("starting FormulaInfer worker",
		logging.String("version", version),
		logging.Strings("brokers", cfg.Kafka.Brokers),
		logging.String("topic", cfg.Kafka.RequestTopic),
		logging.Int("consumers", cfg.Kafka.Concurrency))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ensureTopics(ctx, cfg.Kafka, logger)

	// Metrics
	var (
		collector prometheus.MetricsCollector
		metrics   = prometheus.NewNopMetrics()
	)
	if cfg.Metrics.Enabled {
		c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			Subsystem:            cfg.Metrics.Subsystem,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		collector = c
		metrics = prometheus.NewAppMetrics(c)
	}

	// Result cache and duplicate-delivery claims share one Redis connection.
	opts := []inference.Option{inference.WithMetrics(metrics)}
	var (
		cache    redis.Cache
		checkers []handlers.HealthChecker
	)
	if cfg.Redis.Enabled() {
		rc, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer rc.Close()
		cache = redis.NewRedisCache(rc, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Inference.CacheTTL),
			redis.WithLoadTimeout(cfg.Inference.SolveTimeout+cacheWriteMargin))
		opts = append(opts, inference.WithCache(cache))
		checkers = append(checkers, handlers.NewChecker("redis", cache.Ping))
	}

	svc := inference.NewService(cfg.Inference, logger, opts...)

	producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer producer.Close()

	processor := inference.NewJobProcessor(svc, producer, cache, inference.JobProcessorConfig{
		ResultTopic: cfg.Kafka.ResultTopic,
		InFlightTTL: cfg.Inference.SolveTimeout + inFlightMargin,
		DoneTTL:     doneTTL,
	}, metrics, logger)

	consumerCfg := kafka.ConsumerConfigFrom(cfg.Kafka)
	consumerCfg.OnRetry = func(topic string, attempt int, err error) {
		metrics.JobRetriesTotal.WithLabelValues(topic).Inc()
	}

	consumers := make([]*kafka.Consumer, 0, cfg.Kafka.Concurrency)
	defer func() {
		for _, c := range consumers {
			if err := c.Close(); err != nil {
				logger.Warn("consumer close failed", logging.Err(err))
			}
		}
	}()
	for i := 0; i < cfg.Kafka.Concurrency; i++ {
		c, err := kafka.NewConsumer(consumerCfg, producer, logger.With(logging.Int("consumer", i)))
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		consumers = append(consumers, c)
		c.Subscribe(cfg.Kafka.RequestTopic, processor.Handle)
		if err := c.Start(ctx); err != nil {
			return err
		}
	}

	// Probes and metrics on a side port.
	health := httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:    handlers.NewHealthHandler(version, checkers...),
		Logger:           logger,
		Metrics:          metrics,
		MetricsCollector: collector,
		MetricsPath:      cfg.Metrics.Path,
	})
	srv := httpserver.NewServer(config.ServerConfig{
		Port:            healthPort,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, health, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal, draining consumers")
	}

	if err := srv.Stop(context.Background()); err != nil {
		logger.Warn("health server shutdown failed", logging.Err(err))
	}
	return nil
}

// ensureTopics creates the request, result and dead-letter topics when
// missing.  Brokers with auto-creation or restricted ACLs may refuse, so a
// failure is logged and the worker continues.
func ensureTopics(ctx context.Context, cfg config.KafkaConfig, logger logging.Logger) {
	tm, err := kafka.NewTopicManager(cfg.Brokers, logger)
	if err != nil {
		logger.Warn("topic manager unavailable, skipping topic setup", logging.Err(err))
		return
	}
	defer tm.Close()

	ctx, cancel := context.WithTimeout(ctx, topicSetupTimeout)
	defer cancel()
	if err := tm.EnsureTopics(ctx, kafka.DefaultTopics(cfg)); err != nil {
		logger.Warn("topic setup failed", logging.Err(err))
	}
}

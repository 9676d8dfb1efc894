// API server entry point for FormulaInfer.
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
	"github.com/turtacn/FormulaInfer/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var version = "dev"

// cacheWriteMargin is added to the solve timeout so a shared load can still
// store its result.
const cacheWriteMargin = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
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

	if err := run(cfg, *configPath, logger); err != nil {
		logger.Error("API server exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, logger logging.Logger) error {
	logger.Info("starting FormulaInfer API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port))

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

	// Result cache
	opts := []inference.Option{inference.WithMetrics(metrics)}
	var checkers []handlers.HealthChecker
	if cfg.Redis.Enabled() {
		rc, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer rc.Close()
		cache := redis.NewRedisCache(rc, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Inference.CacheTTL),
			redis.WithLoadTimeout(cfg.Inference.SolveTimeout+cacheWriteMargin))
		opts = append(opts, inference.WithCache(cache))
		checkers = append(checkers, handlers.NewChecker("redis", cache.Ping))
	}

	svc := inference.NewService(cfg.Inference, logger, opts...)

	// Job submission
	jobCfg := handlers.InferenceHandlerConfig{
		MaxBodySize: cfg.Server.MaxBodySize,
		JobTopic:    cfg.Kafka.RequestTopic,
		ResultTopic: cfg.Kafka.ResultTopic,
	}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer producer.Close()
		jobCfg.Jobs = producer
		logger.Info("inference jobs enabled", logging.String("topic", cfg.Kafka.RequestTopic))
	}

	var limiter middleware.RateLimiter
	if cfg.Server.RateLimitRPS > 0 {
		tb := middleware.NewTokenBucketLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, time.Minute)
		defer tb.Stop()
		limiter = tb
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		InferenceHandler: handlers.NewInferenceHandler(svc, jobCfg, logger),
		FormulaHandler:   handlers.NewFormulaHandler(svc, cfg.Server.MaxBodySize, logger),
		ElementHandler:   handlers.NewElementHandler(svc, logger),
		HealthHandler:    handlers.NewHealthHandler(version, checkers...),
		CORSOrigins:      cfg.Server.CORSOrigins,
		RateLimiter:      limiter,
		Logging:          middleware.DefaultLoggingConfig(),
		Logger:           logger,
		Metrics:          metrics,
		MetricsCollector: collector,
		MetricsPath:      cfg.Metrics.Path,
	})
	srv := httpserver.NewServer(cfg.Server, router, logger)

	if configPath != "" {
		watchConfig(configPath, logger)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	if err := srv.Stop(context.Background()); err != nil {
		return err
	}
	logger.Info("API server stopped")
	return nil
}

// watchConfig applies reloaded log levels at runtime.  Other settings take
// effect on restart.
func watchConfig(path string, logger logging.Logger) {
	setter, ok := logger.(logging.LevelSetter)
	if !ok {
		return
	}
	err := config.Watch(path,
		func(next *config.Config) {
			setter.SetLevel(next.Log.Level)
			logger.Info("configuration reloaded", logging.String("log_level", next.Log.Level))
		},
		func(err error) {
			logger.Warn("configuration reload rejected", logging.Err(err))
		})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}

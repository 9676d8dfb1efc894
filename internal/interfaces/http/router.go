package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FormulaInfer/internal/interfaces/http/handlers"
	"github.com/turtacn/FormulaInfer/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree.  Nil handlers leave their routes unregistered.
type RouterConfig struct {
	// Handlers
	InferenceHandler *handlers.InferenceHandler
	FormulaHandler   *handlers.FormulaHandler
	ElementHandler   *handlers.ElementHandler
	HealthHandler    *handlers.HealthHandler

	// Middleware
	CORSOrigins []string
	RateLimiter middleware.RateLimiter
	Logging     middleware.LoggingConfig

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter constructs the complete HTTP route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// --- Global middleware (applied to every request) ---
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(chimw.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins...)))
	}

	// --- Probes and scrape endpoint ---
	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	// --- API v1 ---
	r.Route("/api/v1", func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(middleware.RateLimit(cfg.RateLimiter, middleware.RateLimitConfig{}))
		}
		registerInferenceRoutes(api, cfg.InferenceHandler)
		registerFormulaRoutes(api, cfg.FormulaHandler)
		registerElementRoutes(api, cfg.ElementHandler)
	})

	return r
}

// registerInferenceRoutes mounts the solvers under /inference.
func registerInferenceRoutes(r chi.Router, h *handlers.InferenceHandler) {
	if h == nil {
		return
	}
	r.Route("/inference", func(ir chi.Router) {
		ir.Post("/", h.Infer)
		ir.Post("/unknown", h.Unknown)
		ir.Post("/brute-force", h.BruteForce)
		if h.JobsEnabled() {
			ir.Post("/jobs", h.SubmitJob)
		}
	})
}

func registerFormulaRoutes(r chi.Router, h *handlers.FormulaHandler) {
	if h == nil {
		return
	}
	r.Post("/formulas/parse", h.Parse)
}

func registerElementRoutes(r chi.Router, h *handlers.ElementHandler) {
	if h == nil {
		return
	}
	r.Route("/elements", func(er chi.Router) {
		er.Get("/", h.List)
		er.Get("/match", h.Match)
	})
}

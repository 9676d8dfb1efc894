package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric recorded by the FormulaInfer services.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Inference
	SolvesTotal        CounterVec
	SolveDuration      HistogramVec
	SolveSearchSpace   HistogramVec
	SolveResults       HistogramVec
	ActiveSolves       GaugeVec
	SearchSpaceRejects CounterVec

	// Result cache
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	// Worker
	JobsTotal       CounterVec
	JobDuration     HistogramVec
	JobRetriesTotal CounterVec

	ErrorsTotal CounterVec
}

var (
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultSolveDurationBuckets = []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 10, 30, 60}
	DefaultSearchSpaceBuckets   = []float64{1e1, 1e2, 1e3, 1e4, 1e5, 1e6, 1e7, 5e7, 1e8}
	DefaultResultCountBuckets   = []float64{0, 1, 2, 5, 10, 25, 50, 100, 500, 1000}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.SolvesTotal = collector.RegisterCounter("solves_total", "Formula inference solves", "mode", "status")
	m.SolveDuration = collector.RegisterHistogram("solve_duration_seconds", "Formula inference solve duration", DefaultSolveDurationBuckets, "mode")
	m.SolveSearchSpace = collector.RegisterHistogram("solve_search_space", "Estimated leaves visited per solve", DefaultSearchSpaceBuckets, "mode")
	m.SolveResults = collector.RegisterHistogram("solve_results", "Solutions returned per solve", DefaultResultCountBuckets, "mode")
	m.ActiveSolves = collector.RegisterGauge("active_solves", "Solves currently running", "mode")
	m.SearchSpaceRejects = collector.RegisterCounter("search_space_rejected_total", "Requests rejected for exceeding the search-space limit", "mode")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Result cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Result cache misses", "cache")

	m.JobsTotal = collector.RegisterCounter("jobs_total", "Asynchronous inference jobs processed", "status")
	m.JobDuration = collector.RegisterHistogram("job_duration_seconds", "Asynchronous inference job duration", DefaultSolveDurationBuckets, "status")
	m.JobRetriesTotal = collector.RegisterCounter("job_retries_total", "Asynchronous inference job retries", "topic")

	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

// RecordHTTPRequest records one completed HTTP request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSolve records one finished solve.  status is "ok", "error" or
// "cancelled".
func (m *AppMetrics) RecordSolve(mode, status string, duration time.Duration, searchSpace float64, results int) {
	m.SolvesTotal.WithLabelValues(mode, status).Inc()
	m.SolveDuration.WithLabelValues(mode).Observe(duration.Seconds())
	m.SolveSearchSpace.WithLabelValues(mode).Observe(searchSpace)
	if status == "ok" {
		m.SolveResults.WithLabelValues(mode).Observe(float64(results))
	}
}

// RecordCacheAccess records a cache lookup outcome.
func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordJob records one processed worker job.
func (m *AppMetrics) RecordJob(status string, duration time.Duration) {
	m.JobsTotal.WithLabelValues(status).Inc()
	m.JobDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordError counts an error by component and code.
func (m *AppMetrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

// NewNopMetrics returns AppMetrics whose vectors discard every observation.
func NewNopMetrics() *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:   noopCounterVec{},
		HTTPRequestDuration: noopHistogramVec{},
		HTTPActiveRequests:  noopGaugeVec{},
		SolvesTotal:         noopCounterVec{},
		SolveDuration:       noopHistogramVec{},
		SolveSearchSpace:    noopHistogramVec{},
		SolveResults:        noopHistogramVec{},
		ActiveSolves:        noopGaugeVec{},
		SearchSpaceRejects:  noopCounterVec{},
		CacheHitsTotal:      noopCounterVec{},
		CacheMissesTotal:    noopCounterVec{},
		JobsTotal:           noopCounterVec{},
		JobDuration:         noopHistogramVec{},
		JobRetriesTotal:     noopCounterVec{},
		ErrorsTotal:         noopCounterVec{},
	}
}

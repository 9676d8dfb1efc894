package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/prometheus"
)

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "mw"}, nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(Metrics(prometheus.NewAppMetrics(collector)))
	r.Get("/api/v1/elements/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/elements/Na", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/elements/Cl", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `mw_http_requests_total{method="GET",path="/api/v1/elements/{symbol}",status_code="418"} 2`)
	assert.Contains(t, string(body), `mw_http_requests_total{method="GET",path="unmatched",status_code="404"} 1`)
	assert.Contains(t, string(body), `mw_http_active_requests{method="GET"} 0`)
}

func TestMetrics_NilMetrics(t *testing.T) {
	handler := Metrics(nil)(okHandler())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

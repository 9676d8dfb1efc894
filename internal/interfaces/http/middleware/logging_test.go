package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FormulaInfer/internal/testutil"
)

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte("body"))
	})
}

func TestRequestLogging_Levels(t *testing.T) {
	tests := []struct {
		status int
		level  string
		msg    string
	}{
		{http.StatusOK, "info", "HTTP request completed"},
		{http.StatusBadRequest, "warn", "HTTP request completed with client error"},
		{http.StatusGatewayTimeout, "error", "HTTP request completed with server error"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			log := testutil.NewMockLogger()
			handler := chimw.RequestID(RequestLogging(log, DefaultLoggingConfig())(statusHandler(tt.status)))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/inference?x=1", nil))

			m, ok := log.Find(tt.level, tt.msg)
			require.True(t, ok)
			assert.Equal(t, "http", m.Logger)
			status, _ := m.Field("status")
			assert.Equal(t, tt.status, status)
			path, _ := m.Field("path")
			assert.Equal(t, "/api/v1/inference?x=1", path)
			bytes, _ := m.Field("bytes")
			assert.Equal(t, 4, bytes)
			reqID, _ := m.Field("request_id")
			assert.NotEmpty(t, reqID)
		})
	}
}

func TestRequestLogging_SkipPaths(t *testing.T) {
	log := testutil.NewMockLogger()
	handler := RequestLogging(log, DefaultLoggingConfig())(statusHandler(http.StatusOK))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, log.GetMessages())
}

func TestRequestLogging_Slow(t *testing.T) {
	log := testutil.NewMockLogger()
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
	})
	handler := RequestLogging(log, LoggingConfig{SlowThreshold: time.Millisecond})(slow)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/elements", nil))
	m, ok := log.Find("warn", "HTTP request completed (slow)")
	require.True(t, ok)
	status, _ := m.Field("status")
	assert.Equal(t, http.StatusOK, status)
}

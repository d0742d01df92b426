package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, reg *prometheus.Registry) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.Use(NewRequestLogger().Handler())
	promMw := NewPrometheusMiddleware("test", reg)
	r.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(r, reg)

	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"trace": c.GetString(TraceIDKey)})
	})
	r.GET("/fail", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestPrometheusMiddlewareMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := newRouter(t, reg)

	assert.Equal(t, http.StatusOK, get(r, "/ok").Code)
	assert.Equal(t, http.StatusInternalServerError, get(r, "/fail").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/missing").Code)

	families, err := reg.Gather()
	require.NoError(t, err)

	var durationFound, errorsFound bool
	for _, mf := range families {
		switch mf.GetName() {
		case "test_http_request_duration_seconds":
			durationFound = true
			assert.Len(t, mf.GetMetric(), 3)
		case "test_http_request_errors_total":
			errorsFound = true
			// 500 и 404
			assert.Len(t, mf.GetMetric(), 2)
		case "test_http_requests_inflight":
			assert.Equal(t, 0.0, mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, durationFound, "duration metric not found")
	assert.True(t, errorsFound, "errors metric not found")
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := newRouter(t, reg)

	get(r, "/ok")
	w := get(r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `test_http_request_duration_seconds_count{method="GET",path="/ok",status="200"} 1`))
}

func TestRequestLoggerSetsTraceID(t *testing.T) {
	r := newRouter(t, prometheus.NewRegistry())

	w := get(r, "/ok")
	traceID := w.Header().Get("X-Trace-Id")
	require.NotEmpty(t, traceID)
	assert.Contains(t, w.Body.String(), traceID)
}

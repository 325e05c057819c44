package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealth_AllServices(t *testing.T) {
	for _, cfg := range Catalog() {
		t.Run(cfg.Name, func(t *testing.T) {
			rec := serve(t, New(cfg), http.MethodGet, "/health")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

			var body HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "OK", body.Status)
			assert.Equal(t, cfg.Name, body.Service)
			_, err := time.Parse(time.RFC3339Nano, body.Timestamp)
			assert.NoError(t, err)
			assert.GreaterOrEqual(t, body.Uptime, 0.0)
		})
	}
}

func TestHealth_Scenario(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	app := New(Store, WithClock(func() time.Time { return now }, now.Add(-5200*time.Millisecond)))

	rec := serve(t, app, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "store-service", body["service"])
	assert.Equal(t, "2024-05-01T12:00:00.000Z", body["timestamp"])
	assert.InDelta(t, 5.2, body["uptime"], 1e-9)
	assert.NotContains(t, body, "action")
}

func TestRoot_AllServices(t *testing.T) {
	for _, cfg := range Catalog() {
		t.Run(cfg.Name, func(t *testing.T) {
			rec := serve(t, New(cfg), http.MethodGet, "/")
			require.Equal(t, http.StatusOK, rec.Code)

			var body Info
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "1.0.0", body.Version)
			assert.Equal(t, cfg.Title+" API", body.Message)
		})
	}
}

func TestRoot_Idempotent(t *testing.T) {
	app := New(Order)
	first := serve(t, app, http.MethodGet, "/").Body.String()
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, serve(t, app, http.MethodGet, "/").Body.String())
	}
	assert.JSONEq(t, `{"message":"Order Service API","version":"1.0.0"}`, first)
}

func TestUnknownRoutes(t *testing.T) {
	app := New(User)
	assert.Equal(t, http.StatusNotFound, serve(t, app, http.MethodGet, "/users").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, app, http.MethodGet, "/health/deep").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, app, http.MethodPost, "/health").Code)
}

func TestRequestID(t *testing.T) {
	app := New(User)

	rec := serve(t, app, http.MethodGet, "/")
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestMetrics(t *testing.T) {
	app := New(Store)
	serve(t, app, http.MethodGet, "/health")
	serve(t, app, http.MethodGet, "/missing")

	rec := serve(t, app.MetricsHandler(), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.True(t, strings.Contains(out, `http_requests_total{code="200",method="GET",route="/health",service="store-service"} 1`), out)
	assert.True(t, strings.Contains(out, `route="unmatched"`), out)
}

func TestMetrics_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	app := New(User, WithRegistry(reg))
	serve(t, app, http.MethodGet, "/")

	count, err := testutil.GatherAndCount(reg, "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLookup(t *testing.T) {
	cfg, ok := Lookup("store")
	require.True(t, ok)
	assert.Equal(t, Store, cfg)

	cfg, ok = Lookup("order-service")
	require.True(t, ok)
	assert.Equal(t, 3003, cfg.DefaultPort)

	_, ok = Lookup("payment")
	assert.False(t, ok)
}

func TestRouting_TrailingSlashAndCase(t *testing.T) {
	app := New(Store)
	for _, path := range []string{"/health/", "/HEALTH", "/Health/"} {
		rec := serve(t, app, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Empty(t, rec.Header().Get("Location"), path)
		assert.Contains(t, rec.Body.String(), `"service":"store-service"`, path)
	}
	assert.Equal(t, http.StatusNotFound, serve(t, app, http.MethodGet, "/health/extra/").Code)
}

func TestHead(t *testing.T) {
	app := New(User)
	for _, path := range []string{"/health", "/"} {
		assert.Equal(t, http.StatusOK, serve(t, app, http.MethodHead, path).Code, path)
	}
}

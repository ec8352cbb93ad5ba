package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"comanda/internal/metrics"

	"github.com/gin-gonic/gin"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/orders", rl.Handler(), func(c *gin.Context) { c.Status(http.StatusCreated) })
	return router
}

func postFrom(router *gin.Engine, addr string) int {
	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.RemoteAddr = addr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiterIsPerClient(t *testing.T) {
	collector := metrics.NewCollector()
	router := limitedRouter(NewRateLimiter(0.001, 2, collector))

	assert.Equal(t, http.StatusCreated, postFrom(router, "10.0.0.1:5000"))
	assert.Equal(t, http.StatusCreated, postFrom(router, "10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, postFrom(router, "10.0.0.1:5002"))
	assert.Equal(t, http.StatusCreated, postFrom(router, "10.0.0.2:5000"))

	count, err := promtest.GatherAndCount(collector.Registry(), "comanda_order_rejections_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 0, nil)
	assert.Nil(t, rl)

	router := limitedRouter(rl)
	for i := 0; i < 20; i++ {
		require.Equal(t, http.StatusCreated, postFrom(router, "10.0.0.1:5000"))
	}
	rl.Cleanup(0)
}

func TestRateLimiterCleanupEvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 2, nil)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.getLimiter("idle")
	now = now.Add(5 * time.Minute)
	rl.getLimiter("busy")

	rl.Cleanup(time.Minute)
	assert.Contains(t, rl.clients, "busy")
	assert.NotContains(t, rl.clients, "idle")
}

func TestRateLimiterCleanupKeepsThrottledClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, nil)
	router := limitedRouter(rl)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	require.Equal(t, http.StatusCreated, postFrom(router, "10.0.0.1:5000"))
	require.Equal(t, http.StatusTooManyRequests, postFrom(router, "10.0.0.1:5000"))

	// idle is shorter than the 1000s refill, so the empty bucket survives
	now = now.Add(2 * time.Minute)
	rl.Cleanup(time.Minute)
	assert.Equal(t, http.StatusTooManyRequests, postFrom(router, "10.0.0.1:5000"))
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	collector := metrics.NewCollector()
	router := gin.New()
	router.Use(Metrics(collector))
	router.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/orders/1", "/orders/2", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	// both order lookups share the route label
	count, err := promtest.GatherAndCount(collector.Registry(), "comanda_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

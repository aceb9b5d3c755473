package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growly/internal/config"
	"growly/internal/pkg/logger"
	"growly/internal/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCORS_AllowedOrigin(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"http://localhost:5173/"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	router.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"*"}))
	router.Use(func(c *gin.Context) { t.Fatal("preflight must not reach later middleware") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/admin/leads", nil)
	req.Header.Set("Origin", "https://anything.example")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://anything.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Requests: 2, Window: time.Minute})
	require.NotNil(t, rl)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok)

	ok, retry := rl.Allow("1.1.1.1")
	assert.False(t, ok)
	assert.InDelta(t, 30*time.Second, retry, float64(time.Second))

	// Buckets are per client.
	ok, _ = rl.Allow("2.2.2.2")
	assert.True(t, ok)

	now = now.Add(30 * time.Second)
	ok, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok)
}

func TestRateLimiter_ForgetsIdleClients(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Requests: 1, Window: time.Minute})
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("1.1.1.1")
	rl.Allow("2.2.2.2")
	assert.Len(t, rl.visitors, 2)

	now = now.Add(10 * time.Minute)
	rl.Allow("3.3.3.3")
	assert.Len(t, rl.visitors, 1)
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Requests: 1, Window: time.Minute})

	router := gin.New()
	router.POST("/leads", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/leads", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/leads", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Requests: 0, Window: time.Minute})
	assert.Nil(t, rl)

	router := gin.New()
	router.POST("/leads", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/leads", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	}
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	m := metrics.New()

	router := gin.New()
	router.Use(Metrics(m))
	router.GET("/api/admin/leads/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/leads/"+id, nil))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/admin/leads/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestErrorLogger_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(RequestID(), ErrorLogger(logger.NewWithWriter(&buf, "info")))
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, w.Body.String(), "kaboom")
	assert.Contains(t, buf.String(), "panic: kaboom")
}

func TestErrorLogger_LogsHandlerErrors(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(ErrorLogger(logger.NewWithWriter(&buf, "info")))
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("insert lead: connection refused"))
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Contains(t, buf.String(), "request_error")
	assert.Contains(t, buf.String(), "connection refused")
}

func TestErrorLogger_RedactsQueryToken(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(ErrorLogger(logger.NewWithWriter(&buf, "info")))
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("feed closed"))
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail?token=s3cret&page=2", nil))

	assert.Contains(t, buf.String(), "request_error")
	assert.NotContains(t, buf.String(), "s3cret")
	assert.Contains(t, buf.String(), "REDACTED")
	assert.Contains(t, buf.String(), "page=2")
}

func TestRedactedRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/leads/feed?token=s3cret", nil)
	req.Header.Set("Authorization", "Bearer s3cret")

	out := redactedRequest(req)

	assert.Equal(t, "token=REDACTED", out.URL.RawQuery)
	assert.Empty(t, out.Header.Get("Authorization"))
	// The live request is untouched.
	assert.Equal(t, "token=s3cret", req.URL.RawQuery)
	assert.Equal(t, "Bearer s3cret", req.Header.Get("Authorization"))

	plain := httptest.NewRequest(http.MethodGet, "/api/admin/leads?page=2", nil)
	assert.Equal(t, "page=2", redactedQuery(plain.URL))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger.NewWithWriter(&buf, "info")))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "rid-1")
	router.ServeHTTP(w, req)

	assert.Contains(t, buf.String(), `"request_id":"rid-1"`)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smregler-server/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeaders())
	router.GET("/is_alive", func(c *gin.Context) { c.String(http.StatusOK, "I'm alive! :)") })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/is_alive", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestCorrelationID(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CorrelationIDKey)) })

	t.Run("Generated", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))

		id := w.Header().Get(CorrelationIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("Propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CorrelationIDHeader, "caller-supplied")

		w := serve(router, req)
		assert.Equal(t, "caller-supplied", w.Header().Get(CorrelationIDHeader))
		assert.Equal(t, "caller-supplied", w.Body.String())
	})
}

func TestRequestTimeout(t *testing.T) {
	router := gin.New()
	router.Use(RequestTimeout(50 * time.Millisecond))
	router.GET("/", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
		c.Status(http.StatusNoContent)
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimit(t *testing.T) {
	t.Run("Rejects_Beyond_Burst", func(t *testing.T) {
		router := gin.New()
		router.Use(CorrelationID(), RateLimit(domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2}))
		router.POST("/v1/rules/validate", func(c *gin.Context) { c.Status(http.StatusOK) })

		codes := make([]int, 0, 3)
		var last *httptest.ResponseRecorder
		for i := 0; i < 3; i++ {
			last = serve(router, httptest.NewRequest(http.MethodPost, "/v1/rules/validate", nil))
			codes = append(codes, last.Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

		var apiErr domain.APIError
		require.NoError(t, json.Unmarshal(last.Body.Bytes(), &apiErr))
		assert.Equal(t, domain.ErrRateLimit, apiErr.Code)
		assert.Equal(t, last.Header().Get(CorrelationIDHeader), apiErr.RequestID)
		assert.Equal(t, "1", last.Header().Get("Retry-After"))
	})

	t.Run("Disabled", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimit(domain.RateLimitConfig{Enabled: false}))
		router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
		}
	})
}

func TestRecovery(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	gin.DefaultErrorWriter = &bytes.Buffer{}
	router := gin.New()
	router.Use(CorrelationID(), Recovery(logger))
	router.GET("/", func(c *gin.Context) { panic("boom") })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrInternalServer, apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	router := gin.New()
	router.Use(CorrelationID(), AuditLogger(logger))
	router.GET("/v1/rules", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	req := httptest.NewRequest(http.MethodGet, "/v1/rules", nil)
	req.Header.Set(CorrelationIDHeader, "audit-1")
	serve(router, req)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit-1", line["correlation_id"])
	assert.Equal(t, "/v1/rules", line["path"])
	assert.Equal(t, float64(http.StatusOK), line["status"])
	assert.Equal(t, "info", line["level"])
}

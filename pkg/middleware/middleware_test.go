package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinizap/zapvenda/pkg/models"
)

func TestRateLimiter_Allow(t *testing.T) {
	// 120 requests per minute (2 per second) with burst of 1
	rl := NewRateLimiter(120, 1)
	limiter := rl.GetLimiter("192.168.1.1")

	assert.True(t, limiter.Allow(), "First request should be allowed")
	assert.False(t, limiter.Allow(), "Second request should be blocked")

	// 0.5 seconds per token
	time.Sleep(600 * time.Millisecond)

	assert.True(t, limiter.Allow(), "Request should be allowed after refill")
}

func TestRateLimiter_DifferentIPs(t *testing.T) {
	rl := NewRateLimiter(2, 1)

	limiter1 := rl.GetLimiter("192.168.1.1")
	limiter2 := rl.GetLimiter("192.168.1.2")

	assert.True(t, limiter1.Allow())
	assert.True(t, limiter2.Allow())
	assert.False(t, limiter1.Allow())
	assert.False(t, limiter2.Allow())
	assert.Equal(t, 2, rl.Visitors())
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(60, 2)

	rl.GetLimiter("10.0.0.1").Allow() // active
	rl.GetLimiter("10.0.0.2")         // idle

	rl.Cleanup()

	assert.Equal(t, 1, rl.Visitors())
}

func TestRateLimitMiddleware(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(2, 1)
	handler := rl.RateLimitMiddleware()(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/funnels", nil)
	req1.RemoteAddr = "192.168.1.1:12345"
	rec1 := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req1, rec1)))
	assert.Equal(t, http.StatusOK, rec1.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/funnels", nil)
	req2.RemoteAddr = "192.168.1.1:12345"
	rec2 := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req2, rec2)))
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
}

func TestCORS(t *testing.T) {
	e := echo.New()
	e.Use(middleware.CORSWithConfig(CORSConfig([]string{"http://localhost:5173", "https://app.zapvenda.com.br"})))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	tests := []struct {
		name    string
		origin  string
		allowed bool
	}{
		{"dev frontend", "http://localhost:5173", true},
		{"production", "https://app.zapvenda.com.br", true},
		{"unknown", "https://evil.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			if tt.allowed {
				assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders(SecurityHeadersConfig{ReferrerPolicy: "no-referrer"}))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "wss:")
	assert.Equal(t, DefaultSecurityHeadersConfig().PermissionsPolicy, rec.Header().Get("Permissions-Policy"))
}

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rewards-backend/internal/middleware"
	"rewards-backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := services.NewJWTService("secret", time.Hour)
	token, _, err := jwtService.IssueToken("amy", 5)
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.GET("/me", middleware.AuthMiddleware(jwtService), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("account_id"))
	})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
		body   string
	}{
		{"bearer", "Bearer " + token, "", http.StatusOK, "amy"},
		{"query token", "", "?token=" + token, http.StatusOK, "amy"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"bad scheme", "Basic " + token, "", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Errorf("Expected account %q, got %q", tt.body, w.Body.String())
			}
		})
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/internal", middleware.APIKeyMiddleware("k3y"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for key, want := range map[string]int{
		"k3y":  http.StatusNoContent,
		"k3":   http.StatusUnauthorized,
		"":     http.StatusUnauthorized,
		"k3yy": http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodPost, "/internal", nil)
		req.Header.Set("X-API-Key", key)
		if w := serve(r, req); w.Code != want {
			t.Errorf("key %q: expected %d, got %d", key, want, w.Code)
		}
	}

	empty := gin.New()
	empty.POST("/internal", middleware.APIKeyMiddleware(""), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	if w := serve(empty, httptest.NewRequest(http.MethodPost, "/internal", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("Empty configured key must reject everything, got %d", w.Code)
	}
}

type countingLimiter struct {
	calls int
	err   error
}

func (l *countingLimiter) CheckRateLimit(_ context.Context, _, _ string, limit int, _ time.Duration) (bool, error) {
	l.calls++
	return l.calls <= limit, l.err
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := &countingLimiter{}

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("account_id", "ben") })
	r.POST("/play", middleware.RateLimitMiddleware(limiter, "play", 2, time.Minute, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i, code := range want {
		if w := serve(r, httptest.NewRequest(http.MethodPost, "/play", nil)); w.Code != code {
			t.Errorf("request %d: expected %d, got %d", i, code, w.Code)
		}
	}

	limiter.err = errors.New("redis down")
	limiter.calls = 0
	if w := serve(r, httptest.NewRequest(http.MethodPost, "/play", nil)); w.Code != http.StatusOK {
		t.Errorf("Limiter errors should fail open, got %d", w.Code)
	}

	open := gin.New()
	open.Use(func(c *gin.Context) { c.Set("account_id", "ben") })
	open.POST("/play", middleware.RateLimitMiddleware(nil, "play", 1, time.Minute, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	for i := 0; i < 3; i++ {
		if w := serve(open, httptest.NewRequest(http.MethodPost, "/play", nil)); w.Code != http.StatusOK {
			t.Errorf("Nil limiter should never block, got %d", w.Code)
		}
	}
}

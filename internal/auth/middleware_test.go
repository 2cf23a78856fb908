package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupRouter(t *testing.T, m *Middleware) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/api/books", m.RequireToken(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"auth": GetAuthType(c)})
	})
	return router
}

func post(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/books", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	req.RemoteAddr = "192.0.2.1:1234"
	router.ServeHTTP(w, req)
	return w
}

func hashFor(t *testing.T, token string) string {
	t.Helper()
	hash, err := HashToken(token, bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

func TestMiddleware_Disabled(t *testing.T) {
	m := NewMiddleware("  ", nil)
	assert.False(t, m.Enabled())

	w := post(setupRouter(t, m), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"none"`)
}

func TestMiddleware_ValidToken(t *testing.T) {
	m := NewMiddleware(hashFor(t, "secret-token"), nil)
	assert.True(t, m.Enabled())

	w := post(setupRouter(t, m), "Bearer secret-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bearer"`)

	w = post(setupRouter(t, m), "bearer secret-token")
	assert.Equal(t, http.StatusOK, w.Code, "scheme is case-insensitive")
}

func TestMiddleware_Rejects(t *testing.T) {
	m := NewMiddleware(hashFor(t, "secret-token"), nil)
	router := setupRouter(t, m)

	for _, header := range []string{"", "Bearer wrong", "Basic c2VjcmV0", "Bearer", "secret-token"} {
		w := post(router, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
		assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
	}
}

func TestMiddleware_LocksOutRepeatedFailures(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     2,
		WindowDuration:  time.Minute,
		LockoutDuration: time.Minute,
		CleanupInterval: time.Minute,
	})
	defer limiter.Stop()

	m := NewMiddleware(hashFor(t, "secret-token"), limiter)
	router := setupRouter(t, m)

	assert.Equal(t, http.StatusUnauthorized, post(router, "Bearer wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, post(router, "Bearer wrong").Code)

	w := post(router, "Bearer secret-token")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestMiddleware_MissingHeaderDoesNotCountAsFailure(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{MaxAttempts: 1})
	defer limiter.Stop()

	m := NewMiddleware(hashFor(t, "secret-token"), limiter)
	router := setupRouter(t, m)

	assert.Equal(t, http.StatusUnauthorized, post(router, "").Code)
	assert.Equal(t, http.StatusOK, post(router, "Bearer secret-token").Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"BEARER abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SecurityHeadersMiddleware(), StrictTransportSecurityMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	router.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

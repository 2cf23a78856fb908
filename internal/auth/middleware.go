package auth

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ContextKeyAuthType is the gin context key holding the AuthType of a request.
const ContextKeyAuthType = "auth_type"

// AuthType indicates how the request was authenticated
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBearer AuthType = "bearer"
)

var errMissingToken = errors.New("missing bearer token")

// Middleware checks bearer tokens against the configured hash.
type Middleware struct {
	tokenHash string
	limiter   *RateLimiter
}

// NewMiddleware creates the token middleware. An empty tokenHash disables
// authentication. limiter may be nil.
func NewMiddleware(tokenHash string, limiter *RateLimiter) *Middleware {
	return &Middleware{
		tokenHash: strings.TrimSpace(tokenHash),
		limiter:   limiter,
	}
}

// Enabled reports whether a token is required.
func (m *Middleware) Enabled() bool {
	return m.tokenHash != ""
}

// RequireToken returns a handler that rejects requests without a valid
// bearer token with 401. It lets everything through when authentication is
// disabled.
func (m *Middleware) RequireToken() gin.HandlerFunc {
	if !m.Enabled() {
		return func(c *gin.Context) {
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
		}
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()

		if m.limiter != nil {
			if allowed, retryAfter := m.limiter.Allow(ip); !allowed {
				abortTooMany(c, retryAfter)
				return
			}
		}

		if err := m.check(c); err != nil {
			if m.limiter != nil && !errors.Is(err, errMissingToken) {
				if locked, _ := m.limiter.RecordFailure(ip); locked {
					log.Printf("Locked out %s after repeated invalid tokens", ip)
				}
			}
			c.Header("WWW-Authenticate", `Bearer realm="bookstack"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
				"code":  "unauthorized",
			})
			return
		}

		if m.limiter != nil {
			m.limiter.RecordSuccess(ip)
		}
		c.Set(ContextKeyAuthType, AuthTypeBearer)
		c.Next()
	}
}

func (m *Middleware) check(c *gin.Context) error {
	token, ok := BearerToken(c.GetHeader("Authorization"))
	if !ok {
		return errMissingToken
	}
	return CheckToken(token, m.tokenHash)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is case-insensitive.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}

func abortTooMany(c *gin.Context, retryAfter time.Duration) {
	seconds := int(retryAfter.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": "too many failed authentication attempts",
		"code":  "rate_limited",
	})
}

package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/sessions"
	"github.com/snacktacular/snacktacular/backend/go-services/pkg/logger"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying the verified token claims.
func WithClaims(ctx context.Context, claims map[string]interface{}) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by the auth middleware.
func ClaimsFromContext(ctx context.Context) (map[string]interface{}, bool) {
	c, ok := ctx.Value(claimsKey{}).(map[string]interface{})
	return c, ok
}

// AuthMiddleware returns a Gin middleware that requires a valid Bearer token.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return authenticate(ver, false)
}

// OptionalAuthMiddleware lets anonymous requests through but still rejects
// a present token that is malformed, invalid or signed out.
func OptionalAuthMiddleware(ver Verifier) gin.HandlerFunc {
	return authenticate(ver, true)
}

func authenticate(ver Verifier, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			if optional {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		if ver == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication not configured"})
			return
		}
		// Expect 'Bearer <token>'
		var token string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		revoked, err := sessions.IsAccessTokenBlacklisted(c.Request.Context(), token)
		if err != nil {
			logger.Warnf("auth: blacklist lookup failed: %v", err)
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token signed out"})
			return
		}

		idToken, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}

		var claims map[string]interface{}
		if err := idToken.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}

		c.Set("claims", claims)
		c.Set("token", token)
		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// ClaimsUser resolves the signed-in user from request-context claims:
// the email claim, or the subject when no email is present.
type ClaimsUser struct{}

func (ClaimsUser) CurrentUser(ctx context.Context) (string, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	if email, _ := claims["email"].(string); email != "" {
		return email, true
	}
	if sub, _ := claims["sub"].(string); sub != "" {
		return sub, true
	}
	return "", false
}

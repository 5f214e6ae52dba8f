package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/sessions"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/tokens"
	"github.com/snacktacular/snacktacular/backend/go-services/pkg/logger"
	"github.com/snacktacular/snacktacular/backend/go-services/pkg/middleware"
)

// AuthHandler serves sign-out and the current-user lookup. Signing in is
// done against the identity provider; this service only verifies tokens.
type AuthHandler struct {
	verifier middleware.Verifier
	// fallbackTTL bounds the blacklist entry when a token carries no exp claim.
	fallbackTTL time.Duration
}

func NewAuthHandler(ver middleware.Verifier, fallbackTTL time.Duration) *AuthHandler {
	return &AuthHandler{verifier: ver, fallbackTTL: fallbackTTL}
}

// Register mounts /auth/logout and /api/v1/me on rg.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	if h.verifier == nil {
		rg.GET("/api/v1/me", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"signedIn": false, "message": "authentication not configured"})
		})
		return
	}
	rg.POST("/auth/logout", middleware.AuthMiddleware(h.verifier), h.Logout)
	rg.GET("/api/v1/me", middleware.OptionalAuthMiddleware(h.verifier), h.Me)
}

// Logout blacklists the caller's access token until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	if !sessions.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sign-out requires redis"})
		return
	}
	token := c.GetString("token")
	ttl := h.fallbackTTL
	if exp, err := tokens.ExpiresAt(token); err == nil {
		ttl = time.Until(exp)
	} else {
		logger.Debugf("logout: no usable exp claim, using %s: %v", ttl, err)
	}
	if ttl <= 0 {
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
		return
	}
	if err := sessions.BlacklistAccessToken(c.Request.Context(), token, ttl); err != nil {
		logger.Errorf("logout: failed to blacklist access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me reports who the request is attributed to when places are saved.
func (h *AuthHandler) Me(c *gin.Context) {
	user, signedIn := middleware.ClaimsUser{}.CurrentUser(c.Request.Context())
	if !signedIn {
		c.JSON(http.StatusOK, gin.H{"signedIn": false})
		return
	}
	claims, _ := middleware.ClaimsFromContext(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"signedIn": true, "user": user, "claims": claims})
}

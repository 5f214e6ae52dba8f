package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/snacktacular/snacktacular/backend/go-services/internal/sessions"
	"github.com/stretchr/testify/require"
)

// fakeToken implements Token
type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier implements Verifier
type fakeVerifier struct{}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	switch raw {
	case "goodtoken", "black-token":
		return &fakeToken{data: map[string]interface{}{"sub": "user1", "email": "test@example.com"}}, nil
	case "subonly":
		return &fakeToken{data: map[string]interface{}{"sub": "user2"}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func currentUserHandler(c *gin.Context) {
	user, ok := ClaimsUser{}.CurrentUser(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user": user, "signedIn": ok})
}

func serve(g *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) { c.Status(http.StatusOK) })
	require.Equal(t, http.StatusUnauthorized, serve(g, "").Code)
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) { c.Status(http.StatusOK) })
	require.Equal(t, http.StatusUnauthorized, serve(g, "BadHeader").Code)
	require.Equal(t, http.StatusUnauthorized, serve(g, "Bearer wrong").Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) {
		claims, ok := c.Get("claims")
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"claims": claims})
	})
	rw := serve(g, "Bearer goodtoken")
	require.Equal(t, http.StatusOK, rw.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Contains(t, got, "claims")
}

func TestOptionalAuthMiddleware_AnonymousAndSignedIn(t *testing.T) {
	g := gin.New()
	g.GET("/", OptionalAuthMiddleware(&fakeVerifier{}), currentUserHandler)

	var got struct {
		User     string `json:"user"`
		SignedIn bool   `json:"signedIn"`
	}
	rw := serve(g, "")
	require.Equal(t, http.StatusOK, rw.Code)
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.False(t, got.SignedIn)

	rw = serve(g, "Bearer goodtoken")
	require.Equal(t, http.StatusOK, rw.Code)
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.True(t, got.SignedIn)
	require.Equal(t, "test@example.com", got.User)

	rw = serve(g, "Bearer subonly")
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Equal(t, "user2", got.User)

	// a present but invalid token is still rejected
	require.Equal(t, http.StatusUnauthorized, serve(g, "Bearer nope").Code)
}

func TestOptionalAuthMiddleware_NoVerifier(t *testing.T) {
	g := gin.New()
	g.GET("/", OptionalAuthMiddleware(nil), currentUserHandler)
	require.Equal(t, http.StatusOK, serve(g, "").Code)
	require.Equal(t, http.StatusUnauthorized, serve(g, "Bearer goodtoken").Code)
}

func TestAuthMiddleware_RejectsBlacklistedToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	sessions.SetBlacklistClient(client)
	defer sessions.SetBlacklistClient(nil)

	token := "black-token"
	require.NoError(t, sessions.BlacklistAccessToken(context.Background(), token, 5*time.Second))

	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) { c.Status(http.StatusOK) })
	require.Equal(t, http.StatusUnauthorized, serve(g, "Bearer "+token).Code)
	require.Equal(t, http.StatusOK, serve(g, "Bearer goodtoken").Code)
}

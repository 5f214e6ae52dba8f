package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimitMiddleware_Basic(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(client, 1, 0, 1*time.Second)) // 1 req/sec, no burst
	r.GET("/r", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	// first request allowed
	rq1 := httptest.NewRequest("GET", "/r", nil)
	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, rq1)
	require.Equal(t, http.StatusOK, w1.Code)

	// immediate second request -> blocked
	rq2 := httptest.NewRequest("GET", "/r", nil)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, rq2)
	require.Equal(t, http.StatusTooManyRequests, w2.Code)

	// advance miniredis clock past window and request should be allowed
	m.FastForward(2 * time.Second)
	rq3 := httptest.NewRequest("GET", "/r", nil)
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, rq3)
	require.Equal(t, http.StatusOK, w3.Code)
}

func TestRedisRateLimitMiddleware_KeysBySubjectThenIP(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	r := gin.New()
	// stand-in for the auth middleware: X-Sub becomes the sub claim
	r.Use(func(c *gin.Context) {
		if sub := c.GetHeader("X-Sub"); sub != "" {
			c.Set("claims", map[string]interface{}{"sub": sub})
		}
		c.Next()
	})
	r.Use(RedisRateLimitMiddleware(client, 0.02, 0, time.Minute)) // one request per minute
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(sub, remote string) int {
		req := httptest.NewRequest("GET", "/r", nil)
		req.RemoteAddr = remote
		if sub != "" {
			req.Header.Set("X-Sub", sub)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, send("alice", "10.0.0.1:1000"))
	require.Equal(t, http.StatusTooManyRequests, send("alice", "10.0.0.9:1000"), "same subject from another IP shares the bucket")
	require.Equal(t, http.StatusOK, send("bob", "10.0.0.1:1000"), "other subject has its own bucket")
	require.Equal(t, http.StatusOK, send("", "10.0.0.1:1000"), "anonymous caller is keyed by IP")

	var subKeys, ipKeys int
	for _, k := range m.Keys() {
		switch {
		case strings.HasPrefix(k, "rl:sub:"):
			subKeys++
		case strings.HasPrefix(k, "rl:ip:10.0.0.1:"):
			ipKeys++
		}
	}
	require.Equal(t, 2, subKeys)
	require.Equal(t, 1, ipKeys)
}

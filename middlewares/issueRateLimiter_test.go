package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimitRouter(rdb *redis.Client, limit int, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var chain []gin.HandlerFunc
	if userID != "" {
		chain = append(chain, func(c *gin.Context) {
			c.Set("user_id", userID)
			c.Next()
		})
	}
	chain = append(chain, IssueRateLimiter(rdb, limit), func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"message": "created"})
	})
	r.POST("/issues", chain...)
	return r
}

func post(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/issues", nil))
	return w
}

func TestIssueRateLimiter(t *testing.T) {
	t.Run("rejects anonymous callers", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

		w := post(rateLimitRouter(rdb, 5, ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("allows up to the limit then blocks", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		r := rateLimitRouter(rdb, 2, "u1")

		assert.Equal(t, http.StatusCreated, post(r).Code)
		assert.Equal(t, http.StatusCreated, post(r).Code)

		w := post(r)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "retry_after")
	})

	t.Run("window expiry resets the counter", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		r := rateLimitRouter(rdb, 1, "u1")

		assert.Equal(t, http.StatusCreated, post(r).Code)
		assert.Equal(t, http.StatusTooManyRequests, post(r).Code)

		mr.FastForward(24*time.Hour + time.Second)

		assert.Equal(t, http.StatusCreated, post(r).Code)
	})

	t.Run("limits are per user", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

		require.Equal(t, http.StatusCreated, post(rateLimitRouter(rdb, 1, "u1")).Code)
		assert.Equal(t, http.StatusCreated, post(rateLimitRouter(rdb, 1, "u2")).Code)
	})

	t.Run("sets the window TTL on first hit only", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		r := rateLimitRouter(rdb, 5, "u1")

		post(r)
		ttl := mr.TTL("issue_limit:u1")
		assert.Equal(t, 24*time.Hour, ttl)

		mr.FastForward(time.Hour)
		post(r)
		assert.Equal(t, 23*time.Hour, mr.TTL("issue_limit:u1"))
	})
}

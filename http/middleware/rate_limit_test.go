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

	"github.com/tnqbao/gau-focus-service/infra"
	"github.com/tnqbao/gau-focus-service/utils"
)

func TestRateLimitBucketsAreKeyedWithSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := infra.NewRateLimiter(infra.NewRedisClient(client), 1, time.Minute)
	r := gin.New()
	r.POST("/",
		func(c *gin.Context) { c.Set(credentialKey, "key:demo-key") },
		RateLimitMiddleware(limiter, "bucket-secret"),
		func(c *gin.Context) { c.Status(http.StatusNoContent) },
	)

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		return w
	}

	first := send()
	require.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	bucket := "focus:ratelimit:" + utils.ComputeHMACSHA256("bucket-secret", "key:demo-key")
	assert.True(t, mr.Exists(bucket))
	assert.False(t, mr.Exists("focus:ratelimit:"+utils.ComputeHMACSHA256("", "key:demo-key")))
	for _, key := range mr.Keys() {
		assert.NotContains(t, key, "demo-key")
	}

	second := send()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

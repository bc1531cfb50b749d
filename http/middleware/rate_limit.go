package middlewares

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tnqbao/gau-focus-service/infra"
	"github.com/tnqbao/gau-focus-service/utils"
)

// RateLimitMiddleware limits requests per authenticated credential, falling
// back to the client IP. Credentials are keyed with secret before they reach
// the limiter.
func RateLimitMiddleware(limiter *infra.RateLimiter, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := c.GetString(credentialKey)
		if credential == "" {
			credential = "ip:" + c.ClientIP()
		}

		decision := limiter.Allow(c.Request.Context(), utils.ComputeHMACSHA256(secret, credential))
		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			utils.JSONError(c, http.StatusTooManyRequests, "Too many requests, please try again later", gin.H{
				"retryAfter": retryAfter,
			})
			return
		}

		c.Next()
	}
}

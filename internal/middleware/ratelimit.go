package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"campusdesk/api/internal/ratelimit"
)

// RateLimit counts the request against the scope's fixed window, keyed by
// client IP. Denials carry a Retry-After header and a machine-readable
// retry hint. A broken counter store fails open with an error log; the
// limiter is a brake, not an availability dependency.
func RateLimit(limiter *ratelimit.Limiter, policy ratelimit.Policy, scope string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()

		decision, err := limiter.Allow(c.Request.Context(), key, policy)
		if err != nil {
			log.Error().Err(err).Str("scope", scope).Msg("rate limit store unavailable")
			c.Next()
			return
		}

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             "rate_limited",
				"retryAfterSeconds": retryAfter,
			})
			return
		}

		c.Next()
	}
}

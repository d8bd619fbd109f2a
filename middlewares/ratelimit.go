package middlewares

import (
	"errors"
	"net/http"

	"debatetimer/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RateLimit caps how often an action may be requested per debate. Requests
// pass when the limiter has no Redis behind it or Redis fails.
func RateLimit(limiter *events.RateLimiter, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), action, c.Param("id"))
		if err != nil {
			if !errors.Is(err, events.ErrRedisUnavailable) {
				log.Warn().Err(err).Str("action", action).Msg("rate limiter failed, allowing request")
			}
			c.Next()
			return
		}
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}

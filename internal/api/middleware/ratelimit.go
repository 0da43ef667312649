package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/martius-lab/comprl/pkg/ratelimit"
)

// RateLimit throttles requests per client IP through a redis-backed bucket
// shared between server instances. Fails open when redis is unreachable so
// an outage never locks users out.
func RateLimit(limiter *ratelimit.RedisLimiter, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP(), limit, window)
		if err != nil {
			logger.Warn("Rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}

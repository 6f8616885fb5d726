package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"deployment-tracker/pkg/logger"

	"github.com/gin-gonic/gin"
)

// HitRecorder is notified when a request is rejected.
type HitRecorder interface {
	RateLimitHit(route string)
}

// KeyFunc extracts the counter key from a request.
type KeyFunc func(c *gin.Context) string

// ByClientIP keys counters on the client address.
func ByClientIP(c *gin.Context) string { return c.ClientIP() }

// Middleware rejects requests over the limit with 429. Limiter errors are
// logged and the request is let through.
func Middleware(l Limiter, route string, key KeyFunc, hits HitRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := l.Allow(c.Request.Context(), route+":"+key(c))
		if err != nil {
			logger.FromGin(c).Warn("rate limiter unavailable", "route", route, "err", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			if hits != nil {
				hits.RateLimitHit(route)
			}
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

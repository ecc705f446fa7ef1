package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/llamino/UrlShortener/internal/cache"
)

// RateLimitByIP returns a middleware enforcing a fixed-window request limit
// per client IP, backed by the fast cache so the limit holds across replicas.
// The first request in a window creates the counter with a one-minute expiry;
// every request increments it atomically.
//
// The limiter fails open: if the cache is unreachable the request proceeds,
// because dropping redirects over a rate-limiter outage would invert the
// feature's purpose.
func RateLimitByIP(c cache.Cache, perMinute int) gin.HandlerFunc {
	window := time.Minute

	return func(ctx *gin.Context) {
		key := cache.RateLimitKeyPrefix + ctx.ClientIP()

		count, err := c.IncrWithTTL(ctx.Request.Context(), key, window)
		if err != nil {
			log.Printf("WARNING: rate limiter unavailable, allowing request: %v", err)
			ctx.Next()
			return
		}

		if count > int64(perMinute) {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		ctx.Next()
	}
}

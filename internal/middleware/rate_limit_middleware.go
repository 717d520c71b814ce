package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/chowfast/chowfast-api/internal/logger"
	"github.com/chowfast/chowfast-api/internal/pkg/response"
)

// RateLimitConfig is one fixed-window limit.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// RateLimiter counts requests per client IP and route in Redis.
type RateLimiter struct {
	redisClient redis.UniversalClient
	enabled     bool
}

// NewRateLimiter returns a limiter. A nil client or enabled=false makes
// every Limit a pass-through.
func NewRateLimiter(redisClient redis.UniversalClient, enabled bool) *RateLimiter {
	return &RateLimiter{redisClient: redisClient, enabled: enabled && redisClient != nil}
}

// Limit allows cfg.MaxRequests per cfg.Window for each IP and route pattern.
// Redis failures let the request through.
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.enabled || cfg.MaxRequests <= 0 {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, clientIP, path)
		log := logger.WithComponent("rate_limiter").WithField("key", key)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		var (
			incr *redis.IntCmd
			ttl  *redis.DurationCmd
		)
		_, err := rl.redisClient.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttl = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			log.Warnf("redis error, allowing request: %v", err)
			c.Next()
			return
		}
		count := incr.Val()

		retryAfter := int(ttl.Val().Seconds())
		if ttl.Val() < 0 {
			// first hit of the window, or an earlier EXPIRE was lost
			if err := rl.redisClient.Expire(ctx, key, cfg.Window).Err(); err != nil {
				log.Warnf("failed to set ttl: %v", err)
			}
			retryAfter = int(cfg.Window.Seconds())
		}

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(retryAfter))

		if int(count) > cfg.MaxRequests {
			log.WithField("count", count).Warn("rate limit exceeded")
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				response.Error("Too many requests. Please try again later.", "rate_limited"))
			return
		}

		c.Next()
	}
}

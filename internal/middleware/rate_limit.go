package middleware

import (
	"context"
	"fmt"
	"time"

	"ngoconnect-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const rateLimitPrefix = "ratelimit:"

// RateLimit caps requests per client IP per minute using a fixed-window
// counter in Redis. Redis errors fail open: a broken counter store must not
// take the API down with it.
func RateLimit(rdb *redis.Client, perMinute int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if perMinute <= 0 {
			return c.Next()
		}
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("%s%s:%d", rateLimitPrefix, c.IP(), window)

		ctx := context.Background()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn().Err(err).Msg("Rate limit counter unavailable, allowing request")
			return c.Next()
		}
		if count == 1 {
			rdb.Expire(ctx, key, time.Minute)
		}
		if count > int64(perMinute) {
			c.Set("Retry-After", "60")
			return response.Error(c, "Too many requests, please try again later", fiber.StatusTooManyRequests, nil)
		}
		return c.Next()
	}
}

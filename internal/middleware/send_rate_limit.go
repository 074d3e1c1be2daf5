package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const sendRateLimitPrefix = "rl:send:"

// SendRateLimit caps send attempts per minute for the key returned by keyFn,
// falling back to the client IP when keyFn is nil or yields "". A nil cache
// disables the limit and cache errors fail open.
func SendRateLimit(cache *redis.Client, maxPerMin int, keyFn func(*fiber.Ctx) string) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := ""
		if keyFn != nil {
			subject = keyFn(c)
		}
		if subject == "" {
			subject = c.IP()
		}

		key := sendRateLimitPrefix + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many send attempts, try again later")
		}
		return c.Next()
	}
}

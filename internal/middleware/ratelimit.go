package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const faucetRateWindow = time.Minute

// FaucetRateLimit caps faucet requests per destination address per minute.
// Without Redis it is a no-op; Redis errors fail open.
func FaucetRateLimit(cache redis.Cmdable, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			Chain   string `json:"chain"`
			Address string `json:"address"`
		}
		_ = c.BodyParser(&req)
		subject := strings.TrimSpace(req.Chain) + ":" + strings.TrimSpace(req.Address)
		if subject == ":" {
			subject = c.IP()
		}
		key := "ghostchain:rl:faucet:" + subject

		ctx := c.UserContext()
		count, err := cache.Incr(ctx, key).Result()
		if err == nil && count == 1 {
			err = cache.Expire(ctx, key, faucetRateWindow).Err()
		}
		if err != nil {
			logger.Warn("faucet rate limit unavailable", slog.String("subject", subject), slog.Any("error", err))
			return c.Next()
		}
		if count > int64(maxPerMin) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return fiber.NewError(fiber.StatusTooManyRequests, "faucet limit reached for "+subject)
		}
		return c.Next()
	}
}

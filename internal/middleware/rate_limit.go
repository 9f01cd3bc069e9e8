package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit creates a per-viewer rate limiter. Authenticated requests are
// keyed by email so the broadcast heartbeat cadence of one teacher cannot
// starve another; anonymous requests fall back to the client IP.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			key := c.IP()
			if viewer, ok := ViewerFromRequest(c); ok && viewer.Email != "" {
				key = viewer.Email
			}
			return fmt.Sprintf("%s:%s", identifier, key)
		},
	})
}

package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes the Prometheus scrape endpoint via Fiber. Scrapes
// must never be cached by intermediaries between the portal and the
// collector.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	scrape := adaptor.HTTPHandler(promhttp.Handler())

	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-store")
		return scrape(c)
	}
}

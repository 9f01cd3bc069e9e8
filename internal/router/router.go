package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/sma-portal-api/internal/config"
	"github.com/noah-isme/sma-portal-api/internal/handler"
	"github.com/noah-isme/sma-portal-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AnnouncementHandler *handler.MessageHandler
	NotificationHandler *handler.MessageHandler
	AudioMessageHandler *handler.MessageHandler
	BroadcastHandler    *handler.BroadcastHandler
	TimetableHandler    *handler.TimetableHandler
	RosterHandler       *handler.RosterHandler
	ActivityHandler     *handler.ActivityHandler
	JWTMiddleware       fiber.Handler
	StaffMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AnnouncementHandler != nil {
		deps.AnnouncementHandler.Register(api.Group("/announcements", jwtMiddleware))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications", jwtMiddleware))
	}
	if deps.AudioMessageHandler != nil {
		deps.AudioMessageHandler.Register(api.Group("/audio-messages", jwtMiddleware))
	}

	if deps.BroadcastHandler != nil {
		deps.BroadcastHandler.Register(api.Group("/broadcasts", jwtMiddleware))
	}

	if deps.TimetableHandler != nil {
		deps.TimetableHandler.Register(api.Group("/timetables", jwtMiddleware))
	}

	if deps.RosterHandler != nil {
		deps.RosterHandler.Register(api.Group("/roster", jwtMiddleware))
	}

	if deps.ActivityHandler != nil {
		staff := deps.StaffMiddleware
		if staff == nil {
			staff = func(c *fiber.Ctx) error { return c.Next() }
		}
		deps.ActivityHandler.Register(api.Group("/activity", jwtMiddleware, staff))
	}
}

package dashboard

import (
	"github.com/gofiber/fiber/v2"
	"github.com/patpending/traintimes/config"
	"github.com/rs/zerolog"
)

func addRoutes(app *fiber.App, s *Server) {
	app.Use(NewLogger(s.logger))

	app.Get("/health", s.health)

	api := app.Group("/api")
	api.Get("/departures", s.departures)
	api.Get("/watched", s.watched)
	api.Get("/stations", s.stations)
	if s.Events != nil {
		api.Get("/events", s.Events.HandleConnection)
	}

	admin := app.Group("/admin", AdminAPIAccessMiddleware(s.Config, s.logger))
	admin.Post("/refresh", s.refresh)
	if s.Events != nil {
		admin.Get("/events/all", s.Events.HandleConnection)
	}
}

// AdminAPIAccessMiddleware only lets requests through whose Authorization header carries the
// admin token. With no token configured the admin routes are closed.
func AdminAPIAccessMiddleware(cfg config.ServerConfig, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(fiber.HeaderAuthorization)
		// Check if the token matches the expected admin token
		if cfg.AdminToken == "" || token != cfg.AdminToken {
			// Log the unauthorized access attempt with the remote address
			logger.Warn().Str("remote_addr", c.IP()).Str("path", c.Path()).Msg("Unauthorized access attempt")
			return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
		}
		return c.Next()
	}
}

package app

import (
	"github.com/epicwp/bulkagent/internal/api/v1/handlers"
	v1 "github.com/epicwp/bulkagent/internal/api/v1/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func NewApp(h *handlers.RunHandler) *fiber.App {
	app := fiber.New()

	// Middleware (e.g., logging, CORS)
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Register versioned routes
	v1.Register(app, h)

	return app
}

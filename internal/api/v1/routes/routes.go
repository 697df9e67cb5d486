package v1

import (
	"github.com/epicwp/bulkagent/internal/api/v1/handlers"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all the v1 routes
func SetupRoutes(router fiber.Router, h *handlers.RunHandler) {
	runs := router.Group("/runs")
	runs.Post("/", h.CreateRun)
	runs.Get("/", h.ListRuns)
	runs.Delete("/", h.ClearAll)
	runs.Get("/:id", h.GetRun)
	runs.Post("/:id/start", h.StartRun)
	runs.Post("/:id/pause", h.PauseRun)
	runs.Post("/:id/cancel", h.CancelRun)
	runs.Post("/:id/rollback", h.RollbackRun)
	runs.Post("/:id/jobs", h.ExtendRun)
}

// Register registers the v1 routes
func Register(app *fiber.App, h *handlers.RunHandler) {
	// API v1 routes
	v1Group := app.Group("/api/v1")
	SetupRoutes(v1Group, h)
}

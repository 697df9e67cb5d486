// Package handlers implements the HTTP handlers of the v1 API
package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/epicwp/bulkagent/internal/db/models"
	"github.com/epicwp/bulkagent/internal/services"
)

// RunHandler exposes run orchestration over HTTP
type RunHandler struct {
	runService *services.Run
	processor  services.JobProcessor
	engine     *services.RollbackEngine
}

// NewRunHandler creates a new run handler
func NewRunHandler(runService *services.Run, processor services.JobProcessor, engine *services.RollbackEngine) *RunHandler {
	return &RunHandler{
		runService: runService,
		processor:  processor,
		engine:     engine,
	}
}

// CreateRunRequest is the payload for creating a run
type CreateRunRequest struct {
	Task       string  `json:"task"`
	ProductIDs []int64 `json:"product_ids"`
}

// ExtendRunRequest is the payload for appending jobs to a run
type ExtendRunRequest struct {
	ProductIDs []int64 `json:"product_ids"`
}

// CreateRun creates a run with one job per product ID
func (h *RunHandler) CreateRun(c *fiber.Ctx) error {
	var req CreateRunRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid request body: %v", err),
		})
	}
	if req.Task == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "task is required",
		})
	}
	if len(req.ProductIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "product_ids is required",
		})
	}

	run, err := h.runService.Create(c.Context(), req.Task, req.ProductIDs)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to create run: %v", err),
		})
	}

	summary, err := h.runService.Summary(c.Context(), run)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to build run summary: %v", err),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(summary)
}

// ListRuns returns run summaries, optionally filtered to resumable runs
func (h *RunHandler) ListRuns(c *fiber.Ctx) error {
	availableOnly := c.QueryBool("available")

	opts := &models.ListOptions{}
	if limit := c.Query("limit"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid limit value",
			})
		}
		opts.Limit = parsed
	}

	summaries, err := h.runService.List(c.Context(), availableOnly, opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to list runs: %v", err),
		})
	}
	return c.JSON(fiber.Map{"runs": summaries})
}

// GetRun returns one run's summary and jobs
func (h *RunHandler) GetRun(c *fiber.Ctx) error {
	run, ok := h.resolveRun(c)
	if !ok {
		return nil
	}

	summary, err := h.runService.Summary(c.Context(), run)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to build run summary: %v", err),
		})
	}
	jobs, err := h.runService.Jobs(c.Context(), run.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to list jobs: %v", err),
		})
	}
	return c.JSON(fiber.Map{"run": summary, "jobs": jobs})
}

// StartRun processes the run's pending jobs until none remain. The request
// blocks for the duration of the run.
func (h *RunHandler) StartRun(c *fiber.Ctx) error {
	run, ok := h.resolveRun(c)
	if !ok {
		return nil
	}

	if err := h.runService.Start(c.Context(), run, h.processor); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, services.ErrRunFinished) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to start run: %v", err),
		})
	}

	summary, err := h.runService.Summary(c.Context(), run)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to build run summary: %v", err),
		})
	}
	return c.JSON(summary)
}

// PauseRun transitions a running run to paused
func (h *RunHandler) PauseRun(c *fiber.Ctx) error {
	run, ok := h.resolveRun(c)
	if !ok {
		return nil
	}

	paused, err := h.runService.Pause(c.Context(), run.ID)
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to pause run: %v", err),
		})
	}
	return c.JSON(paused)
}

// CancelRun cancels the run and its pending jobs
func (h *RunHandler) CancelRun(c *fiber.Ctx) error {
	run, ok := h.resolveRun(c)
	if !ok {
		return nil
	}

	cancelled, err := h.runService.Cancel(c.Context(), run.ID)
	if err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to cancel run: %v", err),
		})
	}
	return c.JSON(cancelled)
}

// RollbackRun applies all unapplied rollback records of every job in the run
func (h *RunHandler) RollbackRun(c *fiber.Ctx) error {
	run, ok := h.resolveRun(c)
	if !ok {
		return nil
	}

	applied, err := h.engine.RollbackRun(c.Context(), run.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to rollback run: %v", err),
		})
	}
	return c.JSON(fiber.Map{"applied": applied})
}

// ExtendRun appends jobs for products the run does not target yet
func (h *RunHandler) ExtendRun(c *fiber.Ctx) error {
	run, ok := h.resolveRun(c)
	if !ok {
		return nil
	}

	var req ExtendRunRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid request body: %v", err),
		})
	}

	added, err := h.runService.Extend(c.Context(), run.ID, req.ProductIDs)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to extend run: %v", err),
		})
	}
	return c.JSON(fiber.Map{"added": added})
}

// ClearAll deletes every run, job and rollback record
func (h *RunHandler) ClearAll(c *fiber.Ctx) error {
	counts, err := h.runService.ClearAll(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to clear: %v", err),
		})
	}
	return c.JSON(counts)
}

// resolveRun resolves the :id path parameter to a run. On failure it
// writes the error response and reports false.
func (h *RunHandler) resolveRun(c *fiber.Ctx) (*models.Run, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid run id",
		})
		return nil, false
	}

	run, err := h.runService.Get(c.Context(), uint(id))
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = fiber.StatusNotFound
		}
		_ = c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
		return nil, false
	}
	return run, true
}

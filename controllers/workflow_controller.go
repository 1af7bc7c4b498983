package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"fmail/utils"
	"fmail/workflow"
)

// WorkflowController serves the REST collaborator endpoints around the
// workflow engine: action history, hook management and aggregate stats.
type WorkflowController struct {
	engine *workflow.Engine
	logger *log.Logger
}

func NewWorkflowController(engine *workflow.Engine, logger *log.Logger) *WorkflowController {
	return &WorkflowController{
		engine: engine,
		logger: logger,
	}
}

// GetActions returns the user's recent action history.
func (wc *WorkflowController) GetActions(c *fiber.Ctx) error {
	userID := c.Params("userID")
	return c.JSON(utils.SuccessResponse(wc.engine.Actions().Recent(userID, 50)))
}

// GetHooks returns the user's hooks in insertion order.
func (wc *WorkflowController) GetHooks(c *fiber.Ctx) error {
	userID := c.Params("userID")
	return c.JSON(utils.SuccessResponse(wc.engine.Hooks().List(userID)))
}

// ToggleHook flips a hook's enabled flag.
func (wc *WorkflowController) ToggleHook(c *fiber.Ctx) error {
	userID := c.Params("userID")
	hookID := c.Params("hookID")

	enabled, err := wc.engine.Hooks().Toggle(userID, hookID)
	if err != nil {
		if errors.Is(err, workflow.ErrHookNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Hook not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to toggle hook", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"hook_id": hookID,
		"enabled": enabled,
	}))
}

// DeleteHook removes a hook; deleting an unknown hook succeeds silently.
func (wc *WorkflowController) DeleteHook(c *fiber.Ctx) error {
	userID := c.Params("userID")
	hookID := c.Params("hookID")

	wc.engine.Hooks().Delete(userID, hookID)
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"message": "Hook deleted",
	}))
}

// GetStats returns the engine-wide aggregate snapshot.
func (wc *WorkflowController) GetStats(c *fiber.Ctx) error {
	return c.JSON(utils.SuccessResponse(wc.engine.Stats()))
}

package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/guideline-agent/backend/internal/llm"
	"github.com/guideline-agent/backend/internal/models"
	"github.com/guideline-agent/backend/internal/pipeline"
	"github.com/guideline-agent/backend/pkg/logger"
)

// Runner is the single operation the ask endpoint needs from the pipeline.
type Runner interface {
	Run(ctx context.Context, query string, flags models.InclusionFlags) (*models.StructuredAnswer, error)
}

type AskHandler struct {
	runner Runner
}

func NewAskHandler(runner Runner) *AskHandler {
	return &AskHandler{
		runner: runner,
	}
}

// HandleAsk answers one clinical question. Inclusion flags missing from the
// body default to true, so the bare {"query": ...} form returns everything.
func (h *AskHandler) HandleAsk(c *fiber.Ctx) error {
	var req struct {
		Query      string `json:"query"`
		Local      *bool  `json:"local"`
		National   *bool  `json:"national"`
		Literature *bool  `json:"literature"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("failed to parse ask request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	flags := models.InclusionFlags{
		Local:      orTrue(req.Local),
		National:   orTrue(req.National),
		Literature: orTrue(req.Literature),
	}

	answer, err := h.runner.Run(c.Context(), req.Query, flags)
	if err != nil {
		return askError(c, err)
	}

	return c.JSON(answer)
}

func askError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": pipeline.ErrInvalidRequest.Error(),
		})
	case errors.Is(err, llm.ErrUpstream), errors.Is(err, llm.ErrParse):
		logger.Error("pipeline failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Unable to generate guidance at this time. Please try again.",
		})
	default:
		logger.Error("pipeline failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process question",
		})
	}
}

func orTrue(b *bool) bool {
	return b == nil || *b
}

package handlers

import (
	"net/url"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/guideline-agent/backend/internal/guidelines"
	"github.com/guideline-agent/backend/pkg/logger"
)

type GuidelineHandler struct {
	store *guidelines.Store
}

func NewGuidelineHandler(store *guidelines.Store) *GuidelineHandler {
	return &GuidelineHandler{
		store: store,
	}
}

// ListGuidelines returns every document currently in the directory.
func (h *GuidelineHandler) ListGuidelines(c *fiber.Ctx) error {
	docs := h.store.List()
	if docs == nil {
		docs = []guidelines.Document{}
	}
	return c.JSON(fiber.Map{
		"guidelines": docs,
	})
}

// ServeGuideline streams one guideline document by filename. The name must
// be a bare filename; anything that resolves outside the guideline directory
// is rejected.
func (h *GuidelineHandler) ServeGuideline(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("file"))
	if err != nil || name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid file name",
		})
	}

	if name != filepath.Base(name) || name[0] == '.' {
		logger.Warn("rejected guideline path",
			zap.String("file", name),
			zap.String("ip", c.IP()),
		)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid file name",
		})
	}

	path := filepath.Join(h.store.Dir(), name)
	if _, err := os.Stat(path); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Guideline not found",
		})
	}

	return c.SendFile(path)
}

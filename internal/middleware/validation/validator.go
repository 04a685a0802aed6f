package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	MaxQueryLength int
	Logger         *zap.Logger
}

// Middleware screens ask requests before they reach the pipeline: JSON body,
// string query, bounded length. Content screening stops there; clinical
// questions legitimately contain words like "drop" and "select" that keyword
// filters would reject.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = 2000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			contentType := c.Get("Content-Type")
			if contentType != "" && !strings.Contains(contentType, "application/json") {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"error": "Unsupported content type",
				})
			}
		}

		if c.Method() == fiber.MethodPost && strings.HasSuffix(c.Path(), "/ask") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			if raw, present := req["query"]; present {
				query, ok := raw.(string)
				if !ok {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Query must be a string",
					})
				}
				if len(query) > cfg.MaxQueryLength {
					cfg.Logger.Warn("query over length limit",
						zap.String("ip", c.IP()),
						zap.Int("length", len(query)),
					)
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Query exceeds maximum length",
					})
				}
			}
		}

		return c.Next()
	}
}

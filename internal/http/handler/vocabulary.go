package handler

import (
	"github.com/gofiber/fiber/v2"

	"qcportal/internal/config"
)

// GetVocabulary returns the configured dropdown lists.
func GetVocabulary(v *config.Vocabulary) fiber.Handler {
	if v == nil {
		v = config.DefaultVocabulary()
	}
	return func(c *fiber.Ctx) error {
		return c.JSON(v)
	}
}

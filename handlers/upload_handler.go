package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GenerateUploadSignature creates a secure signature for a frontend upload.
func (h *Handler) GenerateUploadSignature(c *fiber.Ctx) error {
	if h.Uploads == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "File uploads are not configured"})
	}

	sig, err := h.Uploads.Sign(time.Now())
	if err != nil {
		h.Logger.Error("Failed to sign upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sign upload params"})
	}
	return c.JSON(sig)
}

package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/anjiri1684/tutoring_portal/services"
	"github.com/anjiri1684/tutoring_portal/storage"
	"github.com/anjiri1684/tutoring_portal/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type uploadSigner interface {
	Sign(now time.Time) (*storage.UploadSignature, error)
}

// Handler carries the services every HTTP handler needs.
type Handler struct {
	Auth         *services.AuthService
	Availability *services.AvailabilityService
	Bookings     *services.BookingService
	Wizards      *services.WizardStore
	Moderation   *services.ModerationService
	Messaging    *services.MessagingService
	Notes        *services.NoteService
	Reports      *services.ReportService
	Uploads      uploadSigner
	Hub          *websocket.Hub
	Logger       *zap.Logger
}

func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return fiber.StatusBadRequest
	case services.KindConflict:
		return fiber.StatusConflict
	case services.KindTransient:
		return fiber.StatusServiceUnavailable
	case services.KindAuthorization:
		return fiber.StatusForbidden
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindUnauthenticated:
		return fiber.StatusUnauthorized
	}
	return fiber.StatusInternalServerError
}

// describe maps err to a status and a message that is safe to show.
func (h *Handler) describe(c *fiber.Ctx, err error) (int, string) {
	var se *services.Error
	if errors.As(err, &se) {
		if se.Kind == services.KindTransient {
			h.Logger.Warn("Transient failure",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.Error(err),
			)
		}
		return statusFor(se.Kind), se.Msg
	}

	h.Logger.Error("Unhandled error",
		zap.String("path", c.Path()),
		zap.String("method", c.Method()),
		zap.Error(err),
	)
	return fiber.StatusInternalServerError, "Internal server error"
}

func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	status, msg := h.describe(c, err)
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func idParam(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

func queryBool(c *fiber.Ctx, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

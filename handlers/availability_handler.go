package handlers

import (
	"github.com/anjiri1684/tutoring_portal/models"
	"github.com/anjiri1684/tutoring_portal/services"
	"github.com/gofiber/fiber/v2"
)

// GetAvailability returns slot availability for one date. When the store
// fails, the body still carries an availability with every slot closed.
func (h *Handler) GetAvailability(c *fiber.Ctx) error {
	avail, err := h.Availability.Resolve(c.UserContext(), c.Params("date"))
	if err != nil {
		status, msg := h.describe(c, err)
		if avail != nil && services.IsKind(err, services.KindTransient) {
			return c.Status(status).JSON(fiber.Map{"error": msg, "availability": avail})
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}
	return c.JSON(avail)
}

// GetDisabledDates lists the dates a date picker should grey out.
func (h *Handler) GetDisabledDates(c *fiber.Ctx) error {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" {
		from = h.Availability.Today().Format(models.DateLayout)
	}
	if to == "" {
		to = h.Availability.Today().AddDate(0, 0, 30).Format(models.DateLayout)
	}

	dates, err := h.Availability.DisabledDates(c.UserContext(), from, to)
	if err != nil {
		status, msg := h.describe(c, err)
		return c.Status(status).JSON(fiber.Map{"error": msg, "disabled_dates": dates})
	}
	return c.JSON(fiber.Map{"from": from, "to": to, "disabled_dates": dates, "slots": models.DailySlots})
}

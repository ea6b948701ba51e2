package handlers

import (
	"fmt"

	"github.com/anjiri1684/tutoring_portal/middleware"
	"github.com/anjiri1684/tutoring_portal/services"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListBookings(c *fiber.Ctx) error {
	paid, err := queryBool(c, "paid")
	if err != nil {
		return badRequest(c, "paid must be true or false")
	}

	page, err := h.Moderation.ListBookings(c.UserContext(), middleware.Session(c), services.BookingFilter{
		Status:   c.Query("status"),
		From:     c.Query("from"),
		To:       c.Query("to"),
		Paid:     paid,
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(page)
}

func (h *Handler) GetBooking(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid booking id")
	}
	booking, err := h.Moderation.GetBooking(c.UserContext(), middleware.Session(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(booking)
}

func (h *Handler) ConfirmBooking(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid booking id")
	}
	booking, err := h.Moderation.ConfirmBooking(c.UserContext(), middleware.Session(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(booking)
}

func (h *Handler) CancelBooking(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid booking id")
	}
	booking, err := h.Moderation.CancelBooking(c.UserContext(), middleware.Session(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(booking)
}

func (h *Handler) SetBookingPaid(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid booking id")
	}
	var req struct {
		IsPaid *bool `json:"is_paid"`
	}
	if err := c.BodyParser(&req); err != nil || req.IsPaid == nil {
		return badRequest(c, "is_paid is required")
	}

	booking, err := h.Moderation.SetPaid(c.UserContext(), middleware.Session(c), id, *req.IsPaid)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(booking)
}

func (h *Handler) DeleteBooking(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid booking id")
	}
	if err := h.Moderation.DeleteBooking(c.UserContext(), middleware.Session(c), id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ListBlockedDays(c *fiber.Ctx) error {
	days, err := h.Moderation.ListBlockedDays(c.UserContext(), middleware.Session(c), c.Query("from"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(days)
}

func (h *Handler) BlockDay(c *fiber.Ctx) error {
	var req struct {
		Date   string  `json:"date"`
		Reason *string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}

	day, err := h.Moderation.BlockDay(c.UserContext(), middleware.Session(c), req.Date, req.Reason)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(day)
}

func (h *Handler) UnblockDay(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid id")
	}
	if err := h.Moderation.UnblockDay(c.UserContext(), middleware.Session(c), id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ListBlockedSlots(c *fiber.Ctx) error {
	slots, err := h.Moderation.ListBlockedTimeSlots(c.UserContext(), middleware.Session(c), c.Query("from"), c.Query("to"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(slots)
}

func (h *Handler) BlockSlots(c *fiber.Ctx) error {
	var req struct {
		Date   string   `json:"date"`
		Times  []string `json:"times"`
		Reason *string  `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}

	slots, err := h.Moderation.BlockTimeSlots(c.UserContext(), middleware.Session(c), req.Date, req.Times, req.Reason)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(slots)
}

func (h *Handler) UnblockSlot(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid id")
	}
	if err := h.Moderation.UnblockTimeSlot(c.UserContext(), middleware.Session(c), id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.Moderation.Dashboard(c.UserContext(), middleware.Session(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(stats)
}

// ExportBookings streams the bookings of a date range as csv, xlsx or pdf.
func (h *Handler) ExportBookings(c *fiber.Ctx) error {
	sess := middleware.Session(c)
	from, to := c.Query("from"), c.Query("to")
	format := c.Query("format", "csv")

	var (
		body        []byte
		err         error
		contentType string
	)
	switch format {
	case "csv":
		body, err = h.Reports.BookingsCSV(c.UserContext(), sess, from, to)
		contentType = "text/csv; charset=utf-8"
	case "xlsx":
		body, err = h.Reports.BookingsXLSX(c.UserContext(), sess, from, to)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		body, err = h.Reports.BookingsPDF(c.UserContext(), sess, from, to)
		contentType = "application/pdf"
	default:
		return badRequest(c, "format must be csv, xlsx or pdf")
	}
	if err != nil {
		return h.respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="bookings_%s_%s.%s"`, from, to, format))
	return c.Send(body)
}

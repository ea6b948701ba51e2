package handlers

import (
	"github.com/anjiri1684/tutoring_portal/middleware"
	"github.com/anjiri1684/tutoring_portal/models"
	"github.com/anjiri1684/tutoring_portal/services"
	"github.com/gofiber/fiber/v2"
)

type CreateBookingRequest struct {
	SchoolType  string `json:"school_type"`
	Subject     string `json:"subject"`
	Level       string `json:"level"`
	ClassNumber int    `json:"class_number"`
	BookingDate string `json:"booking_date"`
	BookingTime string `json:"booking_time"`
	LessonType  string `json:"lesson_type"`
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Notes       string `json:"notes"`
}

// CreateBooking books a slot in one request, for clients that keep the
// wizard state themselves.
func (h *Handler) CreateBooking(c *fiber.Ctx) error {
	var req CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}

	classification, err := models.NewClassification(req.SchoolType, req.Subject, req.Level, req.ClassNumber)
	if err != nil {
		return badRequest(c, err.Error())
	}

	booking, err := h.Bookings.Create(c.UserContext(), middleware.Session(c), services.BookingRequest{
		Classification: classification,
		Date:           req.BookingDate,
		Time:           req.BookingTime,
		LessonType:     req.LessonType,
		Contact: services.Contact{
			FullName: req.FullName,
			Phone:    req.Phone,
			Email:    req.Email,
		},
		Notes: req.Notes,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"booking": booking, "celebrate": true})
}

func (h *Handler) GetMyBookings(c *fiber.Ctx) error {
	bookings, err := h.Bookings.ListMine(c.UserContext(), middleware.Session(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(bookings)
}

// LookupBooking matches on email, or on phone for bookings made without one.
func (h *Handler) LookupBooking(c *fiber.Ctx) error {
	contact := c.Query("email", c.Query("phone"))
	booking, err := h.Bookings.GetByReference(c.UserContext(), c.Query("reference"), contact)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(booking)
}

func (h *Handler) GetMyCalendar(c *fiber.Ctx) error {
	feed, err := h.Reports.StudentCalendar(c.UserContext(), middleware.Session(c))
	if err != nil {
		return h.respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="lessons.ics"`)
	return c.Send(feed)
}

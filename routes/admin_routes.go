package routes

import (
	"github.com/anjiri1684/tutoring_portal/handlers"
	"github.com/anjiri1684/tutoring_portal/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	admin := app.Group("/api/v1/admin", middleware.Protected(secret), middleware.AdminRequired())

	admin.Get("/dashboard", h.Dashboard)
	admin.Get("/users/lookup", h.LookupUser)
	admin.Get("/uploads/signature", h.GenerateUploadSignature)

	bookings := admin.Group("/bookings")
	bookings.Get("", h.ListBookings)
	bookings.Get("/export", h.ExportBookings)
	bookings.Get("/:id", h.GetBooking)
	bookings.Patch("/:id/confirm", h.ConfirmBooking)
	bookings.Patch("/:id/cancel", h.CancelBooking)
	bookings.Patch("/:id/paid", h.SetBookingPaid)
	bookings.Delete("/:id", h.DeleteBooking)

	days := admin.Group("/blocked-days")
	days.Get("", h.ListBlockedDays)
	days.Post("", h.BlockDay)
	days.Delete("/:id", h.UnblockDay)

	slots := admin.Group("/blocked-slots")
	slots.Get("", h.ListBlockedSlots)
	slots.Post("", h.BlockSlots)
	slots.Delete("/:id", h.UnblockSlot)

	threads := admin.Group("/threads")
	threads.Get("", h.ListThreads)
	threads.Post("", h.AdminStartThread)
	threads.Delete("/:id", h.DeleteThread)

	notes := admin.Group("/notes")
	notes.Get("", h.ListStudentNotes)
	notes.Post("", h.CreateNote)
	notes.Delete("/:id", h.DeleteNote)
}

package routes

import (
	"github.com/anjiri1684/tutoring_portal/handlers"
	"github.com/anjiri1684/tutoring_portal/middleware"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	api := app.Group("/api/v1")

	booking := api.Group("/bookings")
	booking.Post("", middleware.OptionalAuth(h.Auth), h.CreateBooking)
	booking.Get("/lookup", h.LookupBooking)
	booking.Get("/me", middleware.Protected(secret), h.GetMyBookings)
	booking.Get("/me/calendar.ics", middleware.Protected(secret), h.GetMyCalendar)

	wizard := api.Group("/booking-wizard", middleware.OptionalAuth(h.Auth))
	wizard.Post("", h.StartWizard)
	wizard.Get("/:id", h.GetWizard)
	wizard.Delete("/:id", h.DeleteWizard)
	wizard.Post("/:id/school-type", h.WizardSchoolType)
	wizard.Post("/:id/subject", h.WizardSubject)
	wizard.Post("/:id/level", h.WizardLevel)
	wizard.Post("/:id/class", h.WizardClass)
	wizard.Post("/:id/proceed", h.WizardProceed)
	wizard.Post("/:id/back", h.WizardBack)
	wizard.Post("/:id/date", h.WizardDate)
	wizard.Post("/:id/time", h.WizardTime)
	wizard.Post("/:id/contact", h.WizardContact)
	wizard.Post("/:id/submit", h.WizardSubmit)
	wizard.Post("/:id/close", h.WizardClose)
}

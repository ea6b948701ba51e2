package routes

import (
	"github.com/anjiri1684/tutoring_portal/handlers"
	"github.com/gofiber/fiber/v2"
)

func PublicRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	api.Get("/health", handlers.Health)
	api.Get("/availability", h.GetDisabledDates)
	api.Get("/availability/:date", h.GetAvailability)
}

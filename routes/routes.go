package routes

import (
	"github.com/anjiri1684/tutoring_portal/handlers"
	"github.com/gofiber/fiber/v2"
)

// Setup mounts every route group under /api/v1.
func Setup(app *fiber.App, h *handlers.Handler, secret string) {
	PublicRoutes(app, h)
	AuthRoutes(app, h, secret)
	BookingRoutes(app, h, secret)
	MessagingRoutes(app, h, secret)
	AdminRoutes(app, h, secret)
}

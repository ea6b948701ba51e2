package routes

import (
	"github.com/anjiri1684/tutoring_portal/handlers"
	"github.com/anjiri1684/tutoring_portal/middleware"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	auth := app.Group("/api/v1/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Get("/me", middleware.Protected(secret), h.Me)
}

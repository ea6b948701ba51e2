package routes

import (
	"github.com/anjiri1684/tutoring_portal/handlers"
	"github.com/anjiri1684/tutoring_portal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func MessagingRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	api := app.Group("/api/v1")

	protected := middleware.Protected(secret)

	threads := api.Group("/threads")
	threads.Post("", middleware.OptionalAuth(h.Auth), h.StartThread)
	threads.Get("/me", protected, h.ListMyThreads)
	threads.Get("/:id", protected, h.GetThread)
	threads.Post("/:id/entries", protected, h.AppendEntry)
	threads.Post("/:id/read", protected, h.MarkThreadRead)

	api.Get("/notes/me", protected, h.ListMyNotes)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(h.ServeWs))
}

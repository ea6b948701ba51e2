package handlers

import (
	"github.com/anjiri1684/tutoring_portal/middleware"
	"github.com/anjiri1684/tutoring_portal/services"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) Register(c *fiber.Ctx) error {
	var req services.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}

	user, err := h.Auth.Register(c.UserContext(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req services.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}

	token, user, err := h.Auth.Login(c.UserContext(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"token": token, "user": user})
}

func (h *Handler) Me(c *fiber.Ctx) error {
	user, err := h.Auth.Me(c.UserContext(), middleware.Session(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(user)
}

func (h *Handler) LookupUser(c *fiber.Ctx) error {
	result, err := h.Auth.LookupByEmail(c.UserContext(), middleware.Session(c), c.Query("email"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(result)
}

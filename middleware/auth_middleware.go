package middleware

import (
	"strings"

	"github.com/anjiri1684/tutoring_portal/services"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
)

const sessionKey = "session"

// Protected requires a valid token and stores the caller's session.
func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:     []byte(secret),
		SuccessHandler: storeSession,
		ErrorHandler:   jwtError,
	})
}

func storeSession(c *fiber.Ctx) error {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired JWT"})
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired JWT"})
	}
	sess, err := services.SessionFromClaims(claims)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired JWT"})
	}
	c.Locals(sessionKey, sess)
	return c.Next()
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing or malformed JWT"})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired JWT"})
}

type tokenParser interface {
	ParseToken(raw string) (services.Session, error)
}

// OptionalAuth lets anonymous visitors through. A token, when sent, must be
// valid.
func OptionalAuth(parser tokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			c.Locals(sessionKey, services.Anonymous())
			return c.Next()
		}

		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing or malformed JWT"})
		}
		sess, err := parser.ParseToken(raw)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired JWT"})
		}
		c.Locals(sessionKey, sess)
		return c.Next()
	}
}

func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !Session(c).IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Admin access required",
			})
		}
		return c.Next()
	}
}

// Session returns the caller's session, anonymous when none was stored.
func Session(c *fiber.Ctx) services.Session {
	if sess, ok := c.Locals(sessionKey).(services.Session); ok {
		return sess
	}
	return services.Anonymous()
}

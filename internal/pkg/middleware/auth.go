package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samduuf/elibrary/internal/pkg/usercontext"
)

// RequireAuth rejects anonymous requests with JSON 401.
func RequireAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "Authentication credentials were not provided",
		})
	}
	return c.Next()
}

// RequireAdmin allows only admin accounts.
func RequireAdmin(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "Authentication credentials were not provided",
		})
	}
	if !usercontext.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "Admin access required",
		})
	}
	return c.Next()
}

package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BoostACart/internal/pkg/session"
	"github.com/ManuelReschke/BoostACart/internal/pkg/storecontext"
)

// RequireAdmin ensures a logged-in operator session and returns JSON 401 otherwise.
func RequireAdmin(c *fiber.Ctx) error {
	user := session.AdminUser(c)
	if user == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "admin login required",
		})
	}
	storecontext.SetAdminUser(c, user)
	return c.Next()
}

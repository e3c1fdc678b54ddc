package storecontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BoostACart/app/models"
)

// Locals keys shared by middlewares and controllers
const (
	KeyStore     = "STORE_CONTEXT"
	KeyAdminUser = "ADMIN_USER"
)

// GetStore returns the store authenticated by API key, or nil.
func GetStore(c *fiber.Ctx) *models.Store {
	if s, ok := c.Locals(KeyStore).(*models.Store); ok {
		return s
	}
	return nil
}

// SetStore attaches the authenticated store to the request.
func SetStore(c *fiber.Ctx, store *models.Store) {
	c.Locals(KeyStore, store)
}

// GetAdminUser returns the operator name set by the admin middleware.
func GetAdminUser(c *fiber.Ctx) string {
	if v, ok := c.Locals(KeyAdminUser).(string); ok {
		return v
	}
	return ""
}

// SetAdminUser attaches the operator name to the request.
func SetAdminUser(c *fiber.Ctx, username string) {
	c.Locals(KeyAdminUser, username)
}

package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BoostACart/app/models"
	"github.com/ManuelReschke/BoostACart/app/repository"
	"github.com/ManuelReschke/BoostACart/internal/pkg/database"
	"github.com/ManuelReschke/BoostACart/internal/pkg/session"
	"github.com/ManuelReschke/BoostACart/internal/pkg/storecontext"
)

func TestAPIKeyAuthMiddleware(t *testing.T) {
	repos := repository.NewRepositories(database.NewTestDB(t))
	ctx := context.Background()

	store := &models.Store{Name: "Acme", ShopifyDomain: "acme.myshopify.com", Plan: "Free", MaxLeads: 50}
	require.NoError(t, repos.Store.Create(ctx, store))
	raw, err := store.IssueAPIKey()
	require.NoError(t, err)
	require.NoError(t, repos.Store.SaveAPIKey(ctx, store))

	app := fiber.New()
	app.Get("/me", APIKeyAuthMiddleware(repos.Store), func(c *fiber.Ctx) error {
		return c.SendString(storecontext.GetStore(c).ID)
	})

	tests := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{name: "missing", status: fiber.StatusUnauthorized},
		{name: "wrong key", header: "X-API-Key", value: "bac_nope", status: fiber.StatusUnauthorized},
		{name: "x-api-key", header: "X-API-Key", value: raw, status: fiber.StatusOK},
		{name: "bearer", header: "Authorization", value: "Bearer " + raw, status: fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	reloaded, err := repos.Store.GetByID(ctx, store.ID)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.APIKeyLastUsedAt)
}

func TestRequireAdmin(t *testing.T) {
	session.SetSessionStore(fibersession.New())
	t.Cleanup(func() { session.SetSessionStore(nil) })

	app := fiber.New()
	app.Post("/login", func(c *fiber.Ctx) error {
		return session.LoginAdmin(c, "operator")
	})
	app.Get("/secret", RequireAdmin, func(c *fiber.Ctx) error {
		return c.SendString(storecontext.GetAdminUser(c))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/secret", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest("GET", "/secret", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BoostACart/app/controllers"
	"github.com/ManuelReschke/BoostACart/internal/pkg/middleware"
	"github.com/ManuelReschke/BoostACart/internal/pkg/session"
)

type AdminRouter struct {
	svc *Services
}

func (h AdminRouter) InstallRouter(app *fiber.App) {
	// init session
	if session.GetSessionStore() == nil {
		session.NewSessionStore()
	}

	ac := controllers.NewAdminController(h.svc.Repos, h.svc.Ledger, h.svc.Auth, h.svc.Plans)

	app.Post("/admin/login", ac.HandleLogin)
	app.Post("/admin/logout", ac.HandleLogout)

	adminGroup := app.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/stores", ac.HandleStores)
	adminGroup.Post("/stores", ac.HandleCreateStore)
	adminGroup.Post("/stores/:id/plan", ac.HandleOverridePlan)
	adminGroup.Post("/stores/:id/api-key", ac.HandleRotateAPIKey)
	adminGroup.Post("/reconcile", ac.HandleReconcile)
}

func NewAdminRouter(svc *Services) *AdminRouter {
	return &AdminRouter{svc: svc}
}

package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/BoostACart/app/controllers"
	"github.com/ManuelReschke/BoostACart/internal/pkg/middleware"
)

type ApiRouter struct {
	svc *Services
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Public widget endpoints are called cross-origin from storefronts.
	widget := controllers.NewWidgetController(h.svc.Repos, h.svc.Ledger, h.svc.Admission, h.svc.Installations)
	widgetGroup := v1.Group("/widget", cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}), limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Storage:    h.svc.LimiterStorage,
	}))
	widgetGroup.Get("/:store/quota", widget.HandleQuota)
	widgetGroup.Get("/:store/config", widget.HandleConfig)
	widgetGroup.Post("/leads", limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		Storage:    h.svc.LimiterStorage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "leads:" + controllers.GetClientIP(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"accepted":   false,
				"reasonCode": "RATE_LIMITED",
				"message":    "Too many submissions, please wait a moment.",
			})
		},
	}), widget.HandleSubmitLead)
	widgetGroup.Post("/installed", widget.HandleInstalled)

	// Merchant dashboard
	dashboard := controllers.NewDashboardController(h.svc.Repos, h.svc.Ledger)
	dashboardGroup := v1.Group("/dashboard", middleware.APIKeyAuthMiddleware(h.svc.Repos.Store))
	dashboardGroup.Get("/usage", dashboard.HandleUsage)
	dashboardGroup.Get("/widget-settings", dashboard.HandleGetWidgetSettings)
	dashboardGroup.Put("/widget-settings", dashboard.HandleUpdateWidgetSettings)
	dashboardGroup.Get("/leads", dashboard.HandleListLeads)
}

func NewApiRouter(svc *Services) *ApiRouter {
	return &ApiRouter{svc: svc}
}

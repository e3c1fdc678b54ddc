package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BoostACart/app/repository"
	"github.com/ManuelReschke/BoostACart/internal/pkg/admin"
	"github.com/ManuelReschke/BoostACart/internal/pkg/admission"
	"github.com/ManuelReschke/BoostACart/internal/pkg/installation"
	"github.com/ManuelReschke/BoostACart/internal/pkg/quota"
)

// Router registers a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Services bundles what the controllers need.
type Services struct {
	Repos         *repository.Repositories
	Ledger        *quota.Ledger
	Admission     *admission.Service
	Installations *installation.Tracker
	Auth          *admin.Authenticator
	Plans         *admin.PlanService
	// LimiterStorage backs the widget rate limiter. Nil keeps counters in memory.
	LimiterStorage fiber.Storage
}

func InstallRouter(app *fiber.App, svc *Services) {
	// The admin router initializes the session store the admin middleware relies on.
	setup(app, NewAdminRouter(svc), NewApiRouter(svc))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

// ApplyProxyConfig lets c.IP() read header only on requests arriving from one of the
// trusted proxies. With no trusted proxies the socket address is always used.
func ApplyProxyConfig(cfg *fiber.Config, trusted []string, header string) {
	cfg.EnableTrustedProxyCheck = true
	cfg.TrustedProxies = trusted
	cfg.ProxyHeader = ""
	if len(trusted) == 0 {
		return
	}
	if header == "" {
		header = fiber.HeaderXForwardedFor
	}
	cfg.ProxyHeader = header
	cfg.EnableIPValidation = true
}

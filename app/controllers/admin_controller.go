package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BoostACart/app/models"
	"github.com/ManuelReschke/BoostACart/app/repository"
	"github.com/ManuelReschke/BoostACart/internal/pkg/admin"
	"github.com/ManuelReschke/BoostACart/internal/pkg/entitlements"
	"github.com/ManuelReschke/BoostACart/internal/pkg/quota"
	"github.com/ManuelReschke/BoostACart/internal/pkg/session"
	"github.com/ManuelReschke/BoostACart/internal/pkg/storecontext"
)

// AdminController serves the operator API.
type AdminController struct {
	repos    *repository.Repositories
	ledger   *quota.Ledger
	auth     *admin.Authenticator
	plans    *admin.PlanService
	validate *validator.Validate
}

// NewAdminController creates an admin controller.
func NewAdminController(repos *repository.Repositories, ledger *quota.Ledger, auth *admin.Authenticator, plans *admin.PlanService) *AdminController {
	return &AdminController{
		repos:    repos,
		ledger:   ledger,
		auth:     auth,
		plans:    plans,
		validate: validator.New(),
	}
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type createStoreRequest struct {
	Name          string `json:"name" validate:"required,max=150"`
	ShopifyDomain string `json:"shopifyDomain" validate:"required,fqdn,max=255"`
	Domain        string `json:"domain" validate:"omitempty,max=255"`
	Plan          string `json:"plan" validate:"omitempty,oneof=Free Starter Pro free starter pro"`
}

type planRequest struct {
	Plan string `json:"plan" form:"plan"`
}

// HandleLogin checks operator credentials and starts a session.
func (ac *AdminController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	err := ac.auth.Login(c.UserContext(), GetClientIP(c), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		var locked *admin.LockedError
		var invalid *admin.InvalidCredentialsError
		switch {
		case errors.As(err, &locked):
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(locked.RetryAfter.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":             "locked",
				"message":           err.Error(),
				"retryAfterSeconds": int(locked.RetryAfter.Seconds()),
			})
		case errors.As(err, &invalid):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":             "invalid_credentials",
				"message":           "Invalid username or password",
				"remainingAttempts": invalid.Remaining,
			})
		case errors.Is(err, admin.ErrNotConfigured):
			return errorJSON(c, fiber.StatusServiceUnavailable, "not_configured", "Admin login is not configured")
		default:
			log.Errorf("[Admin] Login failed: %v", err)
			return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
		}
	}

	if err := session.LoginAdmin(c, strings.TrimSpace(req.Username)); err != nil {
		log.Errorf("[Admin] Session start failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Login failed")
	}
	return c.JSON(fiber.Map{"success": true})
}

// HandleLogout ends the operator session.
func (ac *AdminController) HandleLogout(c *fiber.Ctx) error {
	if err := session.LogoutAdmin(c); err != nil {
		log.Warnf("[Admin] Logout failed: %v", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// HandleStores lists or searches stores with their live usage.
func (ac *AdminController) HandleStores(c *fiber.Ctx) error {
	ctx := c.UserContext()
	page, limit, offset := pagination(c)

	var (
		stores []models.Store
		err    error
	)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		stores, err = ac.repos.Store.Search(ctx, q)
	} else {
		stores, err = ac.repos.Store.List(ctx, offset, limit)
	}
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load stores")
	}

	usage, err := ac.ledger.ListUsage(ctx, stores)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load usage")
	}

	items := make([]fiber.Map, 0, len(stores))
	for i := range stores {
		s := stores[i]
		items = append(items, fiber.Map{
			"id":            s.ID,
			"name":          s.Name,
			"shopifyDomain": s.ShopifyDomain,
			"plan":          s.Plan,
			"installed":     s.Installed,
			"installedAt":   formatTimePtr(s.InstalledAt),
			"totalLeads":    s.TotalLeads,
			"hasApiKey":     s.HasActiveAPIKey(),
			"usage":         usage[s.ID],
		})
	}
	return c.JSON(fiber.Map{"stores": items, "page": page, "limit": limit})
}

// HandleCreateStore onboards a store and returns its first dashboard API key.
func (ac *AdminController) HandleCreateStore(c *fiber.Ctx) error {
	var req createStoreRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	req.ShopifyDomain = strings.ToLower(strings.TrimSpace(req.ShopifyDomain))
	if err := ac.validate.Struct(req); err != nil {
		return errorJSON(c, fiber.StatusUnprocessableEntity, "validation_error", err.Error())
	}
	ctx := c.UserContext()

	if _, err := ac.repos.Store.GetByShopifyDomain(ctx, req.ShopifyDomain); err == nil {
		return errorJSON(c, fiber.StatusConflict, "conflict", "Store already exists")
	}

	plan := entitlements.NormalizePlan(req.Plan)
	store := &models.Store{
		Name:          strings.TrimSpace(req.Name),
		Domain:        strings.TrimSpace(req.Domain),
		ShopifyDomain: req.ShopifyDomain,
		Plan:          string(plan),
		MaxLeads:      entitlements.MaxLeadsPerMonth(plan),
	}
	rawKey, err := store.IssueAPIKey()
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to generate API key")
	}

	err = ac.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Store.Create(ctx, store); err != nil {
			return err
		}
		return tx.WidgetSettings.Upsert(ctx, models.DefaultWidgetSettings(store.ID))
	})
	if err != nil {
		log.Errorf("[Admin] Creating store %s failed: %v", req.ShopifyDomain, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create store")
	}

	log.Infof("[Admin] %s onboarded store %s (%s)", storecontext.GetAdminUser(c), store.ID, store.ShopifyDomain)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"store":  store,
		"apiKey": rawKey,
	})
}

// HandleOverridePlan changes a store's plan.
func (ac *AdminController) HandleOverridePlan(c *fiber.Ctx) error {
	var req planRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	change, err := ac.plans.OverridePlan(c.UserContext(), c.Params("id"), req.Plan)
	if err != nil {
		switch {
		case errors.Is(err, admin.ErrUnknownPlan):
			return errorJSON(c, fiber.StatusUnprocessableEntity, "validation_error", err.Error())
		case errors.Is(err, quota.ErrStoreNotFound):
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Store not found")
		default:
			log.Errorf("[Admin] Plan override for %s failed: %v", c.Params("id"), err)
			return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update plan")
		}
	}

	log.Infof("[Admin] %s changed plan of store %s to %s", storecontext.GetAdminUser(c), change.StoreID, change.Plan)
	return c.JSON(change)
}

// HandleRotateAPIKey issues a new dashboard API key and invalidates the old one.
func (ac *AdminController) HandleRotateAPIKey(c *fiber.Ctx) error {
	ctx := c.UserContext()
	store, err := ac.repos.Store.GetByID(ctx, c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "not_found", "Store not found")
	}

	rawKey, err := store.IssueAPIKey()
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to generate API key")
	}
	if err := ac.repos.Store.SaveAPIKey(ctx, store); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save API key")
	}

	return c.JSON(fiber.Map{
		"apiKey":       rawKey,
		"apiKeyPrefix": store.APIKeyPrefix,
		"createdAt":    formatTimePtr(store.APIKeyCreatedAt),
	})
}

// HandleReconcile repairs every stored plan ceiling.
func (ac *AdminController) HandleReconcile(c *fiber.Ctx) error {
	changed, err := ac.ledger.ReconcileAll(c.UserContext())
	if err != nil {
		log.Errorf("[Admin] Reconcile failed after %d changes: %v", changed, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Reconcile finished with errors",
			"changed": changed,
		})
	}
	return c.JSON(fiber.Map{"success": true, "changed": changed})
}

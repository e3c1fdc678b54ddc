package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BoostACart/app/repository"
	"github.com/ManuelReschke/BoostACart/internal/pkg/quota"
	"github.com/ManuelReschke/BoostACart/internal/pkg/storecontext"
)

// DashboardController serves the merchant dashboard API. Every route runs behind the
// store API key middleware.
type DashboardController struct {
	repos  *repository.Repositories
	ledger *quota.Ledger
}

// NewDashboardController creates a dashboard controller.
func NewDashboardController(repos *repository.Repositories, ledger *quota.Ledger) *DashboardController {
	return &DashboardController{repos: repos, ledger: ledger}
}

// HandleUsage returns the store's usage meter.
func (dc *DashboardController) HandleUsage(c *fiber.Ctx) error {
	store := storecontext.GetStore(c)
	if store == nil {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	usage, err := dc.ledger.UsageOf(c.UserContext(), dc.repos.Lead, store)
	if err != nil {
		log.Errorf("[Dashboard] Usage for store %s failed: %v", store.ID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load usage")
	}

	return c.JSON(fiber.Map{
		"store": fiber.Map{
			"id":            store.ID,
			"name":          store.Name,
			"shopifyDomain": store.ShopifyDomain,
			"installed":     store.Installed,
			"installedAt":   formatTimePtr(store.InstalledAt),
			"totalLeads":    store.TotalLeads,
		},
		"usage": usage,
	})
}

// HandleGetWidgetSettings returns the stored settings or the defaults.
func (dc *DashboardController) HandleGetWidgetSettings(c *fiber.Ctx) error {
	store := storecontext.GetStore(c)
	if store == nil {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	settings, err := dc.repos.WidgetSettings.GetByStoreID(c.UserContext(), store.ID)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load widget settings")
	}
	return c.JSON(settings)
}

// HandleUpdateWidgetSettings merges the body into the current settings, validates and saves.
func (dc *DashboardController) HandleUpdateWidgetSettings(c *fiber.Ctx) error {
	store := storecontext.GetStore(c)
	if store == nil {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}
	ctx := c.UserContext()

	settings, err := dc.repos.WidgetSettings.GetByStoreID(ctx, store.ID)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load widget settings")
	}
	if err := c.BodyParser(settings); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	settings.StoreID = store.ID

	if err := settings.Validate(); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":   "validation_error",
				"message": "Invalid widget settings",
				"fields":  fields,
			})
		}
		return errorJSON(c, fiber.StatusUnprocessableEntity, "validation_error", err.Error())
	}

	if err := dc.repos.WidgetSettings.Upsert(ctx, settings); err != nil {
		log.Errorf("[Dashboard] Saving widget settings for store %s failed: %v", store.ID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save widget settings")
	}
	return c.JSON(settings)
}

// HandleListLeads returns the store's leads, newest first.
func (dc *DashboardController) HandleListLeads(c *fiber.Ctx) error {
	store := storecontext.GetStore(c)
	if store == nil {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}
	ctx := c.UserContext()
	page, limit, offset := pagination(c)

	leads, err := dc.repos.Lead.ListByStore(ctx, store.ID, offset, limit)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load leads")
	}
	total, err := dc.repos.Lead.CountByStore(ctx, store.ID)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count leads")
	}

	return c.JSON(fiber.Map{
		"leads": leads,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

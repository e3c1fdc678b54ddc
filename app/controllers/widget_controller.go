package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BoostACart/app/repository"
	"github.com/ManuelReschke/BoostACart/internal/pkg/admission"
	"github.com/ManuelReschke/BoostACart/internal/pkg/installation"
	"github.com/ManuelReschke/BoostACart/internal/pkg/metrics"
	"github.com/ManuelReschke/BoostACart/internal/pkg/quota"
)

const quotaExhaustedMessage = "Plan limit reached. Upgrade to continue collecting leads."

// WidgetController serves the public endpoints called by the storefront widget.
type WidgetController struct {
	repos     *repository.Repositories
	ledger    *quota.Ledger
	admission *admission.Service
	installs  *installation.Tracker
}

// NewWidgetController creates a widget controller.
func NewWidgetController(repos *repository.Repositories, ledger *quota.Ledger, svc *admission.Service, installs *installation.Tracker) *WidgetController {
	return &WidgetController{repos: repos, ledger: ledger, admission: svc, installs: installs}
}

// LeadRequest is the body of a lead submission.
type LeadRequest struct {
	StoreID         string `json:"storeId"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	DetectedProduct string `json:"detectedProduct"`
	ProductID       string `json:"productId"`
}

// InstalledRequest is the body of an installation ping.
type InstalledRequest struct {
	ShopifyDomain string `json:"shopifyDomain"`
}

// HandleQuota answers whether the widget should render the form at all. It is advisory;
// the submission re-checks.
func (wc *WidgetController) HandleQuota(c *fiber.Ctx) error {
	usage, err := wc.ledger.GetUsage(c.UserContext(), c.Params("store"))
	if err != nil {
		if errors.Is(err, quota.ErrStoreNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Store not found")
		}
		log.Errorf("[Widget] Quota lookup for %s failed: %v", c.Params("store"), err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load quota")
	}
	metrics.ObserveInquiry(usage.CanAcceptLeads)

	resp := fiber.Map{
		"canAcceptLeads":   usage.CanAcceptLeads,
		"remainingLeads":   usage.RemainingLeads,
		"leadsThisMonth":   usage.LeadsThisMonth,
		"maxLeadsPerMonth": usage.MaxLeadsPerMonth,
		"plan":             usage.Plan,
	}
	if !usage.CanAcceptLeads {
		resp["message"] = quotaExhaustedMessage
	}
	return c.JSON(resp)
}

// HandleConfig returns the public widget configuration of a store.
func (wc *WidgetController) HandleConfig(c *fiber.Ctx) error {
	ctx := c.UserContext()
	store, err := wc.ledger.ResolveStore(ctx, c.Params("store"))
	if err != nil {
		if errors.Is(err, quota.ErrStoreNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Store not found")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load store")
	}

	settings, err := wc.repos.WidgetSettings.GetByStoreID(ctx, store.ID)
	if err != nil {
		log.Errorf("[Widget] Settings lookup for %s failed: %v", store.ID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load widget settings")
	}

	return c.JSON(fiber.Map{
		"store": fiber.Map{
			"id":            store.ID,
			"name":          store.Name,
			"shopifyDomain": store.ShopifyDomain,
			"plan":          store.Plan,
		},
		"settings": settings,
	})
}

// HandleSubmitLead admits or rejects a shopper's lead.
func (wc *WidgetController) HandleSubmitLead(c *fiber.Ctx) error {
	var req LeadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"accepted":   false,
			"reasonCode": admission.ReasonValidationError,
			"message":    "Invalid request body",
		})
	}
	ctx := c.UserContext()
	storeRef := strings.TrimSpace(req.StoreID)

	// The field flags come from the stored settings, never from the request.
	var cfg admission.WidgetConfig
	store, err := wc.ledger.ResolveStore(ctx, storeRef)
	if err == nil {
		settings, serr := wc.repos.WidgetSettings.GetByStoreID(ctx, store.ID)
		if serr != nil {
			log.Errorf("[Widget] Settings lookup for %s failed: %v", store.ID, serr)
			return rejection(c, &quota.StorageError{Op: "load widget settings", Err: serr})
		}
		cfg = admission.ConfigFromSettings(settings)
		storeRef = store.ID
	}

	res, err := wc.admission.SubmitLead(ctx, storeRef, admission.LeadInput{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		DetectedProduct: req.DetectedProduct,
		ProductID:       req.ProductID,
	}, cfg)
	if err != nil {
		return rejection(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"accepted":       true,
		"leadId":         res.LeadID,
		"remainingLeads": res.Usage.RemainingLeads,
	})
}

// rejection renders an admission error in the widget's reason-code shape.
func rejection(c *fiber.Ctx, err error) error {
	code := admission.ReasonCode(err)
	body := fiber.Map{"accepted": false, "reasonCode": code, "message": err.Error()}

	status := fiber.StatusInternalServerError
	switch code {
	case admission.ReasonStoreNotFound:
		status = fiber.StatusNotFound
	case admission.ReasonValidationError:
		status = fiber.StatusUnprocessableEntity
		var ve *admission.ValidationError
		if errors.As(err, &ve) {
			body["field"] = ve.Field
		}
	case admission.ReasonWidgetInactive:
		status = fiber.StatusForbidden
	case admission.ReasonQuotaExceeded:
		status = fiber.StatusTooManyRequests
		var qe *admission.QuotaExceededError
		if errors.As(err, &qe) {
			body["leadsThisMonth"] = qe.LeadsThisMonth
			body["maxLeadsPerMonth"] = qe.MaxLeadsPerMonth
		}
		body["message"] = quotaExhaustedMessage
	default:
		body["message"] = "Something went wrong. Please try again."
	}
	return c.Status(status).JSON(body)
}

// HandleInstalled records that the widget loaded on a storefront.
func (wc *WidgetController) HandleInstalled(c *fiber.Ctx) error {
	var req InstalledRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.ShopifyDomain) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "shopifyDomain is required")
	}

	status, err := wc.installs.Ping(c.UserContext(), req.ShopifyDomain)
	if err != nil {
		if errors.Is(err, quota.ErrStoreNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Store not found")
		}
		log.Errorf("[Widget] Installation ping for %s failed: %v", req.ShopifyDomain, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update installation status")
	}

	message := "Already installed"
	if status.FirstInstall {
		message = "Installation status updated"
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"firstInstall": status.FirstInstall,
		"installedAt":  formatTimePtr(&status.InstalledAt),
		"message":      message,
	})
}

// Package admission is the only write path for leads. It validates a submission,
// re-checks the store's quota and inserts the lead inside one transaction.
package admission

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BoostACart/app/models"
	"github.com/ManuelReschke/BoostACart/app/repository"
	"github.com/ManuelReschke/BoostACart/internal/pkg/metrics"
	"github.com/ManuelReschke/BoostACart/internal/pkg/quota"
)

// LeadInput is the shopper-provided part of a submission.
type LeadInput struct {
	Name            string
	Email           string
	Phone           string
	DetectedProduct string
	ProductID       string
}

// WidgetConfig is the part of the widget settings that decides which fields are required.
type WidgetConfig struct {
	IsActive  bool
	ShowEmail bool
	ShowPhone bool
}

// ConfigFromSettings extracts the admission-relevant flags from stored widget settings.
func ConfigFromSettings(ws *models.WidgetSettings) WidgetConfig {
	if ws == nil {
		return WidgetConfig{}
	}
	return WidgetConfig{IsActive: ws.IsActive, ShowEmail: ws.ShowEmail, ShowPhone: ws.ShowPhone}
}

// Result describes an accepted submission.
type Result struct {
	Accepted bool
	LeadID   string
	Usage    quota.Usage
}

// Service admits leads.
type Service struct {
	repos  *repository.Repositories
	ledger *quota.Ledger
	locks  *storeLocks
}

// NewService creates an admission service.
func NewService(repos *repository.Repositories, ledger *quota.Ledger) *Service {
	return &Service{
		repos:  repos,
		ledger: ledger,
		locks:  newStoreLocks(),
	}
}

// Validate checks the submission against the widget configuration, stopping at the
// first failure.
func Validate(in LeadInput, cfg WidgetConfig) error {
	if !cfg.IsActive {
		return ErrWidgetInactive
	}
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name"}
	}
	if cfg.ShowEmail && strings.TrimSpace(in.Email) == "" {
		return &ValidationError{Field: "email"}
	}
	if cfg.ShowPhone && strings.TrimSpace(in.Phone) == "" {
		return &ValidationError{Field: "phone"}
	}
	return nil
}

// SubmitLead admits or rejects one lead for the store identified by storeRef (internal
// id or shop domain). On success exactly one lead row exists and the next usage read
// reflects it. On any error no lead was written.
func (s *Service) SubmitLead(ctx context.Context, storeRef string, in LeadInput, cfg WidgetConfig) (*Result, error) {
	started := time.Now()
	res, err := s.submit(ctx, storeRef, in, cfg)
	if err != nil {
		metrics.ObserveAdmission(ReasonCode(err), started)
		return nil, err
	}
	metrics.ObserveAdmission("accepted", started)
	return res, nil
}

func (s *Service) submit(ctx context.Context, storeRef string, in LeadInput, cfg WidgetConfig) (*Result, error) {
	store, err := s.ledger.ResolveStore(ctx, storeRef)
	if err != nil {
		return nil, err
	}

	if err := Validate(in, cfg); err != nil {
		return nil, err
	}

	release := s.locks.lock(store.ID)
	defer release()

	var (
		lead  *models.Lead
		usage *quota.Usage
	)
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		locked, err := tx.Store.GetByIDForUpdate(ctx, store.ID)
		if err != nil {
			return &quota.StorageError{Op: "lock store", Err: err}
		}

		// One instant for both the period and the lead's timestamp.
		now := s.ledger.Now()
		current, err := s.ledger.UsageAt(ctx, tx.Lead, locked, now)
		if err != nil {
			return err
		}
		if !current.CanAcceptLeads {
			return &QuotaExceededError{
				LeadsThisMonth:   current.LeadsThisMonth,
				MaxLeadsPerMonth: current.MaxLeadsPerMonth,
			}
		}

		lead = buildLead(locked.ID, in, now)
		if err := tx.Lead.Create(ctx, lead); err != nil {
			return &quota.StorageError{Op: "insert lead", Err: err}
		}
		if err := tx.Store.IncrementTotalLeads(ctx, locked.ID); err != nil {
			return &quota.StorageError{Op: "increment total leads", Err: err}
		}

		after := quota.Compute(current.Plan, current.LeadsThisMonth+1)
		after.StoreID = current.StoreID
		after.PeriodStart = current.PeriodStart
		usage = &after
		return nil
	})
	if err != nil {
		var qe *QuotaExceededError
		if !errors.As(err, &qe) {
			log.Errorf("[Admission] Store %s: %v", store.ID, err)
		}
		return nil, asAdmissionError(err)
	}

	log.Infof("[Admission] Accepted lead %s for store %s (%d/%d)", lead.ID, store.ID, usage.LeadsThisMonth, usage.MaxLeadsPerMonth)
	return &Result{Accepted: true, LeadID: lead.ID, Usage: *usage}, nil
}

// asAdmissionError keeps typed admission errors and wraps anything else (for example
// a failed commit) as a storage error.
func asAdmissionError(err error) error {
	var qe *QuotaExceededError
	var se *quota.StorageError
	if errors.As(err, &qe) || errors.As(err, &se) {
		return err
	}
	return &quota.StorageError{Op: "admission transaction", Err: err}
}

func buildLead(storeID string, in LeadInput, now time.Time) *models.Lead {
	product := strings.TrimSpace(in.DetectedProduct)
	if product == "" {
		product = models.DefaultDetectedProduct
	}
	return &models.Lead{
		StoreID:         storeID,
		Name:            strings.TrimSpace(in.Name),
		Email:           strings.TrimSpace(in.Email),
		Phone:           strings.TrimSpace(in.Phone),
		DetectedProduct: product,
		ProductID:       strings.TrimSpace(in.ProductID),
		CreatedAt:       now,
	}
}

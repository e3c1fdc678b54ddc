package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BoostACart/app/repository"
	"github.com/ManuelReschke/BoostACart/internal/pkg/entitlements"
	"github.com/ManuelReschke/BoostACart/internal/pkg/quota"
)

// ErrUnknownPlan is returned for plan names outside Free, Starter and Pro.
var ErrUnknownPlan = errors.New("unknown plan")

// PlanChange describes the effect of an override.
type PlanChange struct {
	StoreID         string            `json:"storeId"`
	PreviousPlan    string            `json:"previousPlan"`
	Plan            entitlements.Plan `json:"plan"`
	CeilingRepaired bool              `json:"ceilingRepaired"`
	Usage           *quota.Usage      `json:"usage"`
}

// PlanService applies operator plan overrides.
type PlanService struct {
	stores repository.StoreRepository
	ledger *quota.Ledger
}

// NewPlanService creates a plan service.
func NewPlanService(stores repository.StoreRepository, ledger *quota.Ledger) *PlanService {
	return &PlanService{stores: stores, ledger: ledger}
}

// OverridePlan sets the store's plan and brings the stored ceiling in line with it.
// Admission follows the new plan immediately, even if the ceiling repair fails.
func (s *PlanService) OverridePlan(ctx context.Context, storeID, plan string) (*PlanChange, error) {
	p, ok := entitlements.ParsePlan(plan)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}

	store, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, quota.ErrStoreNotFound
		}
		return nil, &quota.StorageError{Op: "load store", Err: err}
	}

	if err := s.stores.UpdatePlan(ctx, store.ID, string(p)); err != nil {
		return nil, &quota.StorageError{Op: "update plan", Err: err}
	}
	log.Infof("[Admin] Plan override for store %s: %s -> %s", store.ID, store.Plan, p)

	repaired, err := s.ledger.ReconcilePlanCeiling(ctx, store.ID)
	if err != nil {
		return nil, fmt.Errorf("plan updated but ceiling reconcile failed: %w", err)
	}

	usage, err := s.ledger.GetUsage(ctx, store.ID)
	if err != nil {
		return nil, err
	}

	return &PlanChange{
		StoreID:         store.ID,
		PreviousPlan:    store.Plan,
		Plan:            p,
		CeilingRepaired: repaired,
		Usage:           usage,
	}, nil
}

// Package quota computes monthly lead usage against plan ceilings.
//
// Usage is always derived from the lead rows of the current period and the plan
// stored on the store. The max_leads column on stores is a mirror maintained by
// ReconcilePlanCeiling and is never consulted for admission.
package quota

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BoostACart/app/models"
	"github.com/ManuelReschke/BoostACart/app/repository"
	"github.com/ManuelReschke/BoostACart/internal/pkg/entitlements"
	"github.com/ManuelReschke/BoostACart/internal/pkg/metrics"
)

// Usage is a snapshot of a store's quota for the current period.
type Usage struct {
	StoreID          string            `json:"-"`
	Plan             entitlements.Plan `json:"plan"`
	LeadsThisMonth   int64             `json:"leadsThisMonth"`
	MaxLeadsPerMonth int64             `json:"maxLeadsPerMonth"`
	RemainingLeads   int64             `json:"remainingLeads"`
	CanAcceptLeads   bool              `json:"canAcceptLeads"`
	PeriodStart      time.Time         `json:"periodStart"`
}

// Compute derives the usage numbers from a plan and the leads counted in the period.
func Compute(plan entitlements.Plan, leadsThisMonth int64) Usage {
	if leadsThisMonth < 0 {
		leadsThisMonth = 0
	}
	maxLeads := entitlements.MaxLeadsPerMonth(plan)
	remaining := maxLeads - leadsThisMonth
	if remaining < 0 {
		remaining = 0
	}
	return Usage{
		Plan:             plan,
		LeadsThisMonth:   leadsThisMonth,
		MaxLeadsPerMonth: maxLeads,
		RemainingLeads:   remaining,
		CanAcceptLeads:   entitlements.IsUnlimited(plan) || remaining > 0,
	}
}

// Ledger answers quota questions for stores.
type Ledger struct {
	repos    *repository.Repositories
	location *time.Location
	now      func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLocation sets the time zone that defines calendar month boundaries.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.location = loc
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLedger creates a ledger over the given repositories.
func NewLedger(repos *repository.Repositories, opts ...Option) *Ledger {
	l := &Ledger{
		repos:    repos,
		location: time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the ledger's current time in UTC.
func (l *Ledger) Now() time.Time {
	return l.now().UTC()
}

// CurrentPeriodStart returns the start of the month used for counting, in UTC.
func (l *Ledger) CurrentPeriodStart() time.Time {
	return PeriodStart(l.now(), l.location).UTC()
}

// ResolveStore finds a store by internal id first and by shop domain second.
func (l *Ledger) ResolveStore(ctx context.Context, ref string) (*models.Store, error) {
	return ResolveStore(ctx, l.repos.Store, ref)
}

// ResolveStore finds a store by internal id first and by shop domain second.
func ResolveStore(ctx context.Context, stores repository.StoreRepository, ref string) (*models.Store, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrStoreNotFound
	}

	store, err := stores.GetByID(ctx, ref)
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageErr("resolve store", err)
	}

	store, err = stores.GetByShopifyDomain(ctx, ref)
	if err == nil {
		return store, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStoreNotFound
	}
	return nil, storageErr("resolve store", err)
}

// GetUsage resolves the store and returns its usage for the current month. It never writes.
func (l *Ledger) GetUsage(ctx context.Context, storeRef string) (*Usage, error) {
	store, err := l.ResolveStore(ctx, storeRef)
	if err != nil {
		return nil, err
	}
	return l.UsageOf(ctx, l.repos.Lead, store)
}

// UsageOf computes usage for an already resolved store, counting through leads. Callers
// inside a transaction pass the transaction's lead repository so the count observes
// the same snapshot as their subsequent insert.
func (l *Ledger) UsageOf(ctx context.Context, leads repository.LeadRepository, store *models.Store) (*Usage, error) {
	return l.UsageAt(ctx, leads, store, l.now())
}

// UsageAt is UsageOf for the month containing at. Admission passes the same instant it
// stamps on the new lead so the count and the lead always fall in one period.
func (l *Ledger) UsageAt(ctx context.Context, leads repository.LeadRepository, store *models.Store, at time.Time) (*Usage, error) {
	since := PeriodStart(at, l.location).UTC()
	count, err := leads.CountSince(ctx, store.ID, since)
	if err != nil {
		return nil, storageErr("count leads", err)
	}
	usage := Compute(entitlements.NormalizePlan(store.Plan), count)
	usage.StoreID = store.ID
	usage.PeriodStart = since
	return &usage, nil
}

// ListUsage returns usage for many stores with a single grouped count.
func (l *Ledger) ListUsage(ctx context.Context, stores []models.Store) (map[string]Usage, error) {
	ids := make([]string, 0, len(stores))
	for _, s := range stores {
		ids = append(ids, s.ID)
	}

	since := l.CurrentPeriodStart()
	counts, err := l.repos.Lead.CountSinceByStores(ctx, ids, since)
	if err != nil {
		return nil, storageErr("count leads", err)
	}

	out := make(map[string]Usage, len(stores))
	for _, s := range stores {
		usage := Compute(entitlements.NormalizePlan(s.Plan), counts[s.ID])
		usage.StoreID = s.ID
		usage.PeriodStart = since
		out[s.ID] = usage
	}
	return out, nil
}

// ReconcilePlanCeiling makes the stored max_leads mirror match the plan. It reports
// whether a write happened and is safe to call any number of times.
func (l *Ledger) ReconcilePlanCeiling(ctx context.Context, storeID string) (bool, error) {
	store, err := l.repos.Store.GetByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrStoreNotFound
		}
		return false, storageErr("load store", err)
	}

	want := entitlements.MaxLeadsPerMonth(entitlements.NormalizePlan(store.Plan))
	if store.MaxLeads == want {
		return false, nil
	}
	if err := l.repos.Store.UpdateMaxLeads(ctx, store.ID, want); err != nil {
		return false, storageErr("update ceiling", err)
	}
	metrics.CeilingReconciliations.Inc()
	log.Infof("[Quota] Reconciled ceiling for store %s: %d -> %d (%s)", store.ID, store.MaxLeads, want, store.Plan)
	return true, nil
}

// ReconcileAll runs ReconcilePlanCeiling for every store and returns how many changed.
// It keeps going after a per-store failure and returns the first error seen.
func (l *Ledger) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := l.repos.Store.ListIDs(ctx)
	if err != nil {
		return 0, storageErr("list stores", err)
	}

	changed := 0
	var firstErr error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		ok, err := l.ReconcilePlanCeiling(ctx, id)
		if err != nil {
			log.Errorf("[Quota] Reconcile failed for store %s: %v", id, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			changed++
		}
	}
	return changed, firstErr
}

package admission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BoostACart/app/models"
	"github.com/ManuelReschke/BoostACart/app/repository"
	"github.com/ManuelReschke/BoostACart/internal/pkg/database"
	"github.com/ManuelReschke/BoostACart/internal/pkg/entitlements"
	"github.com/ManuelReschke/BoostACart/internal/pkg/quota"
)

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

var openWidget = WidgetConfig{IsActive: true, ShowEmail: false, ShowPhone: true}

type fixture struct {
	db      *gorm.DB
	repos   *repository.Repositories
	ledger  *quota.Ledger
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := database.NewTestDB(t)
	repos := repository.NewRepositories(db)
	ledger := quota.NewLedger(repos, quota.WithClock(func() time.Time { return fixedNow }))
	return &fixture{db: db, repos: repos, ledger: ledger, service: NewService(repos, ledger)}
}

func (f *fixture) store(t *testing.T, domain string, plan entitlements.Plan, used int) *models.Store {
	t.Helper()
	ctx := context.Background()
	store := &models.Store{
		Name:          domain,
		ShopifyDomain: domain,
		Plan:          string(plan),
		MaxLeads:      entitlements.MaxLeadsPerMonth(plan),
	}
	require.NoError(t, f.repos.Store.Create(ctx, store))
	for i := 0; i < used; i++ {
		lead := &models.Lead{StoreID: store.ID, Name: "Seed", DetectedProduct: "Tee", CreatedAt: fixedNow.Add(-time.Hour)}
		require.NoError(t, f.repos.Lead.Create(ctx, lead))
	}
	return store
}

func (f *fixture) leadCount(t *testing.T, storeID string) int64 {
	t.Helper()
	n, err := f.repos.Lead.CountByStore(context.Background(), storeID)
	require.NoError(t, err)
	return n
}

func validInput() LeadInput {
	return LeadInput{Name: "Jane", Phone: "+1 555 0100", DetectedProduct: "Blue Tee", ProductID: "gid://1"}
}

func TestSubmitLeadAccepted(t *testing.T) {
	f := newFixture(t)
	store := f.store(t, "acme.myshopify.com", entitlements.PlanFree, 3)

	res, err := f.service.SubmitLead(context.Background(), store.ShopifyDomain, validInput(), openWidget)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.NotEmpty(t, res.LeadID)
	assert.Equal(t, int64(4), res.Usage.LeadsThisMonth)
	assert.Equal(t, int64(46), res.Usage.RemainingLeads)

	usage, err := f.ledger.GetUsage(context.Background(), store.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Usage.LeadsThisMonth, usage.LeadsThisMonth)

	reloaded, err := f.repos.Store.GetByID(context.Background(), store.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reloaded.TotalLeads)
}

func TestSubmitLeadNormalizesInput(t *testing.T) {
	f := newFixture(t)
	store := f.store(t, "trim.myshopify.com", entitlements.PlanFree, 0)

	in := LeadInput{Name: "  Jane  ", Phone: " 123 ", DetectedProduct: "   "}
	res, err := f.service.SubmitLead(context.Background(), store.ID, in, openWidget)
	require.NoError(t, err)

	var lead models.Lead
	require.NoError(t, f.db.First(&lead, "id = ?", res.LeadID).Error)
	assert.Equal(t, "Jane", lead.Name)
	assert.Equal(t, "123", lead.Phone)
	assert.Equal(t, models.DefaultDetectedProduct, lead.DetectedProduct)
	assert.True(t, lead.CreatedAt.Equal(fixedNow))
}

func TestSubmitLeadConcurrentLastSlot(t *testing.T) {
	f := newFixture(t)
	store := f.store(t, "race.myshopify.com", entitlements.PlanFree, 49)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.service.SubmitLead(context.Background(), store.ID, validInput(), openWidget)
			mu.Lock()
			defer mu.Unlock()
			var qe *QuotaExceededError
			switch {
			case err == nil:
				accepted++
			case errors.As(err, &qe):
				assert.Equal(t, int64(50), qe.LeadsThisMonth)
				assert.Equal(t, int64(50), qe.MaxLeadsPerMonth)
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, workers-1, rejected)
	assert.Equal(t, int64(50), f.leadCount(t, store.ID))
	assert.Equal(t, 0, f.service.locks.size())
}

func TestSubmitLeadQuotaExceeded(t *testing.T) {
	f := newFixture(t)
	store := f.store(t, "full.myshopify.com", entitlements.PlanFree, 50)

	_, err := f.service.SubmitLead(context.Background(), store.ID, validInput(), openWidget)
	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, ReasonQuotaExceeded, ReasonCode(err))
	assert.Equal(t, int64(50), f.leadCount(t, store.ID))
}

func TestSubmitLeadAcrossMonthRollover(t *testing.T) {
	f := newFixture(t)
	store := f.store(t, "rollover.myshopify.com", entitlements.PlanFree, 50)

	lastSecond := time.Date(2026, 10, 31, 23, 59, 59, 0, time.UTC)
	nextMonth := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	var (
		mu    sync.Mutex
		calls int
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return lastSecond
		}
		return nextMonth
	}
	ledger := quota.NewLedger(f.repos, quota.WithClock(clock))
	service := NewService(f.repos, ledger)
	ctx := context.Background()

	_, err := service.SubmitLead(ctx, store.ID, validInput(), openWidget)
	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, int64(50), qe.LeadsThisMonth)

	october, err := f.repos.Lead.CountSince(ctx, store.ID, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(50), october)

	res, err := service.SubmitLead(ctx, store.ID, validInput(), openWidget)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Usage.LeadsThisMonth)

	var lead models.Lead
	require.NoError(t, f.db.First(&lead, "id = ?", res.LeadID).Error)
	assert.True(t, lead.CreatedAt.Equal(nextMonth))
}

func TestSubmitLeadProIsUnlimited(t *testing.T) {
	f := newFixture(t)
	store := f.store(t, "pro.myshopify.com", entitlements.PlanPro, 0)
	usage := quota.Compute(entitlements.PlanPro, entitlements.UnlimitedLeads+1)
	require.True(t, usage.CanAcceptLeads)

	for i := 0; i < 3; i++ {
		res, err := f.service.SubmitLead(context.Background(), store.ID, validInput(), openWidget)
		require.NoError(t, err)
		assert.True(t, res.Usage.CanAcceptLeads)
	}
	assert.Equal(t, int64(3), f.leadCount(t, store.ID))
}

func TestSubmitLeadPlanUpgradeMidMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store := f.store(t, "upgrade.myshopify.com", entitlements.PlanFree, 50)

	_, err := f.service.SubmitLead(ctx, store.ID, validInput(), openWidget)
	require.Equal(t, ReasonQuotaExceeded, ReasonCode(err))

	// Plan changes without touching the stored ceiling; admission must follow the plan.
	require.NoError(t, f.repos.Store.UpdatePlan(ctx, store.ID, string(entitlements.PlanPro)))

	res, err := f.service.SubmitLead(ctx, store.ID, validInput(), openWidget)
	require.NoError(t, err)
	assert.Equal(t, int64(51), res.Usage.LeadsThisMonth)
	assert.Equal(t, entitlements.UnlimitedLeads, res.Usage.MaxLeadsPerMonth)
}

func TestSubmitLeadValidationOrder(t *testing.T) {
	f := newFixture(t)
	store := f.store(t, "validate.myshopify.com", entitlements.PlanFree, 0)

	tests := []struct {
		name   string
		in     LeadInput
		cfg    WidgetConfig
		reason string
		field  string
	}{
		{
			name:   "inactive wins over missing fields",
			in:     LeadInput{},
			cfg:    WidgetConfig{IsActive: false, ShowEmail: true, ShowPhone: true},
			reason: ReasonWidgetInactive,
		},
		{
			name:   "name before email",
			in:     LeadInput{Name: "  "},
			cfg:    WidgetConfig{IsActive: true, ShowEmail: true, ShowPhone: true},
			reason: ReasonValidationError,
			field:  "name",
		},
		{
			name:   "email before phone",
			in:     LeadInput{Name: "Jane"},
			cfg:    WidgetConfig{IsActive: true, ShowEmail: true, ShowPhone: true},
			reason: ReasonValidationError,
			field:  "email",
		},
		{
			name:   "phone when shown",
			in:     LeadInput{Name: "Jane", Email: "jane@example.com"},
			cfg:    WidgetConfig{IsActive: true, ShowEmail: true, ShowPhone: true},
			reason: ReasonValidationError,
			field:  "phone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.SubmitLead(context.Background(), store.ID, tt.in, tt.cfg)
			require.Error(t, err)
			assert.Equal(t, tt.reason, ReasonCode(err))
			if tt.field != "" {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.field, ve.Field)
			}
		})
	}
	assert.Equal(t, int64(0), f.leadCount(t, store.ID))
}

func TestSubmitLeadHiddenFieldsAreOptional(t *testing.T) {
	f := newFixture(t)
	store := f.store(t, "hidden.myshopify.com", entitlements.PlanFree, 0)

	_, err := f.service.SubmitLead(context.Background(), store.ID,
		LeadInput{Name: "Jane"}, WidgetConfig{IsActive: true})
	require.NoError(t, err)
}

func TestSubmitLeadUnknownStore(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SubmitLead(context.Background(), "ghost.myshopify.com", validInput(), openWidget)
	require.ErrorIs(t, err, quota.ErrStoreNotFound)
	assert.Equal(t, ReasonStoreNotFound, ReasonCode(err))
}

func TestSubmitLeadStorageFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	store := f.store(t, "broken.myshopify.com", entitlements.PlanFree, 10)

	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_leads", func(tx *gorm.DB) {
		if tx.Statement.Table == "leads" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	_, err := f.service.SubmitLead(context.Background(), store.ID, validInput(), openWidget)
	var se *quota.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ReasonInternalError, ReasonCode(err))

	assert.Equal(t, int64(10), f.leadCount(t, store.ID))
	reloaded, err := f.repos.Store.GetByID(context.Background(), store.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.TotalLeads)
}

func TestConfigFromSettings(t *testing.T) {
	ws := models.DefaultWidgetSettings("store-1")
	cfg := ConfigFromSettings(ws)
	assert.Equal(t, WidgetConfig{IsActive: true, ShowEmail: false, ShowPhone: true}, cfg)
	assert.Equal(t, WidgetConfig{}, ConfigFromSettings(nil))
}

func TestStoreLocksSerializeAndCleanUp(t *testing.T) {
	locks := newStoreLocks()
	release := locks.lock("a")
	assert.Equal(t, 1, locks.size())

	acquired := make(chan struct{})
	go func() {
		r := locks.lock("a")
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the lock while the first still held it")
	case <-time.After(50 * time.Millisecond):
	}

	other := locks.lock("b")
	other()

	release()
	<-acquired
	assert.Eventually(t, func() bool { return locks.size() == 0 }, time.Second, 10*time.Millisecond)
}

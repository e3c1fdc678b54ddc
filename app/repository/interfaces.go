package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/BoostACart/app/models"
	"gorm.io/gorm"
)

// StoreRepository defines the interface for store-related database operations
type StoreRepository interface {
	Create(ctx context.Context, store *models.Store) error
	GetByID(ctx context.Context, id string) (*models.Store, error)
	GetByShopifyDomain(ctx context.Context, domain string) (*models.Store, error)
	GetByAPIKeyHash(ctx context.Context, hash string) (*models.Store, error)
	// GetByIDForUpdate loads the store and holds a row lock until the surrounding
	// transaction ends. Outside a transaction it behaves like GetByID.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Store, error)
	List(ctx context.Context, offset, limit int) ([]models.Store, error)
	Search(ctx context.Context, query string) ([]models.Store, error)
	ListIDs(ctx context.Context) ([]string, error)
	UpdatePlan(ctx context.Context, id, plan string) error
	UpdateMaxLeads(ctx context.Context, id string, maxLeads int64) error
	IncrementTotalLeads(ctx context.Context, id string) error
	// MarkInstalled flips the installed latch. It reports false when the store was
	// already installed.
	MarkInstalled(ctx context.Context, id string, at time.Time) (bool, error)
	SaveAPIKey(ctx context.Context, store *models.Store) error
	TouchAPIKeyUsage(ctx context.Context, id string, at time.Time) error
}

// LeadRepository defines the interface for lead-related database operations
type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	CountSince(ctx context.Context, storeID string, since time.Time) (int64, error)
	CountSinceByStores(ctx context.Context, storeIDs []string, since time.Time) (map[string]int64, error)
	ListByStore(ctx context.Context, storeID string, offset, limit int) ([]models.Lead, error)
	CountByStore(ctx context.Context, storeID string) (int64, error)
}

// WidgetSettingsRepository defines the interface for widget configuration
type WidgetSettingsRepository interface {
	// GetByStoreID returns the stored settings or the defaults when none exist.
	GetByStoreID(ctx context.Context, storeID string) (*models.WidgetSettings, error)
	Upsert(ctx context.Context, settings *models.WidgetSettings) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	db             *gorm.DB
	Store          StoreRepository
	Lead           LeadRepository
	WidgetSettings WidgetSettingsRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:             db,
		Store:          NewStoreRepository(db),
		Lead:           NewLeadRepository(db),
		WidgetSettings: NewWidgetSettingsRepository(db),
	}
}

// Transaction runs fn with repositories bound to a single database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

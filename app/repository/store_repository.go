package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ManuelReschke/BoostACart/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// storeRepository implements the StoreRepository interface
type storeRepository struct {
	db *gorm.DB
}

// NewStoreRepository creates a new store repository instance
func NewStoreRepository(db *gorm.DB) StoreRepository {
	return &storeRepository{db: db}
}

func (r *storeRepository) Create(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

func (r *storeRepository) GetByID(ctx context.Context, id string) (*models.Store, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *storeRepository) GetByShopifyDomain(ctx context.Context, domain string) (*models.Store, error) {
	return r.first(r.db.WithContext(ctx).Where("shopify_domain = ?", strings.ToLower(strings.TrimSpace(domain))))
}

func (r *storeRepository) GetByAPIKeyHash(ctx context.Context, hash string) (*models.Store, error) {
	if hash == "" {
		return nil, gorm.ErrRecordNotFound
	}
	return r.first(r.db.WithContext(ctx).Where("api_key_hash = ?", hash))
}

func (r *storeRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Store, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *storeRepository) first(q *gorm.DB) (*models.Store, error) {
	var store models.Store
	if err := q.First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepository) List(ctx context.Context, offset, limit int) ([]models.Store, error) {
	var stores []models.Store
	err := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&stores).Error
	return stores, err
}

func (r *storeRepository) Search(ctx context.Context, query string) ([]models.Store, error) {
	var stores []models.Store
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(domain) LIKE ? OR shopify_domain LIKE ?", like, like, like).
		Order("created_at DESC").
		Find(&stores).Error
	return stores, err
}

func (r *storeRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Store{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *storeRepository) UpdatePlan(ctx context.Context, id, plan string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"plan": plan})
}

func (r *storeRepository) UpdateMaxLeads(ctx context.Context, id string, maxLeads int64) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"max_leads": maxLeads})
}

func (r *storeRepository) IncrementTotalLeads(ctx context.Context, id string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"total_leads": gorm.Expr("total_leads + ?", 1)})
}

func (r *storeRepository) updateColumns(ctx context.Context, id string, updates map[string]interface{}) error {
	tx := r.db.WithContext(ctx).Model(&models.Store{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *storeRepository) MarkInstalled(ctx context.Context, id string, at time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Store{}).
		Where("id = ? AND (installed = ? OR installed_at IS NULL)", id, false).
		Updates(map[string]interface{}{"installed": true, "installed_at": at})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *storeRepository) SaveAPIKey(ctx context.Context, store *models.Store) error {
	if store == nil || store.ID == "" {
		return errors.New("store id is required")
	}
	return r.db.WithContext(ctx).Model(&models.Store{}).Where("id = ?", store.ID).
		Select("api_key_hash", "api_key_prefix", "api_key_created_at", "api_key_last_used_at").
		Updates(store).Error
}

func (r *storeRepository) TouchAPIKeyUsage(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Store{}).Where("id = ?", id).
		UpdateColumn("api_key_last_used_at", at).Error
}

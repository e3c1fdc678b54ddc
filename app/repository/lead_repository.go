package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/BoostACart/app/models"
	"gorm.io/gorm"
)

// leadRepository implements the LeadRepository interface
type leadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a new lead repository instance
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) Create(ctx context.Context, lead *models.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

func (r *leadRepository) CountSince(ctx context.Context, storeID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Lead{}).
		Where("store_id = ? AND created_at >= ?", storeID, since).
		Count(&count).Error
	return count, err
}

func (r *leadRepository) CountSinceByStores(ctx context.Context, storeIDs []string, since time.Time) (map[string]int64, error) {
	counts := make(map[string]int64, len(storeIDs))
	if len(storeIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		StoreID string
		Total   int64
	}
	err := r.db.WithContext(ctx).Model(&models.Lead{}).
		Select("store_id, COUNT(*) AS total").
		Where("store_id IN ? AND created_at >= ?", storeIDs, since).
		Group("store_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.StoreID] = row.Total
	}
	return counts, nil
}

func (r *leadRepository) ListByStore(ctx context.Context, storeID string, offset, limit int) ([]models.Lead, error) {
	var leads []models.Lead
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&leads).Error
	return leads, err
}

func (r *leadRepository) CountByStore(ctx context.Context, storeID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Lead{}).Where("store_id = ?", storeID).Count(&count).Error
	return count, err
}

package repository

import (
	"context"
	"errors"

	"github.com/ManuelReschke/BoostACart/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type widgetSettingsRepository struct {
	db *gorm.DB
}

// NewWidgetSettingsRepository creates a new widget settings repository instance
func NewWidgetSettingsRepository(db *gorm.DB) WidgetSettingsRepository {
	return &widgetSettingsRepository{db: db}
}

func (r *widgetSettingsRepository) GetByStoreID(ctx context.Context, storeID string) (*models.WidgetSettings, error) {
	var ws models.WidgetSettings
	err := r.db.WithContext(ctx).Where("store_id = ?", storeID).First(&ws).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DefaultWidgetSettings(storeID), nil
		}
		return nil, err
	}
	return &ws, nil
}

func (r *widgetSettingsRepository) Upsert(ctx context.Context, settings *models.WidgetSettings) error {
	// The conflict target is store_id; let the database resolve the row id.
	settings.ID = 0
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "store_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"heading",
			"description",
			"button_text",
			"background_color",
			"text_color",
			"button_color",
			"overlay_opacity",
			"is_active",
			"show_email",
			"show_phone",
			"discount_code",
			"redirect_url",
			"show_coupon_page",
			"updated_at",
		}),
	}).Create(settings).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.WithContext(ctx).Where("store_id = ?", settings.StoreID).First(settings).Error
}

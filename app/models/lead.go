package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultDetectedProduct is stored when the widget could not detect a product title.
const DefaultDetectedProduct = "Product"

// Lead is one captured shopper submission. Rows are never updated or deleted.
type Lead struct {
	ID              string    `gorm:"type:char(36);primaryKey" json:"id"`
	StoreID         string    `gorm:"type:char(36);not null;index:idx_leads_store_created,priority:1" json:"store_id"`
	Name            string    `gorm:"type:varchar(150);not null" json:"name"`
	Email           string    `gorm:"type:varchar(200);default:''" json:"email,omitempty"`
	Phone           string    `gorm:"type:varchar(50);default:''" json:"phone,omitempty"`
	DetectedProduct string    `gorm:"type:varchar(255);not null" json:"detected_product"`
	ProductID       string    `gorm:"type:varchar(100);default:''" json:"product_id,omitempty"`
	CreatedAt       time.Time `gorm:"not null;index:idx_leads_store_created,priority:2" json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not set one.
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

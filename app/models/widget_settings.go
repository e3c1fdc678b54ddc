package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// WidgetSettings holds the per-store presentation and behaviour of the lead form.
type WidgetSettings struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	StoreID         string    `gorm:"type:char(36);uniqueIndex;not null" json:"store_id"`
	Heading         string    `gorm:"type:varchar(150)" json:"heading" validate:"required,max=150"`
	Description     string    `gorm:"type:varchar(500)" json:"description" validate:"max=500"`
	ButtonText      string    `gorm:"type:varchar(60)" json:"button_text" validate:"required,max=60"`
	BackgroundColor string    `gorm:"type:varchar(9)" json:"background_color" validate:"required,hexcolor"`
	TextColor       string    `gorm:"type:varchar(9)" json:"text_color" validate:"required,hexcolor"`
	ButtonColor     string    `gorm:"type:varchar(9)" json:"button_color" validate:"required,hexcolor"`
	OverlayOpacity  float64   `json:"overlay_opacity" validate:"gte=0,lte=1"`
	IsActive        bool      `json:"is_active"`
	ShowEmail       bool      `json:"show_email"`
	ShowPhone       bool      `json:"show_phone"`
	DiscountCode    string    `gorm:"type:varchar(64)" json:"discount_code" validate:"max=64"`
	RedirectURL     string    `gorm:"type:varchar(500)" json:"redirect_url,omitempty" validate:"omitempty,url,max=500"`
	ShowCouponPage  bool      `json:"show_coupon_page"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultWidgetSettings returns the settings a store gets before the merchant customizes anything.
func DefaultWidgetSettings(storeID string) *WidgetSettings {
	return &WidgetSettings{
		StoreID:         storeID,
		Heading:         "Get Exclusive Discount!",
		Description:     "Leave your details and get 20% off your next order",
		ButtonText:      "Get My Discount",
		BackgroundColor: "#ffffff",
		TextColor:       "#1f2937",
		ButtonColor:     "#3b82f6",
		OverlayOpacity:  0.8,
		IsActive:        true,
		ShowEmail:       false,
		ShowPhone:       true,
		DiscountCode:    "SAVE20",
		ShowCouponPage:  true,
	}
}

// Validate validates the settings
func (w *WidgetSettings) Validate() error {
	return validator.New().Struct(w)
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultWidgetSettingsAreValid(t *testing.T) {
	ws := DefaultWidgetSettings("store-1")
	assert.NoError(t, ws.Validate())
	assert.True(t, ws.IsActive)
	assert.False(t, ws.ShowEmail)
	assert.True(t, ws.ShowPhone)
	assert.Equal(t, "store-1", ws.StoreID)
}

func TestWidgetSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*WidgetSettings)
		valid  bool
	}{
		{name: "short hex color", mutate: func(w *WidgetSettings) { w.ButtonColor = "#fff" }, valid: true},
		{name: "named color", mutate: func(w *WidgetSettings) { w.ButtonColor = "blue" }, valid: false},
		{name: "empty heading", mutate: func(w *WidgetSettings) { w.Heading = "" }, valid: false},
		{name: "opacity above one", mutate: func(w *WidgetSettings) { w.OverlayOpacity = 1.5 }, valid: false},
		{name: "opacity zero", mutate: func(w *WidgetSettings) { w.OverlayOpacity = 0 }, valid: true},
		{name: "redirect url", mutate: func(w *WidgetSettings) { w.RedirectURL = "https://shop.example.com/thanks" }, valid: true},
		{name: "bad redirect url", mutate: func(w *WidgetSettings) { w.RedirectURL = "not a url" }, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := DefaultWidgetSettings("store-1")
			tt.mutate(ws)
			err := ws.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

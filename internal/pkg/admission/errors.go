package admission

import (
	"errors"
	"fmt"

	"github.com/ManuelReschke/BoostACart/internal/pkg/quota"
)

// Reason codes returned to the widget.
const (
	ReasonQuotaExceeded   = "QUOTA_EXCEEDED"
	ReasonValidationError = "VALIDATION_ERROR"
	ReasonWidgetInactive  = "WIDGET_INACTIVE"
	ReasonStoreNotFound   = "STORE_NOT_FOUND"
	ReasonInternalError   = "INTERNAL_ERROR"
)

// ErrWidgetInactive is returned when the merchant disabled the widget.
var ErrWidgetInactive = errors.New("widget is currently inactive")

// ValidationError names the first required field that was missing.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// QuotaExceededError carries the numbers the widget shows next to the upgrade prompt.
type QuotaExceededError struct {
	LeadsThisMonth   int64
	MaxLeadsPerMonth int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("plan limit reached: %d of %d leads used this month", e.LeadsThisMonth, e.MaxLeadsPerMonth)
}

// ReasonCode maps an admission error to its wire reason code.
func ReasonCode(err error) string {
	var ve *ValidationError
	var qe *QuotaExceededError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &qe):
		return ReasonQuotaExceeded
	case errors.As(err, &ve):
		return ReasonValidationError
	case errors.Is(err, ErrWidgetInactive):
		return ReasonWidgetInactive
	case errors.Is(err, quota.ErrStoreNotFound):
		return ReasonStoreNotFound
	default:
		return ReasonInternalError
	}
}

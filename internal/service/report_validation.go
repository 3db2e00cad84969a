package service

import (
	"github.com/noah-isme/inventory-report-api/internal/models"
	appErrors "github.com/noah-isme/inventory-report-api/pkg/errors"
)

// ValidateDateRange rejects a range whose end falls strictly before its start.
// Either bound may be nil or zero; an open bound is never an error.
func ValidateDateRange(start, end *models.Date) error {
	if start == nil || end == nil || start.IsZero() || end.IsZero() {
		return nil
	}
	if end.Before(*start) {
		return appErrors.Clone(appErrors.ErrInvalidDateRange, "End date cannot be before the start date.")
	}
	return nil
}

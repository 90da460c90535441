package validation

import (
	"strings"

	"stocklot-backend/internal/pkg/apperrors"
)

// MaxLocationNameLength is the limit on location names.
const MaxLocationNameLength = 255

// LocationName trims the input and validates it: non-empty, at most 255
// characters. Returns the trimmed name.
func LocationName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apperrors.InvalidInput("Location name is required")
	}
	if len(trimmed) > MaxLocationNameLength {
		return "", apperrors.InvalidInput("Location name must be at most 255 characters")
	}
	return trimmed, nil
}

// Quantity validates a lot quantity_total: must be >= 0.
func Quantity(quantity int64) error {
	if quantity < 0 {
		return apperrors.InvalidQuantity(quantity, "must be zero or greater")
	}
	return nil
}

// PositiveQuantity validates an allocation/transfer quantity: must be > 0.
func PositiveQuantity(quantity int64) error {
	if quantity <= 0 {
		return apperrors.InvalidQuantity(quantity, "must be greater than zero")
	}
	return nil
}

// Notes validates lot notes against the given character limit.
func Notes(notes string, maxLength int) error {
	if len(notes) > maxLength {
		return apperrors.CharacterLimit("notes", len(notes), maxLength)
	}
	return nil
}

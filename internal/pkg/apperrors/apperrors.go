// Package apperrors defines the engine's error taxonomy as tagged values: a
// single Error type carrying a Kind plus a structured payload, so callers
// branch on Kind (via errors.As) instead of on concrete error types.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind discriminates engine errors.
type Kind string

const (
	KindInvalidInput           Kind = "invalid_input"
	KindInvalidQuantity        Kind = "invalid_quantity"
	KindCharacterLimit         Kind = "character_limit"
	KindNameCollision          Kind = "name_collision"
	KindNotFound               Kind = "not_found"
	KindInsufficientStock      Kind = "insufficient_stock"
	KindOverAllocation         Kind = "over_allocation"
	KindHasActiveAllocations   Kind = "has_active_allocations"
	KindConcurrentModification Kind = "concurrent_modification"
)

// Error is a tagged engine error. Details carries the kind-specific payload
// (requested/available/shortfall for stock errors, field/limit for validation
// errors, the latest row for concurrency conflicts) so callers can offer
// remediation instead of a bare failure.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	Details   map[string]interface{}
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf returns the Kind of err, or "" when err is not an engine error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err is an engine error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// InvalidInput flags a client-correctable request problem.
func InvalidInput(message string) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Message: message,
		Details: map[string]interface{}{},
	}
}

// InvalidQuantity flags a quantity outside the allowed range.
func InvalidQuantity(quantity int64, reason string) *Error {
	return &Error{
		Kind:    KindInvalidQuantity,
		Message: fmt.Sprintf("Invalid quantity %d: %s", quantity, reason),
		Details: map[string]interface{}{
			"quantity": quantity,
			"reason":   reason,
		},
	}
}

// CharacterLimit flags a text field over its limit.
func CharacterLimit(field string, currentLength, maxLength int) *Error {
	return &Error{
		Kind:    KindCharacterLimit,
		Message: fmt.Sprintf("%s exceeds the %d character limit (%d characters)", field, maxLength, currentLength),
		Details: map[string]interface{}{
			"field":          field,
			"current_length": currentLength,
			"max_length":     maxLength,
		},
	}
}

// NameCollision flags a location name already taken (preset or same owner).
func NameCollision(name string) *Error {
	return &Error{
		Kind:    KindNameCollision,
		Message: fmt.Sprintf("A location named %q already exists", name),
		Details: map[string]interface{}{
			"name": name,
		},
	}
}

// NotFound flags a missing resource.
func NotFound(resource string, id uuid.UUID) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id.String(),
		},
	}
}

// InsufficientStock flags an aggregate shortfall across a listing's lots.
// Hints suggest remediation (retry with reduced quantity, alternate listing).
func InsufficientStock(listingID uuid.UUID, requested, available int64, hints ...string) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("Insufficient stock: requested %d, available %d", requested, available),
		Details: map[string]interface{}{
			"listing_id":        listingID.String(),
			"requested":         requested,
			"available":         available,
			"shortfall":         requested - available,
			"remediation_hints": hints,
		},
	}
}

// OverAllocation flags an attempt to reserve more than one specific lot holds.
func OverAllocation(lotID uuid.UUID, requested, available int64) *Error {
	return &Error{
		Kind:    KindOverAllocation,
		Message: fmt.Sprintf("Cannot allocate %d from lot: only %d available", requested, available),
		Details: map[string]interface{}{
			"lot_id":    lotID.String(),
			"requested": requested,
			"available": available,
		},
	}
}

// HasActiveAllocations flags a lot deletion blocked by live reservations.
func HasActiveAllocations(lotID uuid.UUID, activeCount int64) *Error {
	return &Error{
		Kind:    KindHasActiveAllocations,
		Message: "Lot has active allocations; release them before deleting",
		Details: map[string]interface{}{
			"lot_id":             lotID.String(),
			"active_allocations": activeCount,
		},
	}
}

// ConcurrentModification flags an optimistic-concurrency conflict. Retryable:
// the caller should re-read latest data and re-apply the change.
func ConcurrentModification(resourceID uuid.UUID, resourceType string, latest interface{}) *Error {
	return &Error{
		Kind:      KindConcurrentModification,
		Message:   fmt.Sprintf("%s was modified concurrently; retry with the latest data", resourceType),
		Retryable: true,
		Details: map[string]interface{}{
			"resource_id":   resourceID.String(),
			"resource_type": resourceType,
			"latest":        latest,
		},
	}
}

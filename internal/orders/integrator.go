package orders

import (
	"context"

	"stocklot-backend/internal/allocation"
	"stocklot-backend/internal/domain"
	"stocklot-backend/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Integrator binds order lifecycle events (created, cancelled, fulfilled) to
// the allocation service and aggregates multi-listing results for reporting.
type Integrator struct {
	Allocations *allocation.Service
}

// OrderLine is one requested (listing, quantity) pair from the order subsystem.
type OrderLine struct {
	ListingID uuid.UUID `json:"listing_id"`
	Quantity  int64     `json:"quantity"`
}

// LineResult is the outcome of allocating one order line. A line either
// allocated (possibly partially), was skipped because the seller's allocation
// mode is not auto, or failed with an engine error recorded in ErrorKind.
type LineResult struct {
	ListingID   uuid.UUID           `json:"listing_id"`
	Requested   int64               `json:"requested"`
	Allocated   int64               `json:"allocated"`
	IsPartial   bool                `json:"is_partial"`
	Skipped     bool                `json:"skipped"`
	Allocations []domain.Allocation `json:"allocations"`
	ErrorKind   string              `json:"error_kind,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// OrderAllocationResult aggregates per-line outcomes for one order.
type OrderAllocationResult struct {
	OrderID               uuid.UUID             `json:"order_id"`
	Mode                  domain.AllocationMode `json:"mode"`
	Lines                 []LineResult          `json:"lines"`
	TotalRequested        int64                 `json:"total_requested"`
	TotalAllocated        int64                 `json:"total_allocated"`
	HasPartialAllocations bool                  `json:"has_partial_allocations"`
}

// AllocateStockForOrder reserves stock for every line of a newly created
// order. The seller's mode is resolved once per order: an explicit contractor
// setting wins, then an explicit setting of the selling user, then the default
// auto. Each line's allocate call is atomic on its own; the loop across lines
// is not, so an engine failure on one listing is recorded in that line's
// result and never aborts the others. Unexpected errors still propagate.
func (i *Integrator) AllocateStockForOrder(ctx context.Context, orderID uuid.UUID, lines []OrderLine, contractorID, sellerUserID *uuid.UUID) (*OrderAllocationResult, error) {
	if orderID == uuid.Nil {
		return nil, apperrors.InvalidInput("order_id is required")
	}
	if len(lines) == 0 {
		return nil, apperrors.InvalidInput("At least one order line is required")
	}

	mode, err := i.Allocations.GetAllocationModeForListing(ctx, contractorID, sellerUserID)
	if err != nil {
		return nil, err
	}

	result := &OrderAllocationResult{OrderID: orderID, Mode: mode}
	for _, line := range lines {
		result.TotalRequested += line.Quantity
		lr := LineResult{
			ListingID:   line.ListingID,
			Requested:   line.Quantity,
			Allocations: []domain.Allocation{},
		}

		if mode != domain.ModeAuto {
			lr.Skipped = true
			result.Lines = append(result.Lines, lr)
			continue
		}

		var allocated *allocation.Result
		var allocErr error
		if contractorID != nil && *contractorID != uuid.Nil {
			allocated, allocErr = i.Allocations.AllocateWithStrategy(ctx, orderID, line.ListingID, line.Quantity, *contractorID)
		} else {
			allocated, allocErr = i.Allocations.AutoAllocate(ctx, orderID, line.ListingID, line.Quantity)
		}
		if allocErr != nil {
			kind := apperrors.KindOf(allocErr)
			if kind == "" {
				// Persistence/connectivity failure: not a per-line business
				// outcome, propagate.
				return nil, allocErr
			}
			lr.ErrorKind = string(kind)
			lr.Error = allocErr.Error()
			result.Lines = append(result.Lines, lr)
			continue
		}

		lr.Allocated = allocated.TotalAllocated
		lr.IsPartial = allocated.IsPartial
		lr.Allocations = allocated.Allocations
		result.TotalAllocated += allocated.TotalAllocated
		if allocated.IsPartial {
			result.HasPartialAllocations = true
		}
		result.Lines = append(result.Lines, lr)
	}

	log.Info().
		Str("order_id", orderID.String()).
		Str("mode", string(mode)).
		Int("lines", len(lines)).
		Int64("requested", result.TotalRequested).
		Int64("allocated", result.TotalAllocated).
		Bool("partial", result.HasPartialAllocations).
		Msg("Order stock allocation completed")
	return result, nil
}

// ReleaseAllocationsForOrder frees the order's reservations on cancellation.
// Failures propagate: a release that cannot run from an order-status
// transition indicates a serious inconsistency.
func (i *Integrator) ReleaseAllocationsForOrder(ctx context.Context, orderID uuid.UUID) error {
	log.Info().Str("order_id", orderID.String()).Msg("Releasing allocations for order")
	if err := i.Allocations.ReleaseAllocations(ctx, orderID); err != nil {
		log.Error().Err(err).Str("order_id", orderID.String()).Msg("Release allocations failed")
		return err
	}
	return nil
}

// ConsumeAllocationsForOrder permanently consumes the order's reservations on
// fulfillment. Failures propagate, same as release.
func (i *Integrator) ConsumeAllocationsForOrder(ctx context.Context, orderID uuid.UUID) error {
	log.Info().Str("order_id", orderID.String()).Msg("Consuming allocations for order")
	if err := i.Allocations.ConsumeAllocations(ctx, orderID); err != nil {
		log.Error().Err(err).Str("order_id", orderID.String()).Msg("Consume allocations failed")
		return err
	}
	return nil
}

// GetAllocationSummary reports the order's allocations grouped per listing.
func (i *Integrator) GetAllocationSummary(ctx context.Context, orderID uuid.UUID) (*allocation.Summary, error) {
	return i.Allocations.GetAllocationSummary(ctx, orderID)
}

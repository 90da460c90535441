package allocation

import (
	"context"
	"fmt"
	"sort"

	"stocklot-backend/internal/domain"
	"stocklot-backend/internal/pkg/apperrors"
	"stocklot-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	DB *gorm.DB
}

// Result is the outcome of an allocation attempt. Under-supply is not an
// error: the caller gets everything that could be reserved plus IsPartial.
type Result struct {
	Allocations    []domain.Allocation `json:"allocations"`
	TotalAllocated int64               `json:"total_allocated"`
	IsPartial      bool                `json:"is_partial"`
}

// AutoAllocate reserves quantity for an order from the listing's listed lots
// in FIFO order (oldest-created lot first), one allocation row per lot drawn
// from. Reserve lots (listed=false) are never drawn automatically.
func (s *Service) AutoAllocate(ctx context.Context, orderID, listingID uuid.UUID, quantity int64) (*Result, error) {
	return s.allocate(ctx, orderID, listingID, quantity, nil)
}

// AllocateWithStrategy allocates using the contractor's stored strategy.
// location_priority sorts eligible lots by the position of their location in
// the priority list (absent locations last), ties broken by FIFO; fifo or no
// stored strategy behaves as AutoAllocate.
func (s *Service) AllocateWithStrategy(ctx context.Context, orderID, listingID uuid.UUID, quantity int64, contractorID uuid.UUID) (*Result, error) {
	strategy, err := s.GetStrategy(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	return s.allocate(ctx, orderID, listingID, quantity, strategy)
}

func (s *Service) allocate(ctx context.Context, orderID, listingID uuid.UUID, quantity int64, strategy *domain.AllocationStrategy) (*Result, error) {
	if orderID == uuid.Nil {
		return nil, apperrors.InvalidInput("order_id is required")
	}
	if listingID == uuid.Nil {
		return nil, apperrors.InvalidInput("listing_id is required")
	}
	if err := validation.PositiveQuantity(quantity); err != nil {
		return nil, err
	}

	result := &Result{Allocations: []domain.Allocation{}}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lots []domain.StockLot
		if err := lockLots(tx).
			Where("listing_id = ? AND listed = ?", listingID, true).
			Order("created_at ASC").
			Find(&lots).Error; err != nil {
			return err
		}
		if strategy != nil && strategy.StrategyType == domain.StrategyLocationPriority {
			sortByLocationPriority(lots, strategy.PriorityLocations())
		}

		remaining := quantity
		for _, lot := range lots {
			if remaining == 0 {
				break
			}
			reserved, err := activeAllocatedForLot(tx, lot.LotID)
			if err != nil {
				return err
			}
			capacity := lot.QuantityTotal - reserved
			if capacity <= 0 {
				continue
			}
			take := capacity
			if remaining < take {
				take = remaining
			}
			alloc := domain.Allocation{
				LotID:    lot.LotID,
				OrderID:  orderID,
				Quantity: take,
				Status:   domain.AllocationActive,
			}
			if err := tx.Create(&alloc).Error; err != nil {
				return err
			}
			result.Allocations = append(result.Allocations, alloc)
			remaining -= take
		}

		result.TotalAllocated = quantity - remaining
		result.IsPartial = result.TotalAllocated < quantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("order_id", orderID.String()).
		Str("listing_id", listingID.String()).
		Int64("requested", quantity).
		Int64("allocated", result.TotalAllocated).
		Bool("partial", result.IsPartial).
		Msg("Stock allocated")
	return result, nil
}

// sortByLocationPriority stably orders lots by the position of their location
// in priority; lots whose location is absent (or unspecified) sort last. The
// incoming FIFO order is the tiebreak.
func sortByLocationPriority(lots []domain.StockLot, priority []uuid.UUID) {
	rank := make(map[uuid.UUID]int, len(priority))
	for i, id := range priority {
		rank[id] = i
	}
	last := len(priority)
	sort.SliceStable(lots, func(i, j int) bool {
		return lotRank(lots[i], rank, last) < lotRank(lots[j], rank, last)
	})
}

func lotRank(lot domain.StockLot, rank map[uuid.UUID]int, last int) int {
	if lot.LocationID == nil {
		return last
	}
	if r, ok := rank[*lot.LocationID]; ok {
		return r
	}
	return last
}

// AllocateFromLot is the manual/administrative path: it reserves quantity
// against one specific lot, including reserve (listed=false) lots. Exceeding
// the lot's remaining capacity fails with OverAllocation rather than falling
// back to a partial result.
func (s *Service) AllocateFromLot(ctx context.Context, orderID, lotID uuid.UUID, quantity int64) (*domain.Allocation, error) {
	if orderID == uuid.Nil {
		return nil, apperrors.InvalidInput("order_id is required")
	}
	if err := validation.PositiveQuantity(quantity); err != nil {
		return nil, err
	}

	var alloc domain.Allocation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lot domain.StockLot
		if err := lockLots(tx).Where("lot_id = ?", lotID).First(&lot).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.NotFound("Stock lot", lotID)
			}
			return err
		}
		reserved, err := activeAllocatedForLot(tx, lotID)
		if err != nil {
			return err
		}
		capacity := lot.QuantityTotal - reserved
		if quantity > capacity {
			return apperrors.OverAllocation(lotID, quantity, capacity)
		}
		alloc = domain.Allocation{
			LotID:    lotID,
			OrderID:  orderID,
			Quantity: quantity,
			Status:   domain.AllocationActive,
		}
		return tx.Create(&alloc).Error
	})
	if err != nil {
		return nil, err
	}
	return &alloc, nil
}

// ReleaseAllocations flips every active allocation of the order to released.
// Idempotent: already-terminal rows are untouched and re-invocation is a
// no-op. Lot quantity_total is unchanged; the stock becomes available again
// because released rows no longer count toward the active sum.
func (s *Service) ReleaseAllocations(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return apperrors.InvalidInput("order_id is required")
	}
	var released int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Allocation{}).
			Where("order_id = ? AND status = ?", orderID, domain.AllocationActive).
			Update("status", domain.AllocationReleased)
		released = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return err
	}
	log.Info().
		Str("order_id", orderID.String()).
		Int64("released", released).
		Msg("Allocations released")
	return nil
}

// ConsumeAllocations permanently consumes the order's active allocations: each
// lot's quantity_total is decremented by the allocation's quantity and the
// allocation becomes fulfilled. All-or-nothing across the order's allocations.
func (s *Service) ConsumeAllocations(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return apperrors.InvalidInput("order_id is required")
	}
	var consumed int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var allocs []domain.Allocation
		if err := tx.Where("order_id = ? AND status = ?", orderID, domain.AllocationActive).
			Order("created_at ASC").
			Find(&allocs).Error; err != nil {
			return err
		}
		for _, a := range allocs {
			var lot domain.StockLot
			if err := lockLots(tx).Where("lot_id = ?", a.LotID).First(&lot).Error; err != nil {
				return fmt.Errorf("consume allocations: lot %s: %w", a.LotID, err)
			}
			newTotal := lot.QuantityTotal - a.Quantity
			if newTotal < 0 {
				return fmt.Errorf("consume allocations: lot %s holds %d but allocation %s reserves %d",
					lot.LotID, lot.QuantityTotal, a.AllocationID, a.Quantity)
			}
			if err := tx.Model(&lot).Update("quantity_total", newTotal).Error; err != nil {
				return err
			}
			if err := tx.Model(&domain.Allocation{}).
				Where("allocation_id = ?", a.AllocationID).
				Update("status", domain.AllocationFulfilled).Error; err != nil {
				return err
			}
			consumed += a.Quantity
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().
		Str("order_id", orderID.String()).
		Int64("consumed", consumed).
		Msg("Allocations consumed")
	return nil
}

// GetAllocations returns every allocation row of the order, oldest first.
func (s *Service) GetAllocations(ctx context.Context, orderID uuid.UUID) ([]domain.Allocation, error) {
	var allocs []domain.Allocation
	if err := s.DB.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&allocs).Error; err != nil {
		return nil, err
	}
	return allocs, nil
}

// AllocationDetail joins one allocation row back to its lot.
type AllocationDetail struct {
	AllocationID uuid.UUID               `json:"allocation_id"`
	LotID        uuid.UUID               `json:"lot_id"`
	LocationID   *uuid.UUID              `json:"location_id"`
	Quantity     int64                   `json:"quantity"`
	Status       domain.AllocationStatus `json:"status"`
}

// ListingSummary aggregates an order's allocations against one listing.
type ListingSummary struct {
	ListingID       uuid.UUID          `json:"listing_id"`
	TotalQuantity   int64              `json:"total_quantity"`
	AllocationCount int                `json:"allocation_count"`
	Allocations     []AllocationDetail `json:"allocations"`
}

// Summary is the per-order allocation report, grouped by listing.
type Summary struct {
	OrderID         uuid.UUID        `json:"order_id"`
	Listings        []ListingSummary `json:"listings"`
	TotalQuantity   int64            `json:"total_quantity"`
	AllocationCount int              `json:"allocation_count"`
}

// GetAllocationSummary joins the order's allocations back to their lots,
// grouped per listing, for order-detail presentation.
func (s *Service) GetAllocationSummary(ctx context.Context, orderID uuid.UUID) (*Summary, error) {
	allocs, err := s.GetAllocations(ctx, orderID)
	if err != nil {
		return nil, err
	}
	summary := &Summary{OrderID: orderID, Listings: []ListingSummary{}}
	if len(allocs) == 0 {
		return summary, nil
	}

	lotIDs := make([]uuid.UUID, 0, len(allocs))
	for _, a := range allocs {
		lotIDs = append(lotIDs, a.LotID)
	}
	var lots []domain.StockLot
	if err := s.DB.WithContext(ctx).Where("lot_id IN ?", lotIDs).Find(&lots).Error; err != nil {
		return nil, err
	}
	lotByID := make(map[uuid.UUID]domain.StockLot, len(lots))
	for _, l := range lots {
		lotByID[l.LotID] = l
	}

	byListing := map[uuid.UUID]*ListingSummary{}
	var order []uuid.UUID
	for _, a := range allocs {
		lot := lotByID[a.LotID]
		ls, ok := byListing[lot.ListingID]
		if !ok {
			ls = &ListingSummary{ListingID: lot.ListingID}
			byListing[lot.ListingID] = ls
			order = append(order, lot.ListingID)
		}
		ls.Allocations = append(ls.Allocations, AllocationDetail{
			AllocationID: a.AllocationID,
			LotID:        a.LotID,
			LocationID:   lot.LocationID,
			Quantity:     a.Quantity,
			Status:       a.Status,
		})
		ls.TotalQuantity += a.Quantity
		ls.AllocationCount++
		summary.TotalQuantity += a.Quantity
		summary.AllocationCount++
	}
	for _, listingID := range order {
		summary.Listings = append(summary.Listings, *byListing[listingID])
	}
	return summary, nil
}

// lockLots takes FOR UPDATE row locks on lot selects so concurrent writers
// serialize at the capacity check. Skipped on sqlite: its grammar has no
// FOR UPDATE and its single-writer transactions already serialize.
func lockLots(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// activeAllocatedForLot sums the quantity of a lot's active allocations.
func activeAllocatedForLot(tx *gorm.DB, lotID uuid.UUID) (int64, error) {
	var sum int64
	err := tx.Model(&domain.Allocation{}).
		Where("lot_id = ? AND status = ?", lotID, domain.AllocationActive).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error
	return sum, err
}

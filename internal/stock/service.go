package stock

import (
	"context"
	"errors"
	"time"

	"stocklot-backend/internal/domain"
	"stocklot-backend/internal/pkg/apperrors"
	"stocklot-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	DB *gorm.DB
}

// CreateLotInput carries the fields for a new lot. Listed defaults to true
// when nil.
type CreateLotInput struct {
	ListingID  uuid.UUID
	Quantity   int64
	LocationID *uuid.UUID
	OwnerID    *uuid.UUID
	Listed     *bool
	Notes      string
}

func (s *Service) CreateLot(ctx context.Context, in CreateLotInput) (*domain.StockLot, error) {
	if in.ListingID == uuid.Nil {
		return nil, apperrors.InvalidInput("listing_id is required")
	}
	if err := validation.Quantity(in.Quantity); err != nil {
		return nil, err
	}
	if err := validation.Notes(in.Notes, domain.MaxLotNotesLength); err != nil {
		return nil, err
	}
	listed := true
	if in.Listed != nil {
		listed = *in.Listed
	}

	lot := &domain.StockLot{
		ListingID:     in.ListingID,
		QuantityTotal: in.Quantity,
		LocationID:    in.LocationID,
		OwnerID:       in.OwnerID,
		Listed:        listed,
		Notes:         in.Notes,
	}
	if err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(lot).Error
	}); err != nil {
		return nil, err
	}
	return lot, nil
}

// UpdateLotInput carries partial updates. Nil fields are left unchanged.
// ClearLocation/ClearOwner reset the respective column to null.
// ExpectedUpdatedAt, when set, is an optimistic-concurrency guard: a mismatch
// against the stored row yields ConcurrentModification with the latest lot.
type UpdateLotInput struct {
	Quantity          *int64
	LocationID        *uuid.UUID
	ClearLocation     bool
	OwnerID           *uuid.UUID
	ClearOwner        bool
	Listed            *bool
	Notes             *string
	ExpectedUpdatedAt *time.Time
}

func (s *Service) UpdateLot(ctx context.Context, lotID uuid.UUID, in UpdateLotInput) (*domain.StockLot, error) {
	if in.Quantity != nil {
		if err := validation.Quantity(*in.Quantity); err != nil {
			return nil, err
		}
	}
	if in.Notes != nil {
		if err := validation.Notes(*in.Notes, domain.MaxLotNotesLength); err != nil {
			return nil, err
		}
	}

	var lot domain.StockLot
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockLots(tx).Where("lot_id = ?", lotID).First(&lot).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Stock lot", lotID)
			}
			return err
		}
		if in.ExpectedUpdatedAt != nil && !lot.UpdatedAt.Equal(*in.ExpectedUpdatedAt) {
			return apperrors.ConcurrentModification(lotID, "StockLot", lot)
		}

		updates := map[string]interface{}{}
		if in.Quantity != nil {
			reserved, err := activeAllocatedForLot(tx, lotID)
			if err != nil {
				return err
			}
			if *in.Quantity < reserved {
				return apperrors.InvalidQuantity(*in.Quantity, "cannot drop below actively allocated quantity")
			}
			updates["quantity_total"] = *in.Quantity
		}
		if in.ClearLocation {
			updates["location_id"] = nil
		} else if in.LocationID != nil {
			updates["location_id"] = *in.LocationID
		}
		if in.ClearOwner {
			updates["owner_id"] = nil
		} else if in.OwnerID != nil {
			updates["owner_id"] = *in.OwnerID
		}
		if in.Listed != nil {
			updates["listed"] = *in.Listed
		}
		if in.Notes != nil {
			updates["notes"] = *in.Notes
		}
		if len(updates) == 0 {
			return apperrors.InvalidInput("No valid changes provided")
		}
		if err := tx.Model(&lot).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("lot_id = ?", lotID).First(&lot).Error
	})
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// DeleteLot removes a lot. Lots with active allocations cannot be deleted;
// callers must release the allocations first. Terminal allocation rows are
// history and never block deletion.
func (s *Service) DeleteLot(ctx context.Context, lotID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lot domain.StockLot
		if err := lockLots(tx).Where("lot_id = ?", lotID).First(&lot).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Stock lot", lotID)
			}
			return err
		}
		var active int64
		if err := tx.Model(&domain.Allocation{}).
			Where("lot_id = ? AND status = ?", lotID, domain.AllocationActive).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return apperrors.HasActiveAllocations(lotID, active)
		}
		return tx.Delete(&lot).Error
	})
}

// LotFilter narrows GetLots. Nil fields match everything. UnspecifiedLocation
// matches lots with no location.
type LotFilter struct {
	ListingID           *uuid.UUID
	LocationID          *uuid.UUID
	UnspecifiedLocation bool
	OwnerID             *uuid.UUID
	Listed              *bool
}

// GetLots returns matching lots ordered oldest-created first. This ordering
// underlies FIFO allocation.
func (s *Service) GetLots(ctx context.Context, f LotFilter) ([]domain.StockLot, error) {
	q := s.DB.WithContext(ctx).Model(&domain.StockLot{})
	if f.ListingID != nil {
		q = q.Where("listing_id = ?", *f.ListingID)
	}
	if f.UnspecifiedLocation {
		q = q.Where("location_id IS NULL")
	} else if f.LocationID != nil {
		q = q.Where("location_id = ?", *f.LocationID)
	}
	if f.OwnerID != nil {
		q = q.Where("owner_id = ?", *f.OwnerID)
	}
	if f.Listed != nil {
		q = q.Where("listed = ?", *f.Listed)
	}
	var lots []domain.StockLot
	if err := q.Order("created_at ASC").Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// GetLot returns one lot.
func (s *Service) GetLot(ctx context.Context, lotID uuid.UUID) (*domain.StockLot, error) {
	var lot domain.StockLot
	if err := s.DB.WithContext(ctx).Where("lot_id = ?", lotID).First(&lot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Stock lot", lotID)
		}
		return nil, err
	}
	return &lot, nil
}

// GetUnspecifiedLot returns the listing's listed lot at the null location,
// used by the single-number "simple stock" compatibility mode.
func (s *Service) GetUnspecifiedLot(ctx context.Context, listingID uuid.UUID) (*domain.StockLot, error) {
	var lot domain.StockLot
	if err := s.DB.WithContext(ctx).
		Where("listing_id = ? AND location_id IS NULL AND listed = ?", listingID, true).
		Order("created_at ASC").
		First(&lot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Unspecified stock lot", listingID)
		}
		return nil, err
	}
	return &lot, nil
}

// UpdateSimpleStock upserts the Unspecified lot's quantity_total to exactly
// quantity, creating the lot when absent. This is the sole bridge between the
// legacy single-number stock model and the multi-lot model.
func (s *Service) UpdateSimpleStock(ctx context.Context, listingID uuid.UUID, quantity int64) (*domain.StockLot, error) {
	if listingID == uuid.Nil {
		return nil, apperrors.InvalidInput("listing_id is required")
	}
	if err := validation.Quantity(quantity); err != nil {
		return nil, err
	}

	var lot domain.StockLot
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := lockLots(tx).
			Where("listing_id = ? AND location_id IS NULL AND listed = ?", listingID, true).
			Order("created_at ASC").
			First(&lot).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			lot = domain.StockLot{
				ListingID:     listingID,
				QuantityTotal: quantity,
				Listed:        true,
			}
			return tx.Create(&lot).Error
		}
		if err != nil {
			return err
		}
		reserved, err := activeAllocatedForLot(tx, lot.LotID)
		if err != nil {
			return err
		}
		if quantity < reserved {
			return apperrors.InvalidQuantity(quantity, "cannot drop below actively allocated quantity")
		}
		if err := tx.Model(&lot).Update("quantity_total", quantity).Error; err != nil {
			return err
		}
		return tx.Where("lot_id = ?", lot.LotID).First(&lot).Error
	})
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// Aggregation is the live stock summary for a listing. Computed against
// committed state at query time; valid only as a snapshot.
type Aggregation struct {
	ListingID uuid.UUID `json:"listing_id"`
	Total     int64     `json:"total"`
	Reserved  int64     `json:"reserved"`
	Available int64     `json:"available"`
}

// GetStockAggregation returns total, reserved and available quantity for a
// listing from one consistent read. Total sums listed lots only; reserved sums
// the listing's active allocations.
func (s *Service) GetStockAggregation(ctx context.Context, listingID uuid.UUID) (*Aggregation, error) {
	agg := &Aggregation{ListingID: listingID}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.StockLot{}).
			Where("listing_id = ? AND listed = ?", listingID, true).
			Select("COALESCE(SUM(quantity_total), 0)").
			Scan(&agg.Total).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Allocation{}).
			Joins(`JOIN "StockLots" ON "StockLots".lot_id = "Allocations".lot_id`).
			Where(`"StockLots".listing_id = ? AND "Allocations".status = ?`, listingID, domain.AllocationActive).
			Select(`COALESCE(SUM("Allocations".quantity), 0)`).
			Scan(&agg.Reserved).Error; err != nil {
			return err
		}
		agg.Available = agg.Total - agg.Reserved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// GetTotalStock returns the sum of quantity_total over the listing's listed lots.
func (s *Service) GetTotalStock(ctx context.Context, listingID uuid.UUID) (int64, error) {
	agg, err := s.GetStockAggregation(ctx, listingID)
	if err != nil {
		return 0, err
	}
	return agg.Total, nil
}

// GetReservedStock returns the sum of the listing's active allocations.
func (s *Service) GetReservedStock(ctx context.Context, listingID uuid.UUID) (int64, error) {
	agg, err := s.GetStockAggregation(ctx, listingID)
	if err != nil {
		return 0, err
	}
	return agg.Reserved, nil
}

// GetAvailableStock returns total minus reserved.
func (s *Service) GetAvailableStock(ctx context.Context, listingID uuid.UUID) (int64, error) {
	agg, err := s.GetStockAggregation(ctx, listingID)
	if err != nil {
		return 0, err
	}
	return agg.Available, nil
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

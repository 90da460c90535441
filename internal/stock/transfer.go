package stock

import (
	"context"
	"errors"

	"stocklot-backend/internal/domain"
	"stocklot-backend/internal/pkg/apperrors"
	"stocklot-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// TransferResult reports the lots touched by a transfer. A full transfer
// relocates the source lot in place, so Source and Destination are the same lot.
type TransferResult struct {
	Source      *domain.StockLot `json:"source"`
	Destination *domain.StockLot `json:"destination"`
}

// TransferLot atomically moves quantity from a source lot to a destination
// location (nil = Unspecified).
//
// Full transfer (quantity == source total): the source lot's location changes
// in place; identity and attached allocations are preserved.
//
// Partial transfer: the source is decremented and the quantity merges into an
// existing lot at the destination with the same (listing, owner, listed), or a
// new lot is created there with the source's notes/owner/listed copied. A
// partial transfer draws only from the source's unreserved remainder, so active
// allocations never exceed what stays behind.
func (s *Service) TransferLot(ctx context.Context, sourceLotID uuid.UUID, destLocationID *uuid.UUID, quantity int64) (*TransferResult, error) {
	if err := validation.PositiveQuantity(quantity); err != nil {
		return nil, err
	}

	var result TransferResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var source domain.StockLot
		if err := lockLots(tx).Where("lot_id = ?", sourceLotID).First(&source).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Stock lot", sourceLotID)
			}
			return err
		}
		if destLocationID != nil {
			var count int64
			if err := tx.Model(&domain.Location{}).
				Where("location_id = ?", *destLocationID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return apperrors.NotFound("Location", *destLocationID)
			}
		}
		if quantity > source.QuantityTotal {
			return apperrors.InsufficientStock(source.ListingID, quantity, source.QuantityTotal)
		}

		if quantity == source.QuantityTotal {
			if err := tx.Model(&source).Update("location_id", destLocationID).Error; err != nil {
				return err
			}
			if err := tx.Where("lot_id = ?", source.LotID).First(&source).Error; err != nil {
				return err
			}
			result.Source = &source
			result.Destination = &source
			return nil
		}

		reserved, err := activeAllocatedForLot(tx, source.LotID)
		if err != nil {
			return err
		}
		unreserved := source.QuantityTotal - reserved
		if quantity > unreserved {
			return apperrors.InsufficientStock(source.ListingID, quantity, unreserved,
				"release allocations first or transfer the full lot")
		}

		if err := tx.Model(&source).
			Update("quantity_total", source.QuantityTotal-quantity).Error; err != nil {
			return err
		}

		destQuery := lockLots(tx).Where("listing_id = ? AND listed = ? AND lot_id <> ?", source.ListingID, source.Listed, source.LotID)
		if destLocationID == nil {
			destQuery = destQuery.Where("location_id IS NULL")
		} else {
			destQuery = destQuery.Where("location_id = ?", *destLocationID)
		}
		if source.OwnerID == nil {
			destQuery = destQuery.Where("owner_id IS NULL")
		} else {
			destQuery = destQuery.Where("owner_id = ?", *source.OwnerID)
		}

		var dest domain.StockLot
		err = destQuery.Order("created_at ASC").First(&dest).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			dest = domain.StockLot{
				ListingID:     source.ListingID,
				QuantityTotal: quantity,
				LocationID:    destLocationID,
				OwnerID:       source.OwnerID,
				Listed:        source.Listed,
				Notes:         source.Notes,
			}
			if err := tx.Create(&dest).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		} else {
			if err := tx.Model(&dest).
				Update("quantity_total", dest.QuantityTotal+quantity).Error; err != nil {
				return err
			}
			if err := tx.Where("lot_id = ?", dest.LotID).First(&dest).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("lot_id = ?", source.LotID).First(&source).Error; err != nil {
			return err
		}
		result.Source = &source
		result.Destination = &dest
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("source_lot", result.Source.LotID.String()).
		Str("destination_lot", result.Destination.LotID.String()).
		Int64("quantity", quantity).
		Msg("Stock transferred")
	return &result, nil
}

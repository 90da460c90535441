package stock

import (
	"context"
	"testing"
	"time"

	"stocklot-backend/internal/domain"
	"stocklot-backend/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedLocation(t *testing.T, db *gorm.DB, name string) domain.Location {
	loc := domain.Location{Name: name, IsPreset: true}
	require.NoError(t, db.Create(&loc).Error)
	return loc
}

func TestTransferLot_FullTransferPreservesIdentity(t *testing.T) {
	svc := setupStockTest(t)
	dest := seedLocation(t, svc.DB, "Lorville")
	lot := seedLot(t, svc.DB, domain.StockLot{ListingID: uuid.New(), QuantityTotal: 10, Listed: true}, time.Hour)
	seedAllocation(t, svc.DB, lot.LotID, uuid.New(), 8, domain.AllocationActive)

	// Full transfer moves the lot even when most of it is reserved.
	res, err := svc.TransferLot(context.Background(), lot.LotID, &dest.LocationID, 10)
	require.NoError(t, err)
	assert.Equal(t, lot.LotID, res.Source.LotID)
	assert.Equal(t, lot.LotID, res.Destination.LotID)
	require.NotNil(t, res.Source.LocationID)
	assert.Equal(t, dest.LocationID, *res.Source.LocationID)
	assert.Equal(t, int64(10), res.Source.QuantityTotal)

	// Allocations travelled with the lot.
	var allocs []domain.Allocation
	require.NoError(t, svc.DB.Where("lot_id = ?", lot.LotID).Find(&allocs).Error)
	require.Len(t, allocs, 1)
	assert.Equal(t, domain.AllocationActive, allocs[0].Status)
}

func TestTransferLot_FullTransferRoundTrip(t *testing.T) {
	svc := setupStockTest(t)
	dest := seedLocation(t, svc.DB, "Area18")
	lot := seedLot(t, svc.DB, domain.StockLot{ListingID: uuid.New(), QuantityTotal: 5, Listed: true}, time.Hour)

	_, err := svc.TransferLot(context.Background(), lot.LotID, &dest.LocationID, 5)
	require.NoError(t, err)
	res, err := svc.TransferLot(context.Background(), lot.LotID, nil, 5)
	require.NoError(t, err)
	assert.Equal(t, lot.LotID, res.Source.LotID)
	assert.Nil(t, res.Source.LocationID)
	assert.Equal(t, int64(5), res.Source.QuantityTotal)
}

func TestTransferLot_PartialSplit(t *testing.T) {
	svc := setupStockTest(t)
	dest := seedLocation(t, svc.DB, "Orison")
	owner := uuid.New()
	lot := seedLot(t, svc.DB, domain.StockLot{
		ListingID:     uuid.New(),
		QuantityTotal: 10,
		OwnerID:       &owner,
		Listed:        true,
		Notes:         "hangar overflow",
	}, time.Hour)

	res, err := svc.TransferLot(context.Background(), lot.LotID, &dest.LocationID, 4)
	require.NoError(t, err)
	assert.Equal(t, lot.LotID, res.Source.LotID)
	assert.Equal(t, int64(6), res.Source.QuantityTotal)
	assert.NotEqual(t, lot.LotID, res.Destination.LotID)
	assert.Equal(t, int64(4), res.Destination.QuantityTotal)
	require.NotNil(t, res.Destination.LocationID)
	assert.Equal(t, dest.LocationID, *res.Destination.LocationID)
	// New lot inherits owner, listed and notes from the source.
	require.NotNil(t, res.Destination.OwnerID)
	assert.Equal(t, owner, *res.Destination.OwnerID)
	assert.True(t, res.Destination.Listed)
	assert.Equal(t, "hangar overflow", res.Destination.Notes)
}

func TestTransferLot_PartialMergesIntoExistingLot(t *testing.T) {
	svc := setupStockTest(t)
	dest := seedLocation(t, svc.DB, "New Babbage")
	listingID := uuid.New()
	source := seedLot(t, svc.DB, domain.StockLot{ListingID: listingID, QuantityTotal: 10, Listed: true}, 2*time.Hour)
	existing := seedLot(t, svc.DB, domain.StockLot{ListingID: listingID, QuantityTotal: 3, LocationID: &dest.LocationID, Listed: true}, time.Hour)

	res, err := svc.TransferLot(context.Background(), source.LotID, &dest.LocationID, 4)
	require.NoError(t, err)
	assert.Equal(t, existing.LotID, res.Destination.LotID)
	assert.Equal(t, int64(7), res.Destination.QuantityTotal)
	assert.Equal(t, int64(6), res.Source.QuantityTotal)

	var count int64
	require.NoError(t, svc.DB.Model(&domain.StockLot{}).Where("listing_id = ?", listingID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestTransferLot_PartialDoesNotMergeAcrossOwners(t *testing.T) {
	svc := setupStockTest(t)
	dest := seedLocation(t, svc.DB, "Lorville")
	listingID := uuid.New()
	owner := uuid.New()
	source := seedLot(t, svc.DB, domain.StockLot{ListingID: listingID, QuantityTotal: 10, OwnerID: &owner, Listed: true}, 2*time.Hour)
	other := uuid.New()
	seedLot(t, svc.DB, domain.StockLot{ListingID: listingID, QuantityTotal: 3, LocationID: &dest.LocationID, OwnerID: &other, Listed: true}, time.Hour)

	res, err := svc.TransferLot(context.Background(), source.LotID, &dest.LocationID, 4)
	require.NoError(t, err)
	require.NotNil(t, res.Destination.OwnerID)
	assert.Equal(t, owner, *res.Destination.OwnerID)
	assert.Equal(t, int64(4), res.Destination.QuantityTotal)

	var count int64
	require.NoError(t, svc.DB.Model(&domain.StockLot{}).Where("listing_id = ?", listingID).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestTransferLot_NonPositiveQuantity(t *testing.T) {
	svc := setupStockTest(t)
	lot := seedLot(t, svc.DB, domain.StockLot{ListingID: uuid.New(), QuantityTotal: 5, Listed: true}, time.Hour)

	for _, q := range []int64{0, -3} {
		_, err := svc.TransferLot(context.Background(), lot.LotID, nil, q)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindInvalidQuantity, apperrors.KindOf(err))
	}
}

func TestTransferLot_InsufficientStock(t *testing.T) {
	svc := setupStockTest(t)
	lot := seedLot(t, svc.DB, domain.StockLot{ListingID: uuid.New(), QuantityTotal: 5, Listed: true}, time.Hour)

	_, err := svc.TransferLot(context.Background(), lot.LotID, nil, 6)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInsufficientStock, apperrors.KindOf(err))
}

func TestTransferLot_PartialLimitedToUnreserved(t *testing.T) {
	svc := setupStockTest(t)
	dest := seedLocation(t, svc.DB, "Area18")
	lot := seedLot(t, svc.DB, domain.StockLot{ListingID: uuid.New(), QuantityTotal: 10, Listed: true}, time.Hour)
	seedAllocation(t, svc.DB, lot.LotID, uuid.New(), 7, domain.AllocationActive)

	// Only 3 units are unreserved; a partial transfer of 4 must fail.
	_, err := svc.TransferLot(context.Background(), lot.LotID, &dest.LocationID, 4)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInsufficientStock, apperrors.KindOf(err))

	res, err := svc.TransferLot(context.Background(), lot.LotID, &dest.LocationID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Source.QuantityTotal)
	assert.Equal(t, int64(3), res.Destination.QuantityTotal)
}

func TestTransferLot_UnknownDestinationLocation(t *testing.T) {
	svc := setupStockTest(t)
	lot := seedLot(t, svc.DB, domain.StockLot{ListingID: uuid.New(), QuantityTotal: 5, Listed: true}, time.Hour)

	missing := uuid.New()
	_, err := svc.TransferLot(context.Background(), lot.LotID, &missing, 2)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestTransferLot_UnknownSourceLot(t *testing.T) {
	svc := setupStockTest(t)

	_, err := svc.TransferLot(context.Background(), uuid.New(), nil, 2)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

package orders

import (
	"context"
	"testing"
	"time"

	"stocklot-backend/internal/allocation"
	"stocklot-backend/internal/domain"
	"stocklot-backend/internal/pkg/apperrors"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupIntegratorTest(t *testing.T) *Integrator {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Location{},
		&domain.StockLot{},
		&domain.Allocation{},
		&domain.AllocationStrategy{},
		&domain.AllocationModeSetting{},
	))
	return &Integrator{Allocations: &allocation.Service{DB: db}}
}

func seedLot(t *testing.T, db *gorm.DB, lot domain.StockLot, age time.Duration) domain.StockLot {
	lot.CreatedAt = time.Now().Add(-age)
	require.NoError(t, db.Create(&lot).Error)
	return lot
}

func TestAllocateStockForOrder_MultiListing(t *testing.T) {
	ig := setupIntegratorTest(t)
	db := ig.Allocations.DB
	listingA := uuid.New()
	listingB := uuid.New()
	seedLot(t, db, domain.StockLot{ListingID: listingA, QuantityTotal: 10, Listed: true}, 2*time.Hour)
	seedLot(t, db, domain.StockLot{ListingID: listingB, QuantityTotal: 3, Listed: true}, time.Hour)

	orderID := uuid.New()
	res, err := ig.AllocateStockForOrder(context.Background(), orderID, []OrderLine{
		{ListingID: listingA, Quantity: 6},
		{ListingID: listingB, Quantity: 5},
	}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAuto, res.Mode)
	assert.Equal(t, int64(11), res.TotalRequested)
	assert.Equal(t, int64(9), res.TotalAllocated)
	assert.True(t, res.HasPartialAllocations)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, int64(6), res.Lines[0].Allocated)
	assert.False(t, res.Lines[0].IsPartial)
	assert.Equal(t, int64(3), res.Lines[1].Allocated)
	assert.True(t, res.Lines[1].IsPartial)
}

func TestAllocateStockForOrder_ContinuesPastLineErrors(t *testing.T) {
	ig := setupIntegratorTest(t)
	db := ig.Allocations.DB
	listingOK := uuid.New()
	seedLot(t, db, domain.StockLot{ListingID: listingOK, QuantityTotal: 5, Listed: true}, time.Hour)

	res, err := ig.AllocateStockForOrder(context.Background(), uuid.New(), []OrderLine{
		{ListingID: uuid.New(), Quantity: 0},
		{ListingID: listingOK, Quantity: 4},
	}, nil, nil)
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, string(apperrors.KindInvalidQuantity), res.Lines[0].ErrorKind)
	assert.NotEmpty(t, res.Lines[0].Error)
	assert.Equal(t, int64(0), res.Lines[0].Allocated)
	assert.Equal(t, int64(4), res.Lines[1].Allocated)
	assert.Equal(t, int64(4), res.TotalAllocated)
}

func TestAllocateStockForOrder_SkipsWhenModeNotAuto(t *testing.T) {
	ig := setupIntegratorTest(t)
	db := ig.Allocations.DB
	contractorID := uuid.New()
	listingID := uuid.New()
	seedLot(t, db, domain.StockLot{ListingID: listingID, QuantityTotal: 10, Listed: true}, time.Hour)

	_, err := ig.Allocations.SetAllocationMode(context.Background(), domain.ModeEntityContractor, contractorID, domain.ModeManual)
	require.NoError(t, err)

	res, err := ig.AllocateStockForOrder(context.Background(), uuid.New(), []OrderLine{
		{ListingID: listingID, Quantity: 4},
	}, &contractorID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeManual, res.Mode)
	assert.Equal(t, int64(0), res.TotalAllocated)
	require.Len(t, res.Lines, 1)
	assert.True(t, res.Lines[0].Skipped)
	assert.Empty(t, res.Lines[0].Allocations)

	var count int64
	require.NoError(t, db.Model(&domain.Allocation{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestAllocateStockForOrder_SellerUserModeApplies(t *testing.T) {
	ig := setupIntegratorTest(t)
	db := ig.Allocations.DB
	sellerID := uuid.New()
	listingID := uuid.New()
	seedLot(t, db, domain.StockLot{ListingID: listingID, QuantityTotal: 10, Listed: true}, time.Hour)

	_, err := ig.Allocations.SetAllocationMode(context.Background(), domain.ModeEntityUser, sellerID, domain.ModeNone)
	require.NoError(t, err)

	res, err := ig.AllocateStockForOrder(context.Background(), uuid.New(), []OrderLine{
		{ListingID: listingID, Quantity: 4},
	}, nil, &sellerID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeNone, res.Mode)
	require.Len(t, res.Lines, 1)
	assert.True(t, res.Lines[0].Skipped)

	// A contractor setting still outranks the selling user's.
	contractorID := uuid.New()
	_, err = ig.Allocations.SetAllocationMode(context.Background(), domain.ModeEntityContractor, contractorID, domain.ModeAuto)
	require.NoError(t, err)
	res, err = ig.AllocateStockForOrder(context.Background(), uuid.New(), []OrderLine{
		{ListingID: listingID, Quantity: 4},
	}, &contractorID, &sellerID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAuto, res.Mode)
	assert.Equal(t, int64(4), res.TotalAllocated)
}

func TestAllocateStockForOrder_UsesContractorStrategy(t *testing.T) {
	ig := setupIntegratorTest(t)
	db := ig.Allocations.DB
	contractorID := uuid.New()
	listingID := uuid.New()
	locPreferred := uuid.New()

	seedLot(t, db, domain.StockLot{ListingID: listingID, QuantityTotal: 5, Listed: true}, 2*time.Hour)
	preferred := seedLot(t, db, domain.StockLot{ListingID: listingID, QuantityTotal: 5, LocationID: &locPreferred, Listed: true}, time.Hour)

	_, err := ig.Allocations.UpsertStrategy(context.Background(), contractorID, domain.StrategyLocationPriority, []uuid.UUID{locPreferred})
	require.NoError(t, err)

	res, err := ig.AllocateStockForOrder(context.Background(), uuid.New(), []OrderLine{
		{ListingID: listingID, Quantity: 3},
	}, &contractorID, nil)
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	require.Len(t, res.Lines[0].Allocations, 1)
	assert.Equal(t, preferred.LotID, res.Lines[0].Allocations[0].LotID)
}

func TestAllocateStockForOrder_Validation(t *testing.T) {
	ig := setupIntegratorTest(t)

	_, err := ig.AllocateStockForOrder(context.Background(), uuid.Nil, []OrderLine{{ListingID: uuid.New(), Quantity: 1}}, nil, nil)
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))

	_, err = ig.AllocateStockForOrder(context.Background(), uuid.New(), nil, nil, nil)
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))
}

func TestReleaseAndConsumeForOrder(t *testing.T) {
	ig := setupIntegratorTest(t)
	db := ig.Allocations.DB
	listingID := uuid.New()
	lot := seedLot(t, db, domain.StockLot{ListingID: listingID, QuantityTotal: 10, Listed: true}, time.Hour)

	cancelled := uuid.New()
	_, err := ig.AllocateStockForOrder(context.Background(), cancelled, []OrderLine{{ListingID: listingID, Quantity: 4}}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, ig.ReleaseAllocationsForOrder(context.Background(), cancelled))

	fulfilled := uuid.New()
	_, err = ig.AllocateStockForOrder(context.Background(), fulfilled, []OrderLine{{ListingID: listingID, Quantity: 6}}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, ig.ConsumeAllocationsForOrder(context.Background(), fulfilled))

	var got domain.StockLot
	require.NoError(t, db.Where("lot_id = ?", lot.LotID).First(&got).Error)
	assert.Equal(t, int64(4), got.QuantityTotal)

	summary, err := ig.GetAllocationSummary(context.Background(), fulfilled)
	require.NoError(t, err)
	require.Len(t, summary.Listings, 1)
	assert.Equal(t, domain.AllocationFulfilled, summary.Listings[0].Allocations[0].Status)
}

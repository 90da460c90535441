package allocation

import (
	"context"
	"testing"

	"stocklot-backend/internal/domain"
	"stocklot-backend/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAllocationMode_DefaultsToAuto(t *testing.T) {
	svc := setupAllocationTest(t)

	mode, err := svc.GetAllocationMode(context.Background(), domain.ModeEntityUser, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAuto, mode)
}

func TestSetAllocationMode_Upserts(t *testing.T) {
	svc := setupAllocationTest(t)
	userID := uuid.New()

	setting, err := svc.SetAllocationMode(context.Background(), domain.ModeEntityUser, userID, domain.ModeManual)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeManual, setting.Mode)

	mode, err := svc.GetAllocationMode(context.Background(), domain.ModeEntityUser, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeManual, mode)

	again, err := svc.SetAllocationMode(context.Background(), domain.ModeEntityUser, userID, domain.ModeNone)
	require.NoError(t, err)
	assert.Equal(t, setting.SettingID, again.SettingID)

	var count int64
	require.NoError(t, svc.DB.Model(&domain.AllocationModeSetting{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSetAllocationMode_Validation(t *testing.T) {
	svc := setupAllocationTest(t)

	_, err := svc.SetAllocationMode(context.Background(), "team", uuid.New(), domain.ModeAuto)
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))

	_, err = svc.SetAllocationMode(context.Background(), domain.ModeEntityUser, uuid.Nil, domain.ModeAuto)
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))

	_, err = svc.SetAllocationMode(context.Background(), domain.ModeEntityUser, uuid.New(), "sometimes")
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))
}

func TestGetAllocationModeForListing_ContractorWins(t *testing.T) {
	svc := setupAllocationTest(t)
	contractorID := uuid.New()
	userID := uuid.New()

	_, err := svc.SetAllocationMode(context.Background(), domain.ModeEntityContractor, contractorID, domain.ModeNone)
	require.NoError(t, err)
	_, err = svc.SetAllocationMode(context.Background(), domain.ModeEntityUser, userID, domain.ModeManual)
	require.NoError(t, err)

	mode, err := svc.GetAllocationModeForListing(context.Background(), &contractorID, &userID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeNone, mode)

	// Without a contractor setting the user setting applies.
	mode, err = svc.GetAllocationModeForListing(context.Background(), nil, &userID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeManual, mode)

	// A contractor with no explicit setting falls through to the user.
	other := uuid.New()
	mode, err = svc.GetAllocationModeForListing(context.Background(), &other, &userID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeManual, mode)

	// Nothing stored anywhere: default auto.
	mode, err = svc.GetAllocationModeForListing(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAuto, mode)
}

func TestGetStrategy_AbsentReturnsNil(t *testing.T) {
	svc := setupAllocationTest(t)

	strategy, err := svc.GetStrategy(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, strategy)

	strategy, err = svc.GetStrategy(context.Background(), uuid.Nil)
	require.NoError(t, err)
	assert.Nil(t, strategy)
}

func TestUpsertStrategy_RoundTrip(t *testing.T) {
	svc := setupAllocationTest(t)
	contractorID := uuid.New()
	locA := uuid.New()
	locB := uuid.New()

	created, err := svc.UpsertStrategy(context.Background(), contractorID, domain.StrategyLocationPriority, []uuid.UUID{locA, locB})
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyLocationPriority, created.StrategyType)

	stored, err := svc.GetStrategy(context.Background(), contractorID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, []uuid.UUID{locA, locB}, stored.PriorityLocations())

	// Updating replaces the stored row rather than adding one.
	updated, err := svc.UpsertStrategy(context.Background(), contractorID, domain.StrategyFIFO, nil)
	require.NoError(t, err)
	assert.Equal(t, created.StrategyID, updated.StrategyID)
	assert.Equal(t, domain.StrategyFIFO, updated.StrategyType)

	var count int64
	require.NoError(t, svc.DB.Model(&domain.AllocationStrategy{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertStrategy_InvalidType(t *testing.T) {
	svc := setupAllocationTest(t)

	_, err := svc.UpsertStrategy(context.Background(), uuid.New(), "round_robin", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))
}

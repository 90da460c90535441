package allocation

import (
	"context"
	"errors"
	"fmt"

	"stocklot-backend/internal/domain"
	"stocklot-backend/internal/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetAllocationMode returns the stored mode for the entity, or the default
// auto when no setting exists.
func (s *Service) GetAllocationMode(ctx context.Context, entityType domain.ModeEntityType, entityID uuid.UUID) (domain.AllocationMode, error) {
	if !entityType.Valid() {
		return "", apperrors.InvalidInput(fmt.Sprintf("Invalid entity type %q", entityType))
	}
	if entityID == uuid.Nil {
		return "", apperrors.InvalidInput("entity_id is required")
	}
	var setting domain.AllocationModeSetting
	err := s.DB.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ModeAuto, nil
	}
	if err != nil {
		return "", err
	}
	return setting.Mode, nil
}

// SetAllocationMode upserts the mode for the entity.
func (s *Service) SetAllocationMode(ctx context.Context, entityType domain.ModeEntityType, entityID uuid.UUID, mode domain.AllocationMode) (*domain.AllocationModeSetting, error) {
	if !entityType.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid entity type %q", entityType))
	}
	if entityID == uuid.Nil {
		return nil, apperrors.InvalidInput("entity_id is required")
	}
	if !mode.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid allocation mode %q (must be auto, manual or none)", mode))
	}

	var setting domain.AllocationModeSetting
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("entity_type = ? AND entity_id = ?", entityType, entityID).First(&setting).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			setting = domain.AllocationModeSetting{
				EntityType: entityType,
				EntityID:   entityID,
				Mode:       mode,
			}
			return tx.Create(&setting).Error
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&setting).Update("mode", mode).Error; err != nil {
			return err
		}
		setting.Mode = mode
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// GetAllocationModeForListing resolves the mode governing a listing's seller:
// an explicit contractor setting wins, then an explicit user setting, then the
// default auto.
func (s *Service) GetAllocationModeForListing(ctx context.Context, contractorID, userID *uuid.UUID) (domain.AllocationMode, error) {
	if contractorID != nil && *contractorID != uuid.Nil {
		var setting domain.AllocationModeSetting
		err := s.DB.WithContext(ctx).
			Where("entity_type = ? AND entity_id = ?", domain.ModeEntityContractor, *contractorID).
			First(&setting).Error
		if err == nil {
			return setting.Mode, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
	}
	if userID != nil && *userID != uuid.Nil {
		var setting domain.AllocationModeSetting
		err := s.DB.WithContext(ctx).
			Where("entity_type = ? AND entity_id = ?", domain.ModeEntityUser, *userID).
			First(&setting).Error
		if err == nil {
			return setting.Mode, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
	}
	return domain.ModeAuto, nil
}

// GetStrategy returns the contractor's allocation strategy, or nil when none
// is stored (the allocator falls back to FIFO).
func (s *Service) GetStrategy(ctx context.Context, contractorID uuid.UUID) (*domain.AllocationStrategy, error) {
	if contractorID == uuid.Nil {
		return nil, nil
	}
	var strategy domain.AllocationStrategy
	err := s.DB.WithContext(ctx).Where("contractor_id = ?", contractorID).First(&strategy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &strategy, nil
}

// UpsertStrategy stores the contractor's strategy (one row per contractor).
func (s *Service) UpsertStrategy(ctx context.Context, contractorID uuid.UUID, strategyType domain.StrategyType, locationPriorityOrder []uuid.UUID) (*domain.AllocationStrategy, error) {
	if contractorID == uuid.Nil {
		return nil, apperrors.InvalidInput("contractor_id is required")
	}
	if !strategyType.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid strategy type %q (must be fifo or location_priority)", strategyType))
	}

	var strategy domain.AllocationStrategy
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("contractor_id = ?", contractorID).First(&strategy).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			strategy = domain.AllocationStrategy{
				ContractorID: contractorID,
				StrategyType: strategyType,
			}
			if err := strategy.SetPriorityLocations(locationPriorityOrder); err != nil {
				return err
			}
			return tx.Create(&strategy).Error
		}
		if err != nil {
			return err
		}
		strategy.StrategyType = strategyType
		if err := strategy.SetPriorityLocations(locationPriorityOrder); err != nil {
			return err
		}
		return tx.Save(&strategy).Error
	})
	if err != nil {
		return nil, err
	}
	return &strategy, nil
}

package locations

import (
	"context"
	"errors"
	"strings"

	"stocklot-backend/internal/domain"
	"stocklot-backend/internal/pkg/apperrors"
	"stocklot-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultPresetNames are the shared pickup locations seeded at startup, in
// display order.
var DefaultPresetNames = []string{
	"Area18",
	"Lorville",
	"New Babbage",
	"Orison",
}

type Service struct {
	DB *gorm.DB
}

// CreateCustomLocation inserts a user-owned location. The name is trimmed and
// must not collide with a preset location or another custom location of the
// same owner (case-insensitive).
func (s *Service) CreateCustomLocation(ctx context.Context, name string, ownerID uuid.UUID) (*domain.Location, error) {
	trimmed, err := validation.LocationName(name)
	if err != nil {
		return nil, err
	}
	if ownerID == uuid.Nil {
		return nil, apperrors.InvalidInput("owner_id is required")
	}

	loc := &domain.Location{
		Name:      trimmed,
		IsPreset:  false,
		CreatedBy: &ownerID,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Location{}).
			Where("is_preset = ? AND LOWER(name) = LOWER(?)", true, trimmed).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.NameCollision(trimmed)
		}
		if err := tx.Model(&domain.Location{}).
			Where("is_preset = ? AND created_by = ? AND LOWER(name) = LOWER(?)", false, ownerID, trimmed).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.NameCollision(trimmed)
		}
		return tx.Create(loc).Error
	})
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// SearchOptions filters SearchLocations. Search is a case-insensitive
// substring of the name. OwnerID includes that owner's custom locations
// alongside the presets; PresetOnly restricts to presets regardless.
type SearchOptions struct {
	Search     string
	OwnerID    *uuid.UUID
	PresetOnly bool
}

// SearchLocations returns preset locations plus, unless PresetOnly, the
// owner's custom locations. Presets come first in display order.
func (s *Service) SearchLocations(ctx context.Context, opts SearchOptions) ([]domain.Location, error) {
	q := s.DB.WithContext(ctx).Model(&domain.Location{})
	if opts.PresetOnly || opts.OwnerID == nil {
		q = q.Where("is_preset = ?", true)
	} else {
		q = q.Where("is_preset = ? OR created_by = ?", true, *opts.OwnerID)
	}
	if strings.TrimSpace(opts.Search) != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(opts.Search))+"%")
	}
	var locs []domain.Location
	if err := q.Order("is_preset DESC, display_order ASC, name ASC").Find(&locs).Error; err != nil {
		return nil, err
	}
	return locs, nil
}

// GetPresetLocations returns the shared preset locations in display order.
func (s *Service) GetPresetLocations(ctx context.Context) ([]domain.Location, error) {
	var locs []domain.Location
	if err := s.DB.WithContext(ctx).
		Where("is_preset = ?", true).
		Order("display_order ASC, name ASC").
		Find(&locs).Error; err != nil {
		return nil, err
	}
	return locs, nil
}

// GetUserLocations returns the custom locations owned by ownerID.
func (s *Service) GetUserLocations(ctx context.Context, ownerID uuid.UUID) ([]domain.Location, error) {
	var locs []domain.Location
	if err := s.DB.WithContext(ctx).
		Where("is_preset = ? AND created_by = ?", false, ownerID).
		Order("name ASC").
		Find(&locs).Error; err != nil {
		return nil, err
	}
	return locs, nil
}

// GetByID returns one location.
func (s *Service) GetByID(ctx context.Context, locationID uuid.UUID) (*domain.Location, error) {
	var loc domain.Location
	if err := s.DB.WithContext(ctx).Where("location_id = ?", locationID).First(&loc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Location", locationID)
		}
		return nil, err
	}
	return &loc, nil
}

// GetByName returns the first location with the exact trimmed name, presets
// before custom locations.
func (s *Service) GetByName(ctx context.Context, name string) (*domain.Location, error) {
	trimmed := strings.TrimSpace(name)
	var loc domain.Location
	if err := s.DB.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", trimmed).
		Order("is_preset DESC").
		First(&loc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Location", uuid.Nil)
		}
		return nil, err
	}
	return &loc, nil
}

// EnsurePresetLocations seeds the default preset set. Idempotent: existing
// names are left untouched.
func EnsurePresetLocations(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for i, name := range DefaultPresetNames {
			var count int64
			if err := tx.Model(&domain.Location{}).
				Where("is_preset = ? AND LOWER(name) = LOWER(?)", true, name).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			order := i + 1
			if err := tx.Create(&domain.Location{
				Name:         name,
				IsPreset:     true,
				DisplayOrder: &order,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

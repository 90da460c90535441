package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllocationMode controls whether stock is reserved automatically when an
// order is created.
type AllocationMode string

const (
	ModeAuto   AllocationMode = "auto"
	ModeManual AllocationMode = "manual"
	ModeNone   AllocationMode = "none"
)

// Valid reports whether the mode is one of the known values.
func (m AllocationMode) Valid() bool {
	return m == ModeAuto || m == ModeManual || m == ModeNone
}

// ModeEntityType scopes an allocation-mode setting to a user or a contractor.
type ModeEntityType string

const (
	ModeEntityUser       ModeEntityType = "user"
	ModeEntityContractor ModeEntityType = "contractor"
)

// Valid reports whether the entity type is one of the known values.
func (t ModeEntityType) Valid() bool {
	return t == ModeEntityUser || t == ModeEntityContractor
}

// AllocationModeSetting stores the mode for one (entity_type, entity_id).
// Absence of a row means the default mode, auto. The contractor setting takes
// precedence over the user setting when both could apply to a listing's seller.
type AllocationModeSetting struct {
	SettingID  uuid.UUID      `gorm:"column:setting_id;type:uuid;primaryKey" json:"setting_id"`
	EntityType ModeEntityType `gorm:"column:entity_type;type:varchar(20);not null;uniqueIndex:idx_mode_entity" json:"entity_type"`
	EntityID   uuid.UUID      `gorm:"column:entity_id;type:uuid;not null;uniqueIndex:idx_mode_entity" json:"entity_id"`
	Mode       AllocationMode `gorm:"column:mode;type:varchar(20);not null;default:'auto'" json:"mode"`
	CreatedAt  time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (AllocationModeSetting) TableName() string {
	return "AllocationModeSettings"
}

// BeforeCreate sets setting_id if not already set.
func (s *AllocationModeSetting) BeforeCreate(tx *gorm.DB) error {
	if s.SettingID == uuid.Nil {
		s.SettingID = uuid.New()
	}
	return nil
}

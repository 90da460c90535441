package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location is a named pickup/storage place a stock lot is associated with.
// Preset locations are shared reference data; custom locations belong to the
// user who created them.
type Location struct {
	LocationID   uuid.UUID  `gorm:"column:location_id;type:uuid;primaryKey" json:"location_id"`
	Name         string     `gorm:"column:name;type:varchar(255);not null" json:"name"`
	IsPreset     bool       `gorm:"column:is_preset;not null;default:false" json:"is_preset"`
	DisplayOrder *int       `gorm:"column:display_order" json:"display_order"`
	CreatedBy    *uuid.UUID `gorm:"column:created_by;type:uuid" json:"created_by"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (Location) TableName() string {
	return "Locations"
}

// BeforeCreate sets location_id if not already set (DBs without default uuid).
func (l *Location) BeforeCreate(tx *gorm.DB) error {
	if l.LocationID == uuid.Nil {
		l.LocationID = uuid.New()
	}
	return nil
}

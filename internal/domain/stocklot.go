package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxLotNotesLength is the character limit on StockLot.Notes.
const MaxLotNotesLength = 1000

// StockLot is an independently tracked quantity pool for one listing, tagged
// with a location and an owner. A nil LocationID means "Unspecified"; a nil
// OwnerID means the lot is unassigned. Listed lots count toward the public
// listing's sellable total; unlisted lots are private reserve stock.
//
// Invariant: QuantityTotal >= sum(quantity of the lot's active allocations).
type StockLot struct {
	LotID         uuid.UUID  `gorm:"column:lot_id;type:uuid;primaryKey" json:"lot_id"`
	ListingID     uuid.UUID  `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	QuantityTotal int64      `gorm:"column:quantity_total;not null;default:0" json:"quantity_total"`
	LocationID    *uuid.UUID `gorm:"column:location_id;type:uuid" json:"location_id"`
	OwnerID       *uuid.UUID `gorm:"column:owner_id;type:uuid" json:"owner_id"`
	Listed        bool       `gorm:"column:listed;not null;default:true" json:"listed"`
	Notes         string     `gorm:"column:notes;type:varchar(1000)" json:"notes"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (StockLot) TableName() string {
	return "StockLots"
}

// BeforeCreate sets lot_id if not already set.
func (s *StockLot) BeforeCreate(tx *gorm.DB) error {
	if s.LotID == uuid.Nil {
		s.LotID = uuid.New()
	}
	return nil
}

package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StrategyType selects which lots automatic allocation draws from first.
type StrategyType string

const (
	StrategyFIFO             StrategyType = "fifo"
	StrategyLocationPriority StrategyType = "location_priority"
)

// Valid reports whether the strategy type is one of the known values.
func (t StrategyType) Valid() bool {
	return t == StrategyFIFO || t == StrategyLocationPriority
}

// AllocationStrategy is the per-contractor allocation policy. At most one row
// per contractor. LocationPriorityOrder is an ordered JSON array of location
// ids, used only by the location_priority strategy.
type AllocationStrategy struct {
	StrategyID            uuid.UUID      `gorm:"column:strategy_id;type:uuid;primaryKey" json:"strategy_id"`
	ContractorID          uuid.UUID      `gorm:"column:contractor_id;type:uuid;not null;uniqueIndex" json:"contractor_id"`
	StrategyType          StrategyType   `gorm:"column:strategy_type;type:varchar(30);not null;default:'fifo'" json:"strategy_type"`
	LocationPriorityOrder datatypes.JSON `gorm:"column:location_priority_order;type:json" json:"location_priority_order"`
	CreatedAt             time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (AllocationStrategy) TableName() string {
	return "AllocationStrategies"
}

// BeforeCreate sets strategy_id if not already set.
func (s *AllocationStrategy) BeforeCreate(tx *gorm.DB) error {
	if s.StrategyID == uuid.Nil {
		s.StrategyID = uuid.New()
	}
	return nil
}

// PriorityLocations decodes LocationPriorityOrder. Unparseable or empty data
// yields an empty slice, which the allocator treats as plain FIFO.
func (s *AllocationStrategy) PriorityLocations() []uuid.UUID {
	if len(s.LocationPriorityOrder) == 0 {
		return nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(s.LocationPriorityOrder, &ids); err != nil {
		return nil
	}
	return ids
}

// SetPriorityLocations encodes the ordered location ids into the JSON column.
func (s *AllocationStrategy) SetPriorityLocations(ids []uuid.UUID) error {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	s.LocationPriorityOrder = datatypes.JSON(b)
	return nil
}

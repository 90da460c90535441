package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllocationStatus is the lifecycle state of a reservation.
// active -> released (terminal) | active -> fulfilled (terminal).
type AllocationStatus string

const (
	AllocationActive    AllocationStatus = "active"
	AllocationReleased  AllocationStatus = "released"
	AllocationFulfilled AllocationStatus = "fulfilled"
)

// Allocation reserves quantity from one stock lot against one order. An order
// may hold multiple allocations across multiple lots (spanning purchase).
// Rows are append-only: terminal rows are never deleted or reused.
type Allocation struct {
	AllocationID uuid.UUID        `gorm:"column:allocation_id;type:uuid;primaryKey" json:"allocation_id"`
	LotID        uuid.UUID        `gorm:"column:lot_id;type:uuid;not null;index" json:"lot_id"`
	OrderID      uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	Quantity     int64            `gorm:"column:quantity;not null" json:"quantity"`
	Status       AllocationStatus `gorm:"column:status;type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt    time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

func (Allocation) TableName() string {
	return "Allocations"
}

// BeforeCreate sets allocation_id if not already set.
func (a *Allocation) BeforeCreate(tx *gorm.DB) error {
	if a.AllocationID == uuid.Nil {
		a.AllocationID = uuid.New()
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Movement types. Wire values follow the farm's Portuguese vocabulary.
const (
	MovementInbound    = "entrada"
	MovementOutbound   = "saida"
	MovementAdjustment = "ajuste"
)

// ValidMovementType reports whether t is a known movement type.
func ValidMovementType(t string) bool {
	return t == MovementInbound || t == MovementOutbound || t == MovementAdjustment
}

// InventoryMovement is one append-only ledger entry explaining a quantity
// change on an inventory item. Ordered by creation per item, the entries form
// a chain: each PreviousQuantityG equals the prior entry's NewQuantityG, and
// the item's cached QuantityG equals the last NewQuantityG. Entries are never
// updated or deleted.
type InventoryMovement struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InventoryItemID   uuid.UUID `gorm:"type:uuid;not null;index"`
	FarmID            uuid.UUID `gorm:"type:uuid;not null;index"`
	MovementType      string    `gorm:"not null"`
	QuantityChangeG   int64     `gorm:"not null"` // signed: positive inbound, negative outbound
	PreviousQuantityG int64     `gorm:"not null"`
	NewQuantityG      int64     `gorm:"not null"`
	Reason            string
	Notes             string
	CreatedBy         uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt         time.Time

	Item *InventoryItem `gorm:"foreignKey:InventoryItemID"`
}

// TableName overrides GORM's pluralization (inventory_movements is already plural).
func (InventoryMovement) TableName() string { return "inventory_movements" }

package model

import (
	"time"

	"github.com/google/uuid"
)

// Category enumerates the inventory categories used across the farm.
// The string values are the Portuguese terms the farms actually use and are
// what goes over the wire and into the database.
type Category string

const (
	CategoryFeed        Category = "racao"
	CategoryProbiotics  Category = "probioticos"
	CategoryFertilizers Category = "fertilizantes"
	CategoryMixture     Category = "mistura"
	CategoryOther       Category = "outros"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFeed, CategoryProbiotics, CategoryFertilizers, CategoryMixture, CategoryOther:
		return true
	}
	return false
}

// DefaultThresholdG returns the minimum-stock threshold applied when an item
// has no override, in grams. The switch is total over Category: adding a
// category without a threshold is a compile-review decision, and unknown
// values coming from old rows fall back to the CategoryOther default.
func (c Category) DefaultThresholdG() int64 {
	switch c {
	case CategoryFeed:
		return 500_000 // 500 kg, feed burns fastest
	case CategoryMixture:
		return 250_000
	case CategoryFertilizers:
		return 100_000
	case CategoryProbiotics:
		return 50_000
	case CategoryOther:
		return 10_000
	default:
		return 10_000
	}
}

// InventoryItem is a stocked input (feed, probiotics, fertilizer, …).
//
// QuantityG is an integer count of grams. It is never stored as floating-point
// kilograms: repeated fractional-kg arithmetic drifts, integer grams do not.
// Kilogram conversion happens only at the API boundary.
//
// QuantityG is a cached projection of the movement ledger: the last
// movement's NewQuantityG must always equal it (see InventoryMovement).
type InventoryItem struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FarmID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Name          string    `gorm:"not null"`
	Category      Category  `gorm:"type:varchar(20);not null"`
	QuantityG     int64     `gorm:"not null;default:0"`
	MinThresholdG *int64
	Active        bool `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EffectiveThresholdG is the item override when present, else the category default.
func (i *InventoryItem) EffectiveThresholdG() int64 {
	if i.MinThresholdG != nil {
		return *i.MinThresholdG
	}
	return i.Category.DefaultThresholdG()
}

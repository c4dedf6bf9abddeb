package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field records are the four kinds of data captured pond-side, possibly while
// offline. ClientOpID carries the offline operation id generated on the
// device; the unique index on it is what makes replay idempotent: a second
// sync of the same operation hits the index instead of inserting twice.

// FeedingRecord logs feed thrown into a pond. When InventoryItemID is set the
// same quantity is deducted from inventory through the movement ledger.
type FeedingRecord struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FarmID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	PondID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	CycleID         *uuid.UUID `gorm:"type:uuid;index"`
	InventoryItemID *uuid.UUID `gorm:"type:uuid;index"`
	QuantityG       int64      `gorm:"not null"`
	FedAt           time.Time  `gorm:"not null"`
	Notes           string
	ClientOpID      *string   `gorm:"uniqueIndex"`
	CreatedBy       uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt       time.Time
}

// BiometryRecord is a weekly weight sampling of a pond's population.
type BiometryRecord struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FarmID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	PondID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	CycleID        *uuid.UUID      `gorm:"type:uuid;index"`
	AverageWeightG decimal.Decimal `gorm:"type:decimal(8,3);not null"`
	SampleSize     int             `gorm:"not null"`
	MeasuredAt     time.Time       `gorm:"not null"`
	Notes          string
	ClientOpID     *string   `gorm:"uniqueIndex"`
	CreatedBy      uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt      time.Time
}

// WaterQualityRecord holds one round of physico-chemical measurements.
type WaterQualityRecord struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FarmID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	PondID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	CycleID      *uuid.UUID      `gorm:"type:uuid;index"`
	TemperatureC decimal.Decimal `gorm:"type:decimal(5,2)"`
	PH           decimal.Decimal `gorm:"type:decimal(4,2)"`
	OxygenMgL    decimal.Decimal `gorm:"type:decimal(5,2)"`
	SalinityPpt  decimal.Decimal `gorm:"type:decimal(5,2)"`
	MeasuredAt   time.Time       `gorm:"not null"`
	Notes        string
	ClientOpID   *string   `gorm:"uniqueIndex"`
	CreatedBy    uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt    time.Time
}

// MortalityRecord counts observed dead animals.
type MortalityRecord struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FarmID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	PondID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	CycleID    *uuid.UUID `gorm:"type:uuid;index"`
	DeadCount  int        `gorm:"not null"`
	Cause      string
	ObservedAt time.Time `gorm:"not null"`
	Notes      string
	ClientOpID *string   `gorm:"uniqueIndex"`
	CreatedBy  uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt  time.Time
}

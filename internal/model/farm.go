package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Farm is the top-level tenancy unit. Every pond, record, and inventory item
// belongs to exactly one farm, and access checks resolve against it.
type Farm struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Location  string
	Active    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Pond is a grow-out pond (viveiro) inside a farm.
type Pond struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FarmID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name      string          `gorm:"not null"`
	AreaM2    decimal.Decimal `gorm:"type:decimal(12,2)"`
	Active    bool            `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Farm *Farm `gorm:"foreignKey:FarmID"`
}

// Culture cycle status values.
const (
	CycleActive = "active"
	CycleClosed = "closed"
)

// CultureCycle is one stocking batch in a pond: from post-larvae stocking
// until harvest. Days-of-culture is derived from StockedAt, never stored.
type CultureCycle struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PondID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	FarmID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	StockedAt       time.Time       `gorm:"not null"`
	PostLarvaeCount int             `gorm:"not null"`
	DensityPerM2    decimal.Decimal `gorm:"type:decimal(10,2)"`
	Status          string          `gorm:"not null;default:'active'"`
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Pond *Pond `gorm:"foreignKey:PondID"`
}

// DOC returns days of culture as of now (0 if the cycle has not started).
func (c *CultureCycle) DOC(now time.Time) int {
	if now.Before(c.StockedAt) {
		return 0
	}
	end := now
	if c.ClosedAt != nil {
		end = *c.ClosedAt
	}
	return int(end.Sub(c.StockedAt).Hours() / 24)
}

// HarvestRecord closes a culture cycle and records the financial outcome.
// Money fields use decimal; biomass is kept in kilograms here because harvest
// weights come off a truck scale, not the gram-precise inventory ledger.
type HarvestRecord struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CycleID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	FarmID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	HarvestedAt time.Time       `gorm:"not null"`
	BiomassKg   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PricePerKg  decimal.Decimal `gorm:"type:decimal(10,2)"`
	Revenue     decimal.Decimal `gorm:"type:decimal(14,2)"`
	SurvivalPct decimal.Decimal `gorm:"type:decimal(5,2)"`
	Notes       string
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt   time.Time

	Cycle *CultureCycle `gorm:"foreignKey:CycleID"`
}

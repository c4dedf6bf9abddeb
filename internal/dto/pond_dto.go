package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateFarmRequest struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location"`
}

type FarmResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	OwnerID  string `json:"owner_id"`
}

type CreatePondRequest struct {
	Name   string          `json:"name" validate:"required"`
	AreaM2 decimal.Decimal `json:"area_m2" validate:"omitempty,min=0"`
}

type PondResponse struct {
	ID     string          `json:"id"`
	FarmID string          `json:"farm_id"`
	Name   string          `json:"name"`
	AreaM2 decimal.Decimal `json:"area_m2"`
	Active bool            `json:"active"`
}

type StartCycleRequest struct {
	StockedAt       time.Time       `json:"stocked_at" validate:"required"`
	PostLarvaeCount int             `json:"post_larvae_count" validate:"required,gt=0"`
	DensityPerM2    decimal.Decimal `json:"density_per_m2"`
}

type CycleResponse struct {
	ID              string          `json:"id"`
	PondID          string          `json:"pond_id"`
	FarmID          string          `json:"farm_id"`
	StockedAt       time.Time       `json:"stocked_at"`
	PostLarvaeCount int             `json:"post_larvae_count"`
	DensityPerM2    decimal.Decimal `json:"density_per_m2"`
	Status          string          `json:"status"`
	DOC             int             `json:"doc"`
	ClosedAt        *time.Time      `json:"closed_at,omitempty"`
}

type HarvestRequest struct {
	HarvestedAt time.Time       `json:"harvested_at" validate:"required"`
	BiomassKg   decimal.Decimal `json:"biomass_kg" validate:"required"`
	PricePerKg  decimal.Decimal `json:"price_per_kg"`
	Notes       string          `json:"notes"`
}

type HarvestResponse struct {
	ID          string          `json:"id"`
	CycleID     string          `json:"cycle_id"`
	HarvestedAt time.Time       `json:"harvested_at"`
	BiomassKg   decimal.Decimal `json:"biomass_kg"`
	PricePerKg  decimal.Decimal `json:"price_per_kg"`
	Revenue     decimal.Decimal `json:"revenue"`
	SurvivalPct decimal.Decimal `json:"survival_pct"`
	DOC         int             `json:"doc"`
	Notes       string          `json:"notes,omitempty"`
}

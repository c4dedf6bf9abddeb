package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Field-record requests double as offline payloads: the sync endpoint
// unmarshals each buffered operation's payload into one of these, so the
// shapes here ARE the offline wire format. ClientOpID is set by the sync path
// only; direct online writes leave it empty.

type CreateFeedingRequest struct {
	PondID          string    `json:"pond_id" validate:"required,uuid"`
	InventoryItemID string    `json:"inventory_item_id" validate:"omitempty,uuid"`
	QuantityG       int64     `json:"quantity_g" validate:"required,gt=0"`
	FedAt           time.Time `json:"fed_at" validate:"required"`
	Notes           string    `json:"notes"`
	ClientOpID      string    `json:"client_op_id,omitempty"`
}

type FeedingResponse struct {
	ID              string    `json:"id"`
	PondID          string    `json:"pond_id"`
	InventoryItemID *string   `json:"inventory_item_id,omitempty"`
	QuantityG       int64     `json:"quantity_g"`
	FedAt           time.Time `json:"fed_at"`
	Notes           string    `json:"notes,omitempty"`
}

type CreateBiometryRequest struct {
	PondID         string          `json:"pond_id" validate:"required,uuid"`
	AverageWeightG decimal.Decimal `json:"average_weight_g" validate:"required"`
	SampleSize     int             `json:"sample_size" validate:"required,gt=0"`
	MeasuredAt     time.Time       `json:"measured_at" validate:"required"`
	Notes          string          `json:"notes"`
	ClientOpID     string          `json:"client_op_id,omitempty"`
}

type BiometryResponse struct {
	ID             string          `json:"id"`
	PondID         string          `json:"pond_id"`
	AverageWeightG decimal.Decimal `json:"average_weight_g"`
	SampleSize     int             `json:"sample_size"`
	MeasuredAt     time.Time       `json:"measured_at"`
	Notes          string          `json:"notes,omitempty"`
}

type CreateWaterQualityRequest struct {
	PondID       string          `json:"pond_id" validate:"required,uuid"`
	TemperatureC decimal.Decimal `json:"temperature_c"`
	PH           decimal.Decimal `json:"ph"`
	OxygenMgL    decimal.Decimal `json:"oxygen_mg_l"`
	SalinityPpt  decimal.Decimal `json:"salinity_ppt"`
	MeasuredAt   time.Time       `json:"measured_at" validate:"required"`
	Notes        string          `json:"notes"`
	ClientOpID   string          `json:"client_op_id,omitempty"`
}

type WaterQualityResponse struct {
	ID           string          `json:"id"`
	PondID       string          `json:"pond_id"`
	TemperatureC decimal.Decimal `json:"temperature_c"`
	PH           decimal.Decimal `json:"ph"`
	OxygenMgL    decimal.Decimal `json:"oxygen_mg_l"`
	SalinityPpt  decimal.Decimal `json:"salinity_ppt"`
	MeasuredAt   time.Time       `json:"measured_at"`
	Notes        string          `json:"notes,omitempty"`
}

type CreateMortalityRequest struct {
	PondID     string    `json:"pond_id" validate:"required,uuid"`
	DeadCount  int       `json:"dead_count" validate:"required,gt=0"`
	Cause      string    `json:"cause"`
	ObservedAt time.Time `json:"observed_at" validate:"required"`
	Notes      string    `json:"notes"`
	ClientOpID string    `json:"client_op_id,omitempty"`
}

type MortalityResponse struct {
	ID         string    `json:"id"`
	PondID     string    `json:"pond_id"`
	DeadCount  int       `json:"dead_count"`
	Cause      string    `json:"cause,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
	Notes      string    `json:"notes,omitempty"`
}

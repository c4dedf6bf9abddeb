package dto

import "time"

// Inventory quantities travel as integer grams end to end. The *_kg response
// fields are display conveniences computed at this boundary; they never feed
// back into arithmetic.

type CreateItemRequest struct {
	Name          string `json:"name" validate:"required"`
	Category      string `json:"category" validate:"required"`
	QuantityG     int64  `json:"quantity_g" validate:"min=0"`
	MinThresholdG *int64 `json:"min_threshold_g" validate:"omitempty,min=0"`
}

type UpdateItemRequest struct {
	Name          *string `json:"name"`
	MinThresholdG *int64  `json:"min_threshold_g" validate:"omitempty,min=0"`
}

type ItemResponse struct {
	ID            string  `json:"id"`
	FarmID        string  `json:"farm_id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	QuantityG     int64   `json:"quantity_g"`
	QuantityKg    float64 `json:"quantity_kg"`
	MinThresholdG *int64  `json:"min_threshold_g,omitempty"`
	ThresholdG    int64   `json:"effective_threshold_g"`
	Active        bool    `json:"active"`
}

type ApplyMovementRequest struct {
	MovementType    string `json:"movement_type" validate:"required,oneof=entrada saida ajuste"`
	QuantityChangeG int64  `json:"quantity_change_g" validate:"required"`
	Reason          string `json:"reason" validate:"required"`
	Notes           string `json:"notes"`
}

type MovementResponse struct {
	ID                string    `json:"id"`
	InventoryItemID   string    `json:"inventory_item_id"`
	ItemName          string    `json:"item_name,omitempty"`
	MovementType      string    `json:"movement_type"`
	QuantityChangeG   int64     `json:"quantity_change_g"`
	PreviousQuantityG int64     `json:"previous_quantity_g"`
	NewQuantityG      int64     `json:"new_quantity_g"`
	Reason            string    `json:"reason"`
	Notes             string    `json:"notes,omitempty"`
	CreatedBy         string    `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
}

type MovementListResponse struct {
	Movements []MovementResponse `json:"movements"`
	Total     int64              `json:"total"`
	Page      int                `json:"page"`
	Limit     int                `json:"limit"`
}

// Alert severities, strongest first.
const (
	AlertHigh   = "high"
	AlertMedium = "medium"
	AlertLow    = "low"
)

type StockAlertResponse struct {
	ItemID     string  `json:"item_id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	QuantityG  int64   `json:"quantity_g"`
	QuantityKg float64 `json:"quantity_kg"`
	ThresholdG int64   `json:"threshold_g"`
	Severity   string  `json:"severity"`
}

// Forecast accuracy tiers.
const (
	AccuracyHigh   = "high"
	AccuracyMedium = "medium"
	AccuracyLow    = "low"
)

type ForecastResponse struct {
	ItemID                  string     `json:"item_id"`
	Name                    string     `json:"name"`
	Category                string     `json:"category"`
	CurrentStockG           int64      `json:"current_stock_g"`
	AverageDailyConsumption float64    `json:"average_daily_consumption_g"`
	EstimatedDaysRemaining  int        `json:"estimated_days_remaining"`
	ForecastAccuracy        string     `json:"forecast_accuracy"`
	UsageDays               int        `json:"usage_days"`
	LastUsageAt             *time.Time `json:"last_usage_at,omitempty"`
}

type ReconcileResponse struct {
	ItemID          string  `json:"item_id"`
	Consistent      bool    `json:"consistent"`
	CachedQuantityG int64   `json:"cached_quantity_g"`
	LedgerQuantityG int64   `json:"ledger_quantity_g"`
	BrokenEntryID   *string `json:"broken_entry_id,omitempty"`
}

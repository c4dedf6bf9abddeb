package service

import (
	"context"
	"math"
	"sort"
	"time"

	"aquafarm/internal/dto"
	"aquafarm/internal/model"
	"aquafarm/internal/repository"

	"github.com/google/uuid"
)

const (
	// DefaultForecastDays is the trailing analysis window.
	DefaultForecastDays = 30

	// ForecastInfiniteDays is the sentinel for items with zero consumption in
	// the window: "effectively never runs out".
	ForecastInfiniteDays = 999

	// lowStockFloorG keeps nearly-empty items in the forecast even when they
	// saw no usage in the window (10 kg).
	lowStockFloorG = 10_000
)

// ForecastService estimates days-until-empty per inventory item by linear
// extrapolation over the ledger's outbound history.
type ForecastService interface {
	Forecast(ctx context.Context, actor Actor, farmID uuid.UUID, daysToAnalyze int) ([]dto.ForecastResponse, error)
}

type forecastService struct {
	items     repository.InventoryRepository
	movements repository.MovementRepository
	farms     repository.FarmRepository
	now       func() time.Time
}

func NewForecastService(
	items repository.InventoryRepository,
	movements repository.MovementRepository,
	farms repository.FarmRepository,
) ForecastService {
	return &forecastService{items: items, movements: movements, farms: farms, now: time.Now}
}

type itemUsage struct {
	totalG      int64
	days        map[string]struct{} // distinct calendar days with usage
	lastUsageAt time.Time
}

func (s *forecastService) Forecast(ctx context.Context, actor Actor, farmID uuid.UUID, daysToAnalyze int) ([]dto.ForecastResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}
	if daysToAnalyze <= 0 {
		daysToAnalyze = DefaultForecastDays
	}

	items, err := s.items.List(ctx, farmID, false)
	if err != nil {
		return nil, err
	}
	now := s.now()
	since := now.AddDate(0, 0, -daysToAnalyze)
	movements, err := s.movements.ListSince(ctx, farmID, since)
	if err != nil {
		return nil, err
	}

	// Usage = outbound ledger entries. Inbound deliveries and corrections are
	// not consumption.
	usage := make(map[uuid.UUID]*itemUsage)
	for i := range movements {
		m := &movements[i]
		if m.MovementType != model.MovementOutbound {
			continue
		}
		u := usage[m.InventoryItemID]
		if u == nil {
			u = &itemUsage{days: make(map[string]struct{})}
			usage[m.InventoryItemID] = u
		}
		u.totalG += -m.QuantityChangeG
		u.days[m.CreatedAt.Format("2006-01-02")] = struct{}{}
		if m.CreatedAt.After(u.lastUsageAt) {
			u.lastUsageAt = m.CreatedAt
		}
	}

	out := make([]dto.ForecastResponse, 0, len(items))
	for i := range items {
		item := &items[i]
		u := usage[item.ID]

		var totalG int64
		var usageDays int
		var lastUsage *time.Time
		if u != nil {
			totalG = u.totalG
			usageDays = len(u.days)
			if !u.lastUsageAt.IsZero() {
				t := u.lastUsageAt
				lastUsage = &t
			}
		}

		// Dormant and well stocked: not worth forecasting.
		if totalG == 0 && item.QuantityG >= lowStockFloorG {
			continue
		}

		// The denominator is the full window, not the count of active days;
		// bursty usage averages down instead of extrapolating from a few
		// heavy days.
		avgDaily := float64(totalG) / float64(daysToAnalyze)

		daysRemaining := ForecastInfiniteDays
		if avgDaily > 0 {
			daysRemaining = int(math.Floor(float64(item.QuantityG) / avgDaily))
		}

		out = append(out, dto.ForecastResponse{
			ItemID:                  item.ID.String(),
			Name:                    item.Name,
			Category:                string(item.Category),
			CurrentStockG:           item.QuantityG,
			AverageDailyConsumption: avgDaily,
			EstimatedDaysRemaining:  daysRemaining,
			ForecastAccuracy:        accuracy(usageDays, daysToAnalyze),
			UsageDays:               usageDays,
			LastUsageAt:             lastUsage,
		})
	}

	// Items running out first, ties broken by the lower shelf.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EstimatedDaysRemaining != out[j].EstimatedDaysRemaining {
			return out[i].EstimatedDaysRemaining < out[j].EstimatedDaysRemaining
		}
		return out[i].CurrentStockG < out[j].CurrentStockG
	})
	return out, nil
}

// accuracy grades the forecast by how many distinct days in the window showed
// usage: ≥80% high, ≥40% medium, else low.
func accuracy(usageDays, window int) string {
	switch {
	case float64(usageDays) >= 0.8*float64(window):
		return dto.AccuracyHigh
	case float64(usageDays) >= 0.4*float64(window):
		return dto.AccuracyMedium
	default:
		return dto.AccuracyLow
	}
}

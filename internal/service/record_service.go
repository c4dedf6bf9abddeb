package service

import (
	"context"

	"aquafarm/internal/apierror"
	"aquafarm/internal/dto"
	"aquafarm/internal/model"
	"aquafarm/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RecordService creates and lists pond-side field records. It is the single
// write path for those records: direct online writes and offline replay both
// land here, which is what makes replayed operations behave exactly like live
// ones.
type RecordService interface {
	CreateFeeding(ctx context.Context, actor Actor, farmID uuid.UUID, req dto.CreateFeedingRequest) (*dto.FeedingResponse, error)
	ListFeedings(ctx context.Context, actor Actor, farmID uuid.UUID, filter repository.RecordFilter) ([]dto.FeedingResponse, error)

	CreateBiometry(ctx context.Context, actor Actor, farmID uuid.UUID, req dto.CreateBiometryRequest) (*dto.BiometryResponse, error)
	ListBiometries(ctx context.Context, actor Actor, farmID uuid.UUID, filter repository.RecordFilter) ([]dto.BiometryResponse, error)

	CreateWaterQuality(ctx context.Context, actor Actor, farmID uuid.UUID, req dto.CreateWaterQualityRequest) (*dto.WaterQualityResponse, error)
	ListWaterQualities(ctx context.Context, actor Actor, farmID uuid.UUID, filter repository.RecordFilter) ([]dto.WaterQualityResponse, error)

	CreateMortality(ctx context.Context, actor Actor, farmID uuid.UUID, req dto.CreateMortalityRequest) (*dto.MortalityResponse, error)
	ListMortalities(ctx context.Context, actor Actor, farmID uuid.UUID, filter repository.RecordFilter) ([]dto.MortalityResponse, error)
}

type recordService struct {
	records   repository.RecordRepository
	farms     repository.FarmRepository
	inventory InventoryService
}

func NewRecordService(records repository.RecordRepository, farms repository.FarmRepository, inventory InventoryService) RecordService {
	return &recordService{records: records, farms: farms, inventory: inventory}
}

// resolvePond checks farm scope and that the pond belongs to the farm, and
// returns the pond's active cycle id when one exists.
func (s *recordService) resolvePond(ctx context.Context, actor Actor, farmID uuid.UUID, pondIDStr string) (uuid.UUID, *uuid.UUID, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return uuid.Nil, nil, err
	}
	pondID, err := uuid.Parse(pondIDStr)
	if err != nil {
		return uuid.Nil, nil, &apierror.ValidationError{Detail: "invalid pond_id"}
	}
	pond, err := s.farms.FindPondByID(ctx, pondID)
	if err != nil {
		return uuid.Nil, nil, ErrNotFound
	}
	if pond.FarmID != farmID {
		return uuid.Nil, nil, ErrAccessDenied
	}
	var cycleID *uuid.UUID
	if cycle, err := s.farms.FindActiveCycleByPond(ctx, pondID); err == nil {
		cycleID = &cycle.ID
	}
	return pondID, cycleID, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *recordService) CreateFeeding(ctx context.Context, actor Actor, farmID uuid.UUID, req dto.CreateFeedingRequest) (*dto.FeedingResponse, error) {
	pondID, cycleID, err := s.resolvePond(ctx, actor, farmID, req.PondID)
	if err != nil {
		return nil, err
	}
	if req.QuantityG <= 0 {
		return nil, &apierror.ValidationError{Detail: "feeding quantity must be positive"}
	}

	var itemID *uuid.UUID
	if req.InventoryItemID != "" {
		id, err := uuid.Parse(req.InventoryItemID)
		if err != nil {
			return nil, &apierror.ValidationError{Detail: "invalid inventory_item_id"}
		}
		itemID = &id

		// Deduct the feed through the ledger before recording the feeding, so
		// an insufficient-stock feeding is rejected with nothing written.
		// Uses the exact same path as a manual outbound movement.
		_, err = s.inventory.ApplyMovement(ctx, actor, id, dto.ApplyMovementRequest{
			MovementType:    model.MovementOutbound,
			QuantityChangeG: -req.QuantityG,
			Reason:          "Feeding",
			Notes:           req.Notes,
		})
		if err != nil {
			return nil, err
		}
	}

	rec := &model.FeedingRecord{
		FarmID:          farmID,
		PondID:          pondID,
		CycleID:         cycleID,
		InventoryItemID: itemID,
		QuantityG:       req.QuantityG,
		FedAt:           req.FedAt,
		Notes:           req.Notes,
		ClientOpID:      optional(req.ClientOpID),
		CreatedBy:       actor.UserID,
	}
	if err := s.records.CreateFeeding(ctx, rec); err != nil {
		if itemID != nil {
			// The deduction landed but the record did not. Do not re-apply or
			// auto-compensate; flag for manual reconciliation instead.
			log.Error().Err(err).
				Str("inventory_item_id", itemID.String()).
				Int64("quantity_g", req.QuantityG).
				Msg("feeding record insert failed after inventory deduction, manual reconciliation required")
		}
		return nil, err
	}
	return feedingToResponse(rec), nil
}

func (s *recordService) ListFeedings(ctx context.Context, actor Actor, farmID uuid.UUID, filter repository.RecordFilter) ([]dto.FeedingResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}
	recs, err := s.records.ListFeedings(ctx, farmID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.FeedingResponse, 0, len(recs))
	for i := range recs {
		out = append(out, *feedingToResponse(&recs[i]))
	}
	return out, nil
}

func (s *recordService) CreateBiometry(ctx context.Context, actor Actor, farmID uuid.UUID, req dto.CreateBiometryRequest) (*dto.BiometryResponse, error) {
	pondID, cycleID, err := s.resolvePond(ctx, actor, farmID, req.PondID)
	if err != nil {
		return nil, err
	}
	rec := &model.BiometryRecord{
		FarmID:         farmID,
		PondID:         pondID,
		CycleID:        cycleID,
		AverageWeightG: req.AverageWeightG,
		SampleSize:     req.SampleSize,
		MeasuredAt:     req.MeasuredAt,
		Notes:          req.Notes,
		ClientOpID:     optional(req.ClientOpID),
		CreatedBy:      actor.UserID,
	}
	if err := s.records.CreateBiometry(ctx, rec); err != nil {
		return nil, err
	}
	return biometryToResponse(rec), nil
}

func (s *recordService) ListBiometries(ctx context.Context, actor Actor, farmID uuid.UUID, filter repository.RecordFilter) ([]dto.BiometryResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}
	recs, err := s.records.ListBiometries(ctx, farmID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.BiometryResponse, 0, len(recs))
	for i := range recs {
		out = append(out, *biometryToResponse(&recs[i]))
	}
	return out, nil
}

func (s *recordService) CreateWaterQuality(ctx context.Context, actor Actor, farmID uuid.UUID, req dto.CreateWaterQualityRequest) (*dto.WaterQualityResponse, error) {
	pondID, cycleID, err := s.resolvePond(ctx, actor, farmID, req.PondID)
	if err != nil {
		return nil, err
	}
	rec := &model.WaterQualityRecord{
		FarmID:       farmID,
		PondID:       pondID,
		CycleID:      cycleID,
		TemperatureC: req.TemperatureC,
		PH:           req.PH,
		OxygenMgL:    req.OxygenMgL,
		SalinityPpt:  req.SalinityPpt,
		MeasuredAt:   req.MeasuredAt,
		Notes:        req.Notes,
		ClientOpID:   optional(req.ClientOpID),
		CreatedBy:    actor.UserID,
	}
	if err := s.records.CreateWaterQuality(ctx, rec); err != nil {
		return nil, err
	}
	return waterQualityToResponse(rec), nil
}

func (s *recordService) ListWaterQualities(ctx context.Context, actor Actor, farmID uuid.UUID, filter repository.RecordFilter) ([]dto.WaterQualityResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}
	recs, err := s.records.ListWaterQualities(ctx, farmID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.WaterQualityResponse, 0, len(recs))
	for i := range recs {
		out = append(out, *waterQualityToResponse(&recs[i]))
	}
	return out, nil
}

func (s *recordService) CreateMortality(ctx context.Context, actor Actor, farmID uuid.UUID, req dto.CreateMortalityRequest) (*dto.MortalityResponse, error) {
	pondID, cycleID, err := s.resolvePond(ctx, actor, farmID, req.PondID)
	if err != nil {
		return nil, err
	}
	rec := &model.MortalityRecord{
		FarmID:     farmID,
		PondID:     pondID,
		CycleID:    cycleID,
		DeadCount:  req.DeadCount,
		Cause:      req.Cause,
		ObservedAt: req.ObservedAt,
		Notes:      req.Notes,
		ClientOpID: optional(req.ClientOpID),
		CreatedBy:  actor.UserID,
	}
	if err := s.records.CreateMortality(ctx, rec); err != nil {
		return nil, err
	}
	return mortalityToResponse(rec), nil
}

func (s *recordService) ListMortalities(ctx context.Context, actor Actor, farmID uuid.UUID, filter repository.RecordFilter) ([]dto.MortalityResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}
	recs, err := s.records.ListMortalities(ctx, farmID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MortalityResponse, 0, len(recs))
	for i := range recs {
		out = append(out, *mortalityToResponse(&recs[i]))
	}
	return out, nil
}

func feedingToResponse(rec *model.FeedingRecord) *dto.FeedingResponse {
	resp := &dto.FeedingResponse{
		ID:        rec.ID.String(),
		PondID:    rec.PondID.String(),
		QuantityG: rec.QuantityG,
		FedAt:     rec.FedAt,
		Notes:     rec.Notes,
	}
	if rec.InventoryItemID != nil {
		id := rec.InventoryItemID.String()
		resp.InventoryItemID = &id
	}
	return resp
}

func biometryToResponse(rec *model.BiometryRecord) *dto.BiometryResponse {
	return &dto.BiometryResponse{
		ID:             rec.ID.String(),
		PondID:         rec.PondID.String(),
		AverageWeightG: rec.AverageWeightG,
		SampleSize:     rec.SampleSize,
		MeasuredAt:     rec.MeasuredAt,
		Notes:          rec.Notes,
	}
}

func waterQualityToResponse(rec *model.WaterQualityRecord) *dto.WaterQualityResponse {
	return &dto.WaterQualityResponse{
		ID:           rec.ID.String(),
		PondID:       rec.PondID.String(),
		TemperatureC: rec.TemperatureC,
		PH:           rec.PH,
		OxygenMgL:    rec.OxygenMgL,
		SalinityPpt:  rec.SalinityPpt,
		MeasuredAt:   rec.MeasuredAt,
		Notes:        rec.Notes,
	}
}

func mortalityToResponse(rec *model.MortalityRecord) *dto.MortalityResponse {
	return &dto.MortalityResponse{
		ID:         rec.ID.String(),
		PondID:     rec.PondID.String(),
		DeadCount:  rec.DeadCount,
		Cause:      rec.Cause,
		ObservedAt: rec.ObservedAt,
		Notes:      rec.Notes,
	}
}

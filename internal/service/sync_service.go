package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"aquafarm/internal/apierror"
	"aquafarm/internal/dto"
	"aquafarm/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Operation kinds accepted by the sync endpoint. These match the kinds the
// field agent buffers while offline.
const (
	OpFeeding      = "feeding"
	OpBiometry     = "biometry"
	OpWaterQuality = "water_quality"
	OpMortality    = "mortality"
)

// SyncService replays batches of operations buffered by offline clients.
// Each operation carries a client-generated id; an operation whose id was
// already applied reports "duplicate" instead of being inserted twice, so
// the same batch can be replayed any number of times.
type SyncService interface {
	ApplyBatch(ctx context.Context, actor Actor, farmID uuid.UUID, req dto.SyncBatchRequest) (*dto.SyncBatchResponse, error)
}

type syncService struct {
	records repository.RecordRepository
	farms   repository.FarmRepository
	recSvc  RecordService
}

func NewSyncService(records repository.RecordRepository, farms repository.FarmRepository, recSvc RecordService) SyncService {
	return &syncService{records: records, farms: farms, recSvc: recSvc}
}

func (s *syncService) ApplyBatch(ctx context.Context, actor Actor, farmID uuid.UUID, req dto.SyncBatchRequest) (*dto.SyncBatchResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}

	resp := &dto.SyncBatchResponse{Results: make([]dto.SyncOperationResult, 0, len(req.Operations))}
	for _, op := range req.Operations {
		result := s.applyOne(ctx, actor, farmID, op)
		resp.Results = append(resp.Results, result)
		switch result.Status {
		case dto.SyncApplied, dto.SyncDuplicate:
			resp.Applied++
		default:
			resp.Failed++
		}
	}

	log.Info().
		Str("farm_id", farmID.String()).
		Int("operations", len(req.Operations)).
		Int("applied", resp.Applied).
		Int("failed", resp.Failed).
		Msg("sync batch processed")
	return resp, nil
}

// applyOne replays a single buffered operation. One failed operation never
// aborts the batch; the caller keeps going and the agent retries later.
func (s *syncService) applyOne(ctx context.Context, actor Actor, farmID uuid.UUID, op dto.SyncOperation) dto.SyncOperationResult {
	if op.ID == "" {
		return dto.SyncOperationResult{ID: op.ID, Status: dto.SyncRejected, Detail: "missing operation id"}
	}

	dup, err := s.alreadyApplied(ctx, op.Kind, op.ID)
	if err != nil {
		return dto.SyncOperationResult{ID: op.ID, Status: dto.SyncError, Detail: "dedup lookup failed"}
	}
	if dup {
		return dto.SyncOperationResult{ID: op.ID, Status: dto.SyncDuplicate}
	}

	err = s.dispatch(ctx, actor, farmID, op)
	if err == nil {
		return dto.SyncOperationResult{ID: op.ID, Status: dto.SyncApplied}
	}

	// Two syncs racing on the same operation lose to the unique index on
	// client_op_id. Treat that exactly like the lookup path above.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return dto.SyncOperationResult{ID: op.ID, Status: dto.SyncDuplicate}
	}
	if isPermanent(err) {
		return dto.SyncOperationResult{ID: op.ID, Status: dto.SyncRejected, Detail: err.Error()}
	}
	log.Warn().Err(err).Str("op_id", op.ID).Str("kind", op.Kind).Msg("sync operation failed")
	return dto.SyncOperationResult{ID: op.ID, Status: dto.SyncError, Detail: err.Error()}
}

func (s *syncService) alreadyApplied(ctx context.Context, kind, opID string) (bool, error) {
	var err error
	switch kind {
	case OpFeeding:
		_, err = s.records.FindFeedingByClientOpID(ctx, opID)
	case OpBiometry:
		_, err = s.records.FindBiometryByClientOpID(ctx, opID)
	case OpWaterQuality:
		_, err = s.records.FindWaterQualityByClientOpID(ctx, opID)
	case OpMortality:
		_, err = s.records.FindMortalityByClientOpID(ctx, opID)
	default:
		return false, nil
	}
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

func (s *syncService) dispatch(ctx context.Context, actor Actor, farmID uuid.UUID, op dto.SyncOperation) error {
	switch op.Kind {
	case OpFeeding:
		var req dto.CreateFeedingRequest
		if err := json.Unmarshal(op.Payload, &req); err != nil {
			return &apierror.ValidationError{Detail: "malformed feeding payload"}
		}
		req.ClientOpID = op.ID
		_, err := s.recSvc.CreateFeeding(ctx, actor, farmID, req)
		return err
	case OpBiometry:
		var req dto.CreateBiometryRequest
		if err := json.Unmarshal(op.Payload, &req); err != nil {
			return &apierror.ValidationError{Detail: "malformed biometry payload"}
		}
		req.ClientOpID = op.ID
		_, err := s.recSvc.CreateBiometry(ctx, actor, farmID, req)
		return err
	case OpWaterQuality:
		var req dto.CreateWaterQualityRequest
		if err := json.Unmarshal(op.Payload, &req); err != nil {
			return &apierror.ValidationError{Detail: "malformed water quality payload"}
		}
		req.ClientOpID = op.ID
		_, err := s.recSvc.CreateWaterQuality(ctx, actor, farmID, req)
		return err
	case OpMortality:
		var req dto.CreateMortalityRequest
		if err := json.Unmarshal(op.Payload, &req); err != nil {
			return &apierror.ValidationError{Detail: "malformed mortality payload"}
		}
		req.ClientOpID = op.ID
		_, err := s.recSvc.CreateMortality(ctx, actor, farmID, req)
		return err
	default:
		return &apierror.ValidationError{Detail: fmt.Sprintf("unknown operation kind %q", op.Kind)}
	}
}

// isPermanent reports whether retrying the operation can never succeed.
// Validation problems and scope violations are permanent; everything else
// (db down, stale quantity that exhausted its retries) is transient.
func isPermanent(err error) bool {
	var ve *apierror.ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, ErrInvalidMovement) ||
		errors.Is(err, ErrAccessDenied) ||
		errors.Is(err, ErrNotFound)
}

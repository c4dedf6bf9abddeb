package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"aquafarm/internal/apierror"
	"aquafarm/internal/dto"
	"aquafarm/internal/model"
	"aquafarm/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubRecordLookups answers the dedup lookups; every id in applied reads as
// already present.
type stubRecordLookups struct {
	repository.RecordRepository
	applied map[string]bool
}

func (s *stubRecordLookups) find(opID string) error {
	if s.applied[opID] {
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (s *stubRecordLookups) FindFeedingByClientOpID(_ context.Context, opID string) (*model.FeedingRecord, error) {
	return &model.FeedingRecord{}, s.find(opID)
}

func (s *stubRecordLookups) FindBiometryByClientOpID(_ context.Context, opID string) (*model.BiometryRecord, error) {
	return &model.BiometryRecord{}, s.find(opID)
}

func (s *stubRecordLookups) FindWaterQualityByClientOpID(_ context.Context, opID string) (*model.WaterQualityRecord, error) {
	return &model.WaterQualityRecord{}, s.find(opID)
}

func (s *stubRecordLookups) FindMortalityByClientOpID(_ context.Context, opID string) (*model.MortalityRecord, error) {
	return &model.MortalityRecord{}, s.find(opID)
}

// scriptedRecordService applies feeding operations by recording them, and
// fails the ids listed in errs with the configured error.
type scriptedRecordService struct {
	RecordService
	created []dto.CreateFeedingRequest
	errs    map[string]error
}

func (s *scriptedRecordService) CreateFeeding(_ context.Context, _ Actor, _ uuid.UUID, req dto.CreateFeedingRequest) (*dto.FeedingResponse, error) {
	if err := s.errs[req.ClientOpID]; err != nil {
		return nil, err
	}
	s.created = append(s.created, req)
	return &dto.FeedingResponse{ID: uuid.NewString()}, nil
}

func feedingOp(id string) dto.SyncOperation {
	payload, _ := json.Marshal(dto.CreateFeedingRequest{
		PondID:    uuid.NewString(),
		QuantityG: 50_000,
		FedAt:     time.Date(2026, 8, 30, 7, 0, 0, 0, time.UTC),
	})
	return dto.SyncOperation{ID: id, Kind: OpFeeding, Payload: payload}
}

func TestApplyBatchAppliesOperations(t *testing.T) {
	farmID := uuid.New()
	recSvc := &scriptedRecordService{errs: map[string]error{}}
	svc := NewSyncService(&stubRecordLookups{applied: map[string]bool{}}, nil, recSvc)

	resp, err := svc.ApplyBatch(context.Background(), technicianOn(farmID), farmID, dto.SyncBatchRequest{
		Operations: []dto.SyncOperation{feedingOp("op-1"), feedingOp("op-2")},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Applied)
	assert.Equal(t, 0, resp.Failed)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, dto.SyncApplied, resp.Results[0].Status)
	assert.Equal(t, dto.SyncApplied, resp.Results[1].Status)

	// The replayed write carries the operation id as its idempotency key.
	require.Len(t, recSvc.created, 2)
	assert.Equal(t, "op-1", recSvc.created[0].ClientOpID)
}

func TestApplyBatchDetectsDuplicates(t *testing.T) {
	farmID := uuid.New()
	recSvc := &scriptedRecordService{errs: map[string]error{}}
	svc := NewSyncService(&stubRecordLookups{applied: map[string]bool{"op-1": true}}, nil, recSvc)

	resp, err := svc.ApplyBatch(context.Background(), technicianOn(farmID), farmID, dto.SyncBatchRequest{
		Operations: []dto.SyncOperation{feedingOp("op-1")},
	})
	require.NoError(t, err)

	assert.Equal(t, dto.SyncDuplicate, resp.Results[0].Status)
	// Duplicates count as applied: the agent must drop them from its queue.
	assert.Equal(t, 1, resp.Applied)
	assert.Empty(t, recSvc.created)
}

func TestApplyBatchDuplicateKeyRace(t *testing.T) {
	farmID := uuid.New()
	recSvc := &scriptedRecordService{errs: map[string]error{"op-1": gorm.ErrDuplicatedKey}}
	svc := NewSyncService(&stubRecordLookups{applied: map[string]bool{}}, nil, recSvc)

	resp, err := svc.ApplyBatch(context.Background(), technicianOn(farmID), farmID, dto.SyncBatchRequest{
		Operations: []dto.SyncOperation{feedingOp("op-1")},
	})
	require.NoError(t, err)
	assert.Equal(t, dto.SyncDuplicate, resp.Results[0].Status)
	assert.Equal(t, 1, resp.Applied)
}

func TestApplyBatchPartialFailure(t *testing.T) {
	farmID := uuid.New()
	recSvc := &scriptedRecordService{errs: map[string]error{
		"op-bad": &apierror.ValidationError{Detail: "feeding quantity must be positive"},
		"op-db":  errors.New("connection refused"),
	}}
	svc := NewSyncService(&stubRecordLookups{applied: map[string]bool{}}, nil, recSvc)

	resp, err := svc.ApplyBatch(context.Background(), technicianOn(farmID), farmID, dto.SyncBatchRequest{
		Operations: []dto.SyncOperation{feedingOp("op-1"), feedingOp("op-bad"), feedingOp("op-db"), feedingOp("op-2")},
	})
	require.NoError(t, err)

	// One bad operation never aborts the batch.
	require.Len(t, resp.Results, 4)
	assert.Equal(t, dto.SyncApplied, resp.Results[0].Status)
	assert.Equal(t, dto.SyncRejected, resp.Results[1].Status)
	assert.Equal(t, dto.SyncError, resp.Results[2].Status)
	assert.Equal(t, dto.SyncApplied, resp.Results[3].Status)
	assert.Equal(t, 2, resp.Applied)
	assert.Equal(t, 2, resp.Failed)
}

func TestApplyBatchRejectsMalformed(t *testing.T) {
	farmID := uuid.New()
	recSvc := &scriptedRecordService{errs: map[string]error{}}
	svc := NewSyncService(&stubRecordLookups{applied: map[string]bool{}}, nil, recSvc)

	ops := []dto.SyncOperation{
		{ID: "", Kind: OpFeeding, Payload: json.RawMessage(`{}`)},
		{ID: "op-k", Kind: "inspection", Payload: json.RawMessage(`{}`)},
		{ID: "op-j", Kind: OpFeeding, Payload: json.RawMessage(`{not json`)},
	}
	resp, err := svc.ApplyBatch(context.Background(), technicianOn(farmID), farmID, dto.SyncBatchRequest{Operations: ops})
	require.NoError(t, err)

	for i, r := range resp.Results {
		assert.Equal(t, dto.SyncRejected, r.Status, "result %d", i)
	}
	assert.Equal(t, 3, resp.Failed)
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, isPermanent(&apierror.ValidationError{Detail: "x"}))
	assert.True(t, isPermanent(ErrInvalidMovement))
	assert.True(t, isPermanent(ErrAccessDenied))
	assert.True(t, isPermanent(ErrNotFound))
	assert.False(t, isPermanent(errors.New("connection refused")))
	assert.False(t, isPermanent(repository.ErrStaleQuantity))
}

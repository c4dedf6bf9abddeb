package repository

import (
	"context"
	"time"

	"aquafarm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordFilter narrows field-record listings.
type RecordFilter struct {
	PondID *uuid.UUID
	From   *time.Time
	To     *time.Time
	Limit  int
}

// RecordRepository persists the four field-record kinds. The FindXByClientOpID
// lookups back the offline-replay dedup: an operation that was already applied
// is found by its client-generated id instead of being inserted twice.
type RecordRepository interface {
	CreateFeeding(ctx context.Context, rec *model.FeedingRecord) error
	FindFeedingByClientOpID(ctx context.Context, clientOpID string) (*model.FeedingRecord, error)
	ListFeedings(ctx context.Context, farmID uuid.UUID, filter RecordFilter) ([]model.FeedingRecord, error)

	CreateBiometry(ctx context.Context, rec *model.BiometryRecord) error
	FindBiometryByClientOpID(ctx context.Context, clientOpID string) (*model.BiometryRecord, error)
	ListBiometries(ctx context.Context, farmID uuid.UUID, filter RecordFilter) ([]model.BiometryRecord, error)

	CreateWaterQuality(ctx context.Context, rec *model.WaterQualityRecord) error
	FindWaterQualityByClientOpID(ctx context.Context, clientOpID string) (*model.WaterQualityRecord, error)
	ListWaterQualities(ctx context.Context, farmID uuid.UUID, filter RecordFilter) ([]model.WaterQualityRecord, error)

	CreateMortality(ctx context.Context, rec *model.MortalityRecord) error
	FindMortalityByClientOpID(ctx context.Context, clientOpID string) (*model.MortalityRecord, error)
	ListMortalities(ctx context.Context, farmID uuid.UUID, filter RecordFilter) ([]model.MortalityRecord, error)
}

type recordRepo struct{ db *gorm.DB }

func NewRecordRepository(db *gorm.DB) RecordRepository { return &recordRepo{db: db} }

func applyRecordFilter(q *gorm.DB, farmID uuid.UUID, filter RecordFilter, timeCol string) *gorm.DB {
	q = q.Where("farm_id = ?", farmID)
	if filter.PondID != nil {
		q = q.Where("pond_id = ?", *filter.PondID)
	}
	if filter.From != nil {
		q = q.Where(timeCol+" >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where(timeCol+" <= ?", *filter.To)
	}
	limit := filter.Limit
	if limit < 1 || limit > 1000 {
		limit = 200
	}
	return q.Order(timeCol + " DESC").Limit(limit)
}

func (r *recordRepo) CreateFeeding(ctx context.Context, rec *model.FeedingRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *recordRepo) FindFeedingByClientOpID(ctx context.Context, clientOpID string) (*model.FeedingRecord, error) {
	var rec model.FeedingRecord
	err := r.db.WithContext(ctx).Where("client_op_id = ?", clientOpID).First(&rec).Error
	return &rec, err
}

func (r *recordRepo) ListFeedings(ctx context.Context, farmID uuid.UUID, filter RecordFilter) ([]model.FeedingRecord, error) {
	var recs []model.FeedingRecord
	err := applyRecordFilter(r.db.WithContext(ctx).Model(&model.FeedingRecord{}), farmID, filter, "fed_at").
		Find(&recs).Error
	return recs, err
}

func (r *recordRepo) CreateBiometry(ctx context.Context, rec *model.BiometryRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *recordRepo) FindBiometryByClientOpID(ctx context.Context, clientOpID string) (*model.BiometryRecord, error) {
	var rec model.BiometryRecord
	err := r.db.WithContext(ctx).Where("client_op_id = ?", clientOpID).First(&rec).Error
	return &rec, err
}

func (r *recordRepo) ListBiometries(ctx context.Context, farmID uuid.UUID, filter RecordFilter) ([]model.BiometryRecord, error) {
	var recs []model.BiometryRecord
	err := applyRecordFilter(r.db.WithContext(ctx).Model(&model.BiometryRecord{}), farmID, filter, "measured_at").
		Find(&recs).Error
	return recs, err
}

func (r *recordRepo) CreateWaterQuality(ctx context.Context, rec *model.WaterQualityRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *recordRepo) FindWaterQualityByClientOpID(ctx context.Context, clientOpID string) (*model.WaterQualityRecord, error) {
	var rec model.WaterQualityRecord
	err := r.db.WithContext(ctx).Where("client_op_id = ?", clientOpID).First(&rec).Error
	return &rec, err
}

func (r *recordRepo) ListWaterQualities(ctx context.Context, farmID uuid.UUID, filter RecordFilter) ([]model.WaterQualityRecord, error) {
	var recs []model.WaterQualityRecord
	err := applyRecordFilter(r.db.WithContext(ctx).Model(&model.WaterQualityRecord{}), farmID, filter, "measured_at").
		Find(&recs).Error
	return recs, err
}

func (r *recordRepo) CreateMortality(ctx context.Context, rec *model.MortalityRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *recordRepo) FindMortalityByClientOpID(ctx context.Context, clientOpID string) (*model.MortalityRecord, error) {
	var rec model.MortalityRecord
	err := r.db.WithContext(ctx).Where("client_op_id = ?", clientOpID).First(&rec).Error
	return &rec, err
}

func (r *recordRepo) ListMortalities(ctx context.Context, farmID uuid.UUID, filter RecordFilter) ([]model.MortalityRecord, error) {
	var recs []model.MortalityRecord
	err := applyRecordFilter(r.db.WithContext(ctx).Model(&model.MortalityRecord{}), farmID, filter, "observed_at").
		Find(&recs).Error
	return recs, err
}

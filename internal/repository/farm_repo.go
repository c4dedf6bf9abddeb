package repository

import (
	"context"
	"time"

	"aquafarm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FarmRepository covers farms, ponds, culture cycles, and harvests. They share
// one repository because every query is scoped by farm and the harvest path
// touches cycle + harvest in a single transaction.
type FarmRepository interface {
	CreateFarm(ctx context.Context, f *model.Farm) error
	FindFarmByID(ctx context.Context, id uuid.UUID) (*model.Farm, error)
	ListFarmsByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Farm, error)
	ListFarms(ctx context.Context) ([]model.Farm, error)

	CreatePond(ctx context.Context, p *model.Pond) error
	FindPondByID(ctx context.Context, id uuid.UUID) (*model.Pond, error)
	ListPonds(ctx context.Context, farmID uuid.UUID) ([]model.Pond, error)
	UpdatePond(ctx context.Context, p *model.Pond) error
	DeactivatePond(ctx context.Context, id uuid.UUID) error

	CreateCycle(ctx context.Context, c *model.CultureCycle) error
	FindCycleByID(ctx context.Context, id uuid.UUID) (*model.CultureCycle, error)
	FindActiveCycleByPond(ctx context.Context, pondID uuid.UUID) (*model.CultureCycle, error)
	ListCycles(ctx context.Context, farmID uuid.UUID, status string) ([]model.CultureCycle, error)
	CloseCycleTx(tx *gorm.DB, id uuid.UUID, closedAt time.Time) error

	CreateHarvestTx(tx *gorm.DB, h *model.HarvestRecord) error
	FindHarvestByID(ctx context.Context, id uuid.UUID) (*model.HarvestRecord, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type farmRepo struct{ db *gorm.DB }

func NewFarmRepository(db *gorm.DB) FarmRepository { return &farmRepo{db: db} }

func (r *farmRepo) CreateFarm(ctx context.Context, f *model.Farm) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *farmRepo) FindFarmByID(ctx context.Context, id uuid.UUID) (*model.Farm, error) {
	var f model.Farm
	err := r.db.WithContext(ctx).First(&f, id).Error
	return &f, err
}

func (r *farmRepo) ListFarmsByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Farm, error) {
	var farms []model.Farm
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND active = true", ownerID).
		Order("name ASC").Find(&farms).Error
	return farms, err
}

func (r *farmRepo) ListFarms(ctx context.Context) ([]model.Farm, error) {
	var farms []model.Farm
	err := r.db.WithContext(ctx).Where("active = true").Order("name ASC").Find(&farms).Error
	return farms, err
}

func (r *farmRepo) CreatePond(ctx context.Context, p *model.Pond) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *farmRepo) FindPondByID(ctx context.Context, id uuid.UUID) (*model.Pond, error) {
	var p model.Pond
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *farmRepo) ListPonds(ctx context.Context, farmID uuid.UUID) ([]model.Pond, error) {
	var ponds []model.Pond
	err := r.db.WithContext(ctx).
		Where("farm_id = ? AND active = true", farmID).
		Order("name ASC").Find(&ponds).Error
	return ponds, err
}

func (r *farmRepo) UpdatePond(ctx context.Context, p *model.Pond) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *farmRepo) DeactivatePond(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Pond{}).Where("id = ?", id).Update("active", false).Error
}

func (r *farmRepo) CreateCycle(ctx context.Context, c *model.CultureCycle) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *farmRepo) FindCycleByID(ctx context.Context, id uuid.UUID) (*model.CultureCycle, error) {
	var c model.CultureCycle
	err := r.db.WithContext(ctx).Preload("Pond").First(&c, id).Error
	return &c, err
}

func (r *farmRepo) FindActiveCycleByPond(ctx context.Context, pondID uuid.UUID) (*model.CultureCycle, error) {
	var c model.CultureCycle
	err := r.db.WithContext(ctx).
		Where("pond_id = ? AND status = ?", pondID, model.CycleActive).
		First(&c).Error
	return &c, err
}

func (r *farmRepo) ListCycles(ctx context.Context, farmID uuid.UUID, status string) ([]model.CultureCycle, error) {
	q := r.db.WithContext(ctx).Where("farm_id = ?", farmID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var cycles []model.CultureCycle
	err := q.Order("stocked_at DESC").Find(&cycles).Error
	return cycles, err
}

func (r *farmRepo) CloseCycleTx(tx *gorm.DB, id uuid.UUID, closedAt time.Time) error {
	return tx.Model(&model.CultureCycle{}).Where("id = ? AND status = ?", id, model.CycleActive).
		Updates(map[string]interface{}{"status": model.CycleClosed, "closed_at": closedAt}).Error
}

func (r *farmRepo) CreateHarvestTx(tx *gorm.DB, h *model.HarvestRecord) error {
	return tx.Create(h).Error
}

func (r *farmRepo) FindHarvestByID(ctx context.Context, id uuid.UUID) (*model.HarvestRecord, error) {
	var h model.HarvestRecord
	err := r.db.WithContext(ctx).Preload("Cycle").Preload("Cycle.Pond").First(&h, id).Error
	return &h, err
}

func (r *farmRepo) DB() *gorm.DB { return r.db }

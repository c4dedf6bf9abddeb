package repository

import (
	"context"
	"time"

	"aquafarm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementFilter defines filters for listing ledger entries.
type MovementFilter struct {
	InventoryItemID *uuid.UUID
	MovementType    string
	Page            int
	Limit           int
}

// MovementRepository reads and appends inventory ledger entries. There is no
// update or delete: the ledger is append-only.
type MovementRepository interface {
	CreateTx(tx *gorm.DB, m *model.InventoryMovement) error
	List(ctx context.Context, farmID uuid.UUID, filter MovementFilter) ([]model.InventoryMovement, int64, error)
	// ListChain returns all entries for one item in creation order, the
	// ledger chain used by reconciliation.
	ListChain(ctx context.Context, itemID uuid.UUID) ([]model.InventoryMovement, error)
	// ListSince returns all entries for a farm created after the cutoff, in
	// creation order. The forecast estimator feeds on this.
	ListSince(ctx context.Context, farmID uuid.UUID, since time.Time) ([]model.InventoryMovement, error)
}

type movementRepo struct{ db *gorm.DB }

func NewMovementRepository(db *gorm.DB) MovementRepository { return &movementRepo{db: db} }

func (r *movementRepo) CreateTx(tx *gorm.DB, m *model.InventoryMovement) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Create(m).Error
}

func (r *movementRepo) List(ctx context.Context, farmID uuid.UUID, filter MovementFilter) ([]model.InventoryMovement, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.InventoryMovement{}).
		Where("farm_id = ?", farmID).
		Preload("Item")
	if filter.InventoryItemID != nil {
		q = q.Where("inventory_item_id = ?", *filter.InventoryItemID)
	}
	if filter.MovementType != "" {
		q = q.Where("movement_type = ?", filter.MovementType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var movements []model.InventoryMovement
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movements).Error
	return movements, total, err
}

func (r *movementRepo) ListChain(ctx context.Context, itemID uuid.UUID) ([]model.InventoryMovement, error) {
	var movements []model.InventoryMovement
	err := r.db.WithContext(ctx).
		Where("inventory_item_id = ?", itemID).
		Order("created_at ASC").Find(&movements).Error
	return movements, err
}

func (r *movementRepo) ListSince(ctx context.Context, farmID uuid.UUID, since time.Time) ([]model.InventoryMovement, error) {
	var movements []model.InventoryMovement
	err := r.db.WithContext(ctx).
		Where("farm_id = ? AND created_at >= ?", farmID, since).
		Order("created_at ASC").Find(&movements).Error
	return movements, err
}

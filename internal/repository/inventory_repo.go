package repository

import (
	"context"
	"errors"

	"aquafarm/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStaleQuantity is returned by UpdateQuantityGuarded when the item's
// quantity no longer matches the expected previous value: another movement
// got in between the read and the write.
var ErrStaleQuantity = errors.New("inventory quantity changed concurrently")

// InventoryRepository is the data access contract for inventory items.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via in-memory stubs.
type InventoryRepository interface {
	Create(ctx context.Context, item *model.InventoryItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error)
	List(ctx context.Context, farmID uuid.UUID, includeInactive bool) ([]model.InventoryItem, error)

	// ListAllActive returns every active item across all farms. Used by the
	// nightly reconciliation sweep and the morning digest.
	ListAllActive(ctx context.Context) ([]model.InventoryItem, error)
	Update(ctx context.Context, item *model.InventoryItem) error
	Deactivate(ctx context.Context, id uuid.UUID) error

	// UpdateQuantityGuarded performs a compare-and-swap on quantity_g: the
	// write only lands if the stored quantity still equals expectedPrev.
	// Returns ErrStaleQuantity otherwise. Callers inside a transaction pass
	// the tx; callers outside pass nil and the repo uses its own handle.
	UpdateQuantityGuarded(tx *gorm.DB, id uuid.UUID, expectedPrev, newQuantity int64) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepository(db *gorm.DB) InventoryRepository { return &inventoryRepo{db: db} }

func (r *inventoryRepo) Create(ctx context.Context, item *model.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *inventoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.WithContext(ctx).First(&item, id).Error
	return &item, err
}

func (r *inventoryRepo) List(ctx context.Context, farmID uuid.UUID, includeInactive bool) ([]model.InventoryItem, error) {
	q := r.db.WithContext(ctx).Where("farm_id = ?", farmID)
	if !includeInactive {
		q = q.Where("active = true")
	}
	var items []model.InventoryItem
	err := q.Order("name ASC").Find(&items).Error
	return items, err
}

func (r *inventoryRepo) ListAllActive(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	err := r.db.WithContext(ctx).Where("active = true").Order("farm_id, name ASC").Find(&items).Error
	return items, err
}

func (r *inventoryRepo) Update(ctx context.Context, item *model.InventoryItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *inventoryRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.InventoryItem{}).Where("id = ?", id).Update("active", false).Error
}

func (r *inventoryRepo) UpdateQuantityGuarded(tx *gorm.DB, id uuid.UUID, expectedPrev, newQuantity int64) error {
	db := tx
	if db == nil {
		db = r.db
	}
	res := db.Model(&model.InventoryItem{}).
		Where("id = ? AND quantity_g = ?", id, expectedPrev).
		Update("quantity_g", newQuantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleQuantity
	}
	return nil
}

func (r *inventoryRepo) DB() *gorm.DB { return r.db }

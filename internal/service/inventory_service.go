package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"aquafarm/internal/dto"
	"aquafarm/internal/model"
	"aquafarm/internal/repository"
	"aquafarm/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// InventoryService owns the stock of farm inputs and the movement ledger
// explaining every change to it.
type InventoryService interface {
	CreateItem(ctx context.Context, actor Actor, farmID uuid.UUID, req dto.CreateItemRequest) (*dto.ItemResponse, error)
	GetItem(ctx context.Context, actor Actor, itemID uuid.UUID) (*dto.ItemResponse, error)
	ListItems(ctx context.Context, actor Actor, farmID uuid.UUID) ([]dto.ItemResponse, error)
	UpdateItem(ctx context.Context, actor Actor, itemID uuid.UUID, req dto.UpdateItemRequest) (*dto.ItemResponse, error)
	DeactivateItem(ctx context.Context, actor Actor, itemID uuid.UUID) error

	// ApplyMovement changes an item's quantity and appends the ledger entry
	// in one transaction. Returns ErrInvalidMovement if the result would be
	// negative; nothing is written in that case.
	ApplyMovement(ctx context.Context, actor Actor, itemID uuid.UUID, req dto.ApplyMovementRequest) (*dto.MovementResponse, error)
	ListMovements(ctx context.Context, actor Actor, farmID uuid.UUID, filter repository.MovementFilter) (*dto.MovementListResponse, error)

	StockAlerts(ctx context.Context, actor Actor, farmID uuid.UUID) ([]dto.StockAlertResponse, error)

	// Reconcile replays the item's ledger chain from zero and compares the
	// result to the cached quantity. A mismatch is reported in the response
	// and logged as ErrLedgerInconsistency; it is never repaired silently.
	Reconcile(ctx context.Context, actor Actor, itemID uuid.UUID) (*dto.ReconcileResponse, error)
}

type inventoryService struct {
	items      repository.InventoryRepository
	movements  repository.MovementRepository
	farms      repository.FarmRepository
	dispatcher *worker.Dispatcher
}

func NewInventoryService(
	items repository.InventoryRepository,
	movements repository.MovementRepository,
	farms repository.FarmRepository,
	dispatcher *worker.Dispatcher,
) InventoryService {
	return &inventoryService{items: items, movements: movements, farms: farms, dispatcher: dispatcher}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

func (s *inventoryService) CreateItem(ctx context.Context, actor Actor, farmID uuid.UUID, req dto.CreateItemRequest) (*dto.ItemResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}
	cat := model.Category(req.Category)
	if !cat.Valid() {
		return nil, fmt.Errorf("unknown category %q", req.Category)
	}
	if req.QuantityG < 0 {
		return nil, ErrInvalidMovement
	}

	// Items start at zero and receive their opening stock through the ledger,
	// so the chain explains the full quantity from the first entry on.
	item := &model.InventoryItem{
		FarmID:        farmID,
		Name:          req.Name,
		Category:      cat,
		QuantityG:     0,
		MinThresholdG: req.MinThresholdG,
		Active:        true,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}

	if req.QuantityG > 0 {
		_, err := s.ApplyMovement(ctx, actor, item.ID, dto.ApplyMovementRequest{
			MovementType:    model.MovementInbound,
			QuantityChangeG: req.QuantityG,
			Reason:          "Initial stock",
		})
		if err != nil {
			return nil, err
		}
		item.QuantityG = req.QuantityG
	}
	return itemToResponse(item), nil
}

func (s *inventoryService) GetItem(ctx context.Context, actor Actor, itemID uuid.UUID) (*dto.ItemResponse, error) {
	item, err := s.findScopedItem(ctx, actor, itemID)
	if err != nil {
		return nil, err
	}
	return itemToResponse(item), nil
}

func (s *inventoryService) ListItems(ctx context.Context, actor Actor, farmID uuid.UUID) ([]dto.ItemResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}
	items, err := s.items.List(ctx, farmID, false)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, *itemToResponse(&items[i]))
	}
	return out, nil
}

func (s *inventoryService) UpdateItem(ctx context.Context, actor Actor, itemID uuid.UUID, req dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	item, err := s.findScopedItem(ctx, actor, itemID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.MinThresholdG != nil {
		item.MinThresholdG = req.MinThresholdG
	}
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	return itemToResponse(item), nil
}

func (s *inventoryService) DeactivateItem(ctx context.Context, actor Actor, itemID uuid.UUID) error {
	if _, err := s.findScopedItem(ctx, actor, itemID); err != nil {
		return err
	}
	return s.items.Deactivate(ctx, itemID)
}

// maxMovementRetries bounds the optimistic-concurrency retry loop. Two
// simultaneous movements on the same item are rare; three attempts is plenty.
const maxMovementRetries = 3

func (s *inventoryService) ApplyMovement(ctx context.Context, actor Actor, itemID uuid.UUID, req dto.ApplyMovementRequest) (*dto.MovementResponse, error) {
	if err := validateMovement(req); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxMovementRetries; attempt++ {
		item, err := s.findScopedItem(ctx, actor, itemID)
		if err != nil {
			return nil, err
		}

		prev := item.QuantityG
		newQ := prev + req.QuantityChangeG
		if newQ < 0 {
			return nil, fmt.Errorf("%w: stock %d, change %d", ErrInvalidMovement, prev, req.QuantityChangeG)
		}

		mov := &model.InventoryMovement{
			InventoryItemID:   item.ID,
			FarmID:            item.FarmID,
			MovementType:      req.MovementType,
			QuantityChangeG:   req.QuantityChangeG,
			PreviousQuantityG: prev,
			NewQuantityG:      newQ,
			Reason:            req.Reason,
			Notes:             req.Notes,
			CreatedBy:         actor.UserID,
		}

		// Quantity update and ledger append are one transaction. The guarded
		// update doubles as the serialization point: if another movement won
		// the race, zero rows match the expected previous quantity, the
		// transaction rolls back, and we retry from a fresh read.
		txErr := runTx(ctx, s.items.DB(), func(tx *gorm.DB) error {
			if err := s.items.UpdateQuantityGuarded(tx, item.ID, prev, newQ); err != nil {
				return err
			}
			return s.movements.CreateTx(tx, mov)
		})
		if errors.Is(txErr, repository.ErrStaleQuantity) {
			lastErr = txErr
			continue
		}
		if txErr != nil {
			return nil, txErr
		}

		item.QuantityG = newQ
		s.maybeDispatchAlert(ctx, item)
		return movementToResponse(mov, item.Name), nil
	}
	return nil, lastErr
}

func validateMovement(req dto.ApplyMovementRequest) error {
	if !model.ValidMovementType(req.MovementType) {
		return fmt.Errorf("unknown movement type %q", req.MovementType)
	}
	if req.QuantityChangeG == 0 {
		return errors.New("quantity change must be nonzero")
	}
	// Sign must agree with the movement type; adjustments go either way.
	if req.MovementType == model.MovementInbound && req.QuantityChangeG < 0 {
		return errors.New("inbound movements must have a positive quantity change")
	}
	if req.MovementType == model.MovementOutbound && req.QuantityChangeG > 0 {
		return errors.New("outbound movements must have a negative quantity change")
	}
	return nil
}

// maybeDispatchAlert enqueues a stock-alert email when the item sits at or
// below its effective threshold. Best effort, alerting never fails a movement.
func (s *inventoryService) maybeDispatchAlert(ctx context.Context, item *model.InventoryItem) {
	if s.dispatcher == nil {
		return
	}
	severity := AlertSeverity(item.QuantityG, item.EffectiveThresholdG())
	if severity == "" {
		return
	}
	_ = s.dispatcher.EnqueueStockAlert(ctx, worker.StockAlertPayload{
		ItemID:     item.ID.String(),
		FarmID:     item.FarmID.String(),
		Name:       item.Name,
		QuantityG:  item.QuantityG,
		ThresholdG: item.EffectiveThresholdG(),
		Severity:   severity,
	})
}

func (s *inventoryService) ListMovements(ctx context.Context, actor Actor, farmID uuid.UUID, filter repository.MovementFilter) (*dto.MovementListResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}
	movements, total, err := s.movements.List(ctx, farmID, filter)
	if err != nil {
		return nil, err
	}
	resp := &dto.MovementListResponse{Total: total, Page: max(filter.Page, 1), Limit: filter.Limit}
	for i := range movements {
		name := ""
		if movements[i].Item != nil {
			name = movements[i].Item.Name
		}
		resp.Movements = append(resp.Movements, *movementToResponse(&movements[i], name))
	}
	return resp, nil
}

// AlertSeverity classifies quantity against threshold. Returns "" when stock
// is healthy. Pure integer comparisons: q <= t/2 and q <= 3t/4 are evaluated
// as 2q <= t and 4q <= 3t to avoid rounding.
func AlertSeverity(quantityG, thresholdG int64) string {
	if thresholdG <= 0 {
		return ""
	}
	switch {
	case 2*quantityG <= thresholdG:
		return dto.AlertHigh
	case 4*quantityG <= 3*thresholdG:
		return dto.AlertMedium
	case quantityG <= thresholdG:
		return dto.AlertLow
	default:
		return ""
	}
}

func alertRank(severity string) int {
	switch severity {
	case dto.AlertHigh:
		return 0
	case dto.AlertMedium:
		return 1
	default:
		return 2
	}
}

func (s *inventoryService) StockAlerts(ctx context.Context, actor Actor, farmID uuid.UUID) ([]dto.StockAlertResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}
	items, err := s.items.List(ctx, farmID, false)
	if err != nil {
		return nil, err
	}

	alerts := make([]dto.StockAlertResponse, 0)
	for i := range items {
		item := &items[i]
		severity := AlertSeverity(item.QuantityG, item.EffectiveThresholdG())
		if severity == "" {
			continue
		}
		alerts = append(alerts, dto.StockAlertResponse{
			ItemID:     item.ID.String(),
			Name:       item.Name,
			Category:   string(item.Category),
			QuantityG:  item.QuantityG,
			QuantityKg: float64(item.QuantityG) / 1000,
			ThresholdG: item.EffectiveThresholdG(),
			Severity:   severity,
		})
	}

	// High first, then the emptiest shelves.
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alertRank(alerts[i].Severity), alertRank(alerts[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return alerts[i].QuantityG < alerts[j].QuantityG
	})
	return alerts, nil
}

func (s *inventoryService) Reconcile(ctx context.Context, actor Actor, itemID uuid.UUID) (*dto.ReconcileResponse, error) {
	item, err := s.findScopedItem(ctx, actor, itemID)
	if err != nil {
		return nil, err
	}
	chain, err := s.movements.ListChain(ctx, itemID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ReconcileResponse{
		ItemID:          item.ID.String(),
		CachedQuantityG: item.QuantityG,
		Consistent:      true,
	}

	running, broken := VerifyChain(chain)
	resp.LedgerQuantityG = running
	if broken != nil {
		id := broken.ID.String()
		resp.Consistent = false
		resp.BrokenEntryID = &id
		s.logInconsistency(item, broken, running)
		return resp, nil
	}
	if running != item.QuantityG {
		resp.Consistent = false
		s.logInconsistency(item, nil, running)
	}
	return resp, nil
}

// VerifyChain replays a ledger chain from zero, checking that each entry's
// previous-quantity snapshot matches the running total and that its new
// quantity equals previous plus change. Returns the replayed total and the
// first broken entry, if any. Every item's opening stock entered through the
// ledger, so a clean chain always replays to the cached quantity.
func VerifyChain(chain []model.InventoryMovement) (int64, *model.InventoryMovement) {
	var running int64
	for i := range chain {
		m := &chain[i]
		if m.PreviousQuantityG != running || m.NewQuantityG != m.PreviousQuantityG+m.QuantityChangeG {
			return running, m
		}
		running = m.NewQuantityG
	}
	return running, nil
}

func (s *inventoryService) logInconsistency(item *model.InventoryItem, entry *model.InventoryMovement, ledgerQty int64) {
	ev := log.Error().
		Err(ErrLedgerInconsistency).
		Str("item_id", item.ID.String()).
		Str("item_name", item.Name).
		Int64("cached_quantity_g", item.QuantityG).
		Int64("ledger_quantity_g", ledgerQty)
	if entry != nil {
		ev = ev.Str("broken_entry_id", entry.ID.String()).
			Int64("entry_previous_g", entry.PreviousQuantityG).
			Int64("entry_change_g", entry.QuantityChangeG).
			Int64("entry_new_g", entry.NewQuantityG)
	}
	ev.Msg("inventory ledger reconciliation failed, manual review required")
}

func (s *inventoryService) findScopedItem(ctx context.Context, actor Actor, itemID uuid.UUID) (*model.InventoryItem, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, ErrNotFound
	}
	if err := authorizeFarm(ctx, s.farms, actor, item.FarmID); err != nil {
		return nil, err
	}
	return item, nil
}

func itemToResponse(item *model.InventoryItem) *dto.ItemResponse {
	return &dto.ItemResponse{
		ID:            item.ID.String(),
		FarmID:        item.FarmID.String(),
		Name:          item.Name,
		Category:      string(item.Category),
		QuantityG:     item.QuantityG,
		QuantityKg:    float64(item.QuantityG) / 1000,
		MinThresholdG: item.MinThresholdG,
		ThresholdG:    item.EffectiveThresholdG(),
		Active:        item.Active,
	}
}

func movementToResponse(m *model.InventoryMovement, itemName string) *dto.MovementResponse {
	return &dto.MovementResponse{
		ID:                m.ID.String(),
		InventoryItemID:   m.InventoryItemID.String(),
		ItemName:          itemName,
		MovementType:      m.MovementType,
		QuantityChangeG:   m.QuantityChangeG,
		PreviousQuantityG: m.PreviousQuantityG,
		NewQuantityG:      m.NewQuantityG,
		Reason:            m.Reason,
		Notes:             m.Notes,
		CreatedBy:         m.CreatedBy.String(),
		CreatedAt:         m.CreatedAt,
	}
}

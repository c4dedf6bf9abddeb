package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"aquafarm/internal/model"
	"aquafarm/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Map-backed repository stubs. They implement the same interfaces the GORM
// repositories do, with DB() returning nil so services run their transaction
// callbacks directly.

type stubItemRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.InventoryItem

	// staleOnGuard makes the next N guarded updates fail with
	// ErrStaleQuantity, simulating a concurrent writer winning the race.
	staleOnGuard int
}

func newStubItemRepo() *stubItemRepo {
	return &stubItemRepo{items: make(map[uuid.UUID]*model.InventoryItem)}
}

func (s *stubItemRepo) put(item *model.InventoryItem) *model.InventoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	cp := *item
	s.items[item.ID] = &cp
	return item
}

func (s *stubItemRepo) Create(_ context.Context, item *model.InventoryItem) error {
	s.put(item)
	return nil
}

func (s *stubItemRepo) FindByID(_ context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *stubItemRepo) List(_ context.Context, farmID uuid.UUID, includeInactive bool) ([]model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.InventoryItem
	for _, item := range s.items {
		if item.FarmID != farmID {
			continue
		}
		if !includeInactive && !item.Active {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *stubItemRepo) ListAllActive(_ context.Context) ([]model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.InventoryItem
	for _, item := range s.items {
		if item.Active {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *stubItemRepo) Update(_ context.Context, item *model.InventoryItem) error {
	s.put(item)
	return nil
}

func (s *stubItemRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[id]; ok {
		item.Active = false
	}
	return nil
}

func (s *stubItemRepo) UpdateQuantityGuarded(_ *gorm.DB, id uuid.UUID, expectedPrev, newQuantity int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleOnGuard > 0 {
		s.staleOnGuard--
		return repository.ErrStaleQuantity
	}
	item, ok := s.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if item.QuantityG != expectedPrev {
		return repository.ErrStaleQuantity
	}
	item.QuantityG = newQuantity
	return nil
}

func (s *stubItemRepo) DB() *gorm.DB { return nil }

type stubMovementRepo struct {
	mu        sync.Mutex
	movements []model.InventoryMovement
	seq       int
}

func newStubMovementRepo() *stubMovementRepo { return &stubMovementRepo{} }

func (s *stubMovementRepo) CreateTx(_ *gorm.DB, m *model.InventoryMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	s.seq++
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Minute)
	}
	s.movements = append(s.movements, *m)
	return nil
}

func (s *stubMovementRepo) List(_ context.Context, farmID uuid.UUID, filter repository.MovementFilter) ([]model.InventoryMovement, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.InventoryMovement
	for _, m := range s.movements {
		if m.FarmID != farmID {
			continue
		}
		if filter.InventoryItemID != nil && m.InventoryItemID != *filter.InventoryItemID {
			continue
		}
		if filter.MovementType != "" && m.MovementType != filter.MovementType {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (s *stubMovementRepo) ListChain(_ context.Context, itemID uuid.UUID) ([]model.InventoryMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.InventoryMovement
	for _, m := range s.movements {
		if m.InventoryItemID == itemID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubMovementRepo) ListSince(_ context.Context, farmID uuid.UUID, since time.Time) ([]model.InventoryMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.InventoryMovement
	for _, m := range s.movements {
		if m.FarmID == farmID && !m.CreatedAt.Before(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

type stubFarmRepo struct {
	mu       sync.Mutex
	farms    map[uuid.UUID]*model.Farm
	ponds    map[uuid.UUID]*model.Pond
	cycles   map[uuid.UUID]*model.CultureCycle
	harvests map[uuid.UUID]*model.HarvestRecord
}

func newStubFarmRepo(farms ...*model.Farm) *stubFarmRepo {
	s := &stubFarmRepo{
		farms:    make(map[uuid.UUID]*model.Farm),
		ponds:    make(map[uuid.UUID]*model.Pond),
		cycles:   make(map[uuid.UUID]*model.CultureCycle),
		harvests: make(map[uuid.UUID]*model.HarvestRecord),
	}
	for _, f := range farms {
		s.farms[f.ID] = f
	}
	return s
}

func (s *stubFarmRepo) CreateFarm(_ context.Context, f *model.Farm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	s.farms[f.ID] = f
	return nil
}

func (s *stubFarmRepo) FindFarmByID(_ context.Context, id uuid.UUID) (*model.Farm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.farms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f, nil
}

func (s *stubFarmRepo) ListFarmsByOwner(_ context.Context, ownerID uuid.UUID) ([]model.Farm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Farm
	for _, f := range s.farms {
		if f.OwnerID == ownerID && f.Active {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *stubFarmRepo) ListFarms(_ context.Context) ([]model.Farm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Farm
	for _, f := range s.farms {
		if f.Active {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *stubFarmRepo) CreatePond(_ context.Context, p *model.Pond) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.ponds[p.ID] = p
	return nil
}

func (s *stubFarmRepo) FindPondByID(_ context.Context, id uuid.UUID) (*model.Pond, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.ponds[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (s *stubFarmRepo) ListPonds(_ context.Context, farmID uuid.UUID) ([]model.Pond, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Pond
	for _, p := range s.ponds {
		if p.FarmID == farmID && p.Active {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubFarmRepo) UpdatePond(_ context.Context, p *model.Pond) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ponds[p.ID] = p
	return nil
}

func (s *stubFarmRepo) DeactivatePond(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.ponds[id]; ok {
		p.Active = false
	}
	return nil
}

func (s *stubFarmRepo) CreateCycle(_ context.Context, c *model.CultureCycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.cycles[c.ID] = c
	return nil
}

func (s *stubFarmRepo) FindCycleByID(_ context.Context, id uuid.UUID) (*model.CultureCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cycles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (s *stubFarmRepo) FindActiveCycleByPond(_ context.Context, pondID uuid.UUID) (*model.CultureCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cycles {
		if c.PondID == pondID && c.Status == model.CycleActive {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubFarmRepo) ListCycles(_ context.Context, farmID uuid.UUID, status string) ([]model.CultureCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CultureCycle
	for _, c := range s.cycles {
		if c.FarmID == farmID && (status == "" || c.Status == status) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *stubFarmRepo) CloseCycleTx(_ *gorm.DB, id uuid.UUID, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cycles[id]
	if !ok || c.Status != model.CycleActive {
		return nil
	}
	c.Status = model.CycleClosed
	c.ClosedAt = &closedAt
	return nil
}

func (s *stubFarmRepo) CreateHarvestTx(_ *gorm.DB, h *model.HarvestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	s.harvests[h.ID] = h
	return nil
}

func (s *stubFarmRepo) FindHarvestByID(_ context.Context, id uuid.UUID) (*model.HarvestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.harvests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return h, nil
}

func (s *stubFarmRepo) DB() *gorm.DB { return nil }

// stubRecordRepo stores field records in memory, dedup lookups included.
type stubRecordRepo struct {
	mu          sync.Mutex
	feedings    []*model.FeedingRecord
	biometries  []*model.BiometryRecord
	waters      []*model.WaterQualityRecord
	mortalities []*model.MortalityRecord

	failCreate error
}

func newStubRecordRepo() *stubRecordRepo { return &stubRecordRepo{} }

func (s *stubRecordRepo) CreateFeeding(_ context.Context, rec *model.FeedingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	s.feedings = append(s.feedings, rec)
	return nil
}

func (s *stubRecordRepo) FindFeedingByClientOpID(_ context.Context, opID string) (*model.FeedingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.feedings {
		if r.ClientOpID != nil && *r.ClientOpID == opID {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRecordRepo) ListFeedings(_ context.Context, farmID uuid.UUID, filter repository.RecordFilter) ([]model.FeedingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.FeedingRecord
	for _, r := range s.feedings {
		if r.FarmID == farmID && (filter.PondID == nil || r.PondID == *filter.PondID) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubRecordRepo) CreateBiometry(_ context.Context, rec *model.BiometryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	s.biometries = append(s.biometries, rec)
	return nil
}

func (s *stubRecordRepo) FindBiometryByClientOpID(_ context.Context, opID string) (*model.BiometryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.biometries {
		if r.ClientOpID != nil && *r.ClientOpID == opID {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRecordRepo) ListBiometries(_ context.Context, farmID uuid.UUID, filter repository.RecordFilter) ([]model.BiometryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.BiometryRecord
	for _, r := range s.biometries {
		if r.FarmID == farmID && (filter.PondID == nil || r.PondID == *filter.PondID) {
			out = append(out, *r)
		}
	}
	// Latest first, like the real repository.
	sort.SliceStable(out, func(i, j int) bool { return out[i].MeasuredAt.After(out[j].MeasuredAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *stubRecordRepo) CreateWaterQuality(_ context.Context, rec *model.WaterQualityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	s.waters = append(s.waters, rec)
	return nil
}

func (s *stubRecordRepo) FindWaterQualityByClientOpID(_ context.Context, opID string) (*model.WaterQualityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.waters {
		if r.ClientOpID != nil && *r.ClientOpID == opID {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRecordRepo) ListWaterQualities(_ context.Context, farmID uuid.UUID, filter repository.RecordFilter) ([]model.WaterQualityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.WaterQualityRecord
	for _, r := range s.waters {
		if r.FarmID == farmID && (filter.PondID == nil || r.PondID == *filter.PondID) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubRecordRepo) CreateMortality(_ context.Context, rec *model.MortalityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	s.mortalities = append(s.mortalities, rec)
	return nil
}

func (s *stubRecordRepo) FindMortalityByClientOpID(_ context.Context, opID string) (*model.MortalityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.mortalities {
		if r.ClientOpID != nil && *r.ClientOpID == opID {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRecordRepo) ListMortalities(_ context.Context, farmID uuid.UUID, filter repository.RecordFilter) ([]model.MortalityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.MortalityRecord
	for _, r := range s.mortalities {
		if r.FarmID == farmID && (filter.PondID == nil || r.PondID == *filter.PondID) {
			out = append(out, *r)
		}
	}
	return out, nil
}

// technicianOn returns an actor pinned to farmID, the cheapest way to pass
// scope checks without a farm repo lookup.
func technicianOn(farmID uuid.UUID) Actor {
	return Actor{UserID: uuid.New(), Role: model.RoleTechnician, FarmID: &farmID}
}

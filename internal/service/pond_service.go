package service

import (
	"context"
	"time"

	"aquafarm/internal/apierror"
	"aquafarm/internal/dto"
	"aquafarm/internal/model"
	"aquafarm/internal/repository"
	"aquafarm/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PondService manages farms, ponds, and culture cycles, including the
// harvest operation that closes a cycle and records its financial outcome.
type PondService interface {
	CreateFarm(ctx context.Context, actor Actor, req dto.CreateFarmRequest) (*dto.FarmResponse, error)
	ListFarms(ctx context.Context, actor Actor) ([]dto.FarmResponse, error)

	CreatePond(ctx context.Context, actor Actor, farmID uuid.UUID, req dto.CreatePondRequest) (*dto.PondResponse, error)
	ListPonds(ctx context.Context, actor Actor, farmID uuid.UUID) ([]dto.PondResponse, error)
	DeactivatePond(ctx context.Context, actor Actor, farmID, pondID uuid.UUID) error

	StartCycle(ctx context.Context, actor Actor, farmID, pondID uuid.UUID, req dto.StartCycleRequest) (*dto.CycleResponse, error)
	ListCycles(ctx context.Context, actor Actor, farmID uuid.UUID, status string) ([]dto.CycleResponse, error)

	// Harvest closes the cycle and records the harvest in one transaction.
	Harvest(ctx context.Context, actor Actor, farmID, cycleID uuid.UUID, req dto.HarvestRequest) (*dto.HarvestResponse, error)
}

type pondService struct {
	farms      repository.FarmRepository
	records    repository.RecordRepository
	dispatcher *worker.Dispatcher

	now func() time.Time
}

func NewPondService(farms repository.FarmRepository, records repository.RecordRepository, dispatcher *worker.Dispatcher) PondService {
	return &pondService{farms: farms, records: records, dispatcher: dispatcher, now: time.Now}
}

func (s *pondService) CreateFarm(ctx context.Context, actor Actor, req dto.CreateFarmRequest) (*dto.FarmResponse, error) {
	if actor.Role != model.RoleOwner {
		return nil, ErrAccessDenied
	}
	farm := &model.Farm{
		Name:     req.Name,
		Location: req.Location,
		OwnerID:  actor.UserID,
		Active:   true,
	}
	if err := s.farms.CreateFarm(ctx, farm); err != nil {
		return nil, err
	}
	return farmToResponse(farm), nil
}

func (s *pondService) ListFarms(ctx context.Context, actor Actor) ([]dto.FarmResponse, error) {
	var (
		farms []model.Farm
		err   error
	)
	switch actor.Role {
	case model.RoleOwner:
		farms, err = s.farms.ListFarmsByOwner(ctx, actor.UserID)
	default:
		if actor.FarmID == nil {
			return []dto.FarmResponse{}, nil
		}
		farm, ferr := s.farms.FindFarmByID(ctx, *actor.FarmID)
		if ferr != nil {
			return nil, ferr
		}
		farms = []model.Farm{*farm}
	}
	if err != nil {
		return nil, err
	}
	out := make([]dto.FarmResponse, 0, len(farms))
	for i := range farms {
		out = append(out, *farmToResponse(&farms[i]))
	}
	return out, nil
}

func (s *pondService) CreatePond(ctx context.Context, actor Actor, farmID uuid.UUID, req dto.CreatePondRequest) (*dto.PondResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}
	if actor.Role == model.RoleOperator {
		return nil, ErrAccessDenied
	}
	pond := &model.Pond{
		FarmID: farmID,
		Name:   req.Name,
		AreaM2: req.AreaM2,
		Active: true,
	}
	if err := s.farms.CreatePond(ctx, pond); err != nil {
		return nil, err
	}
	return pondToResponse(pond), nil
}

func (s *pondService) ListPonds(ctx context.Context, actor Actor, farmID uuid.UUID) ([]dto.PondResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}
	ponds, err := s.farms.ListPonds(ctx, farmID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PondResponse, 0, len(ponds))
	for i := range ponds {
		out = append(out, *pondToResponse(&ponds[i]))
	}
	return out, nil
}

func (s *pondService) DeactivatePond(ctx context.Context, actor Actor, farmID, pondID uuid.UUID) error {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return err
	}
	if actor.Role == model.RoleOperator {
		return ErrAccessDenied
	}
	pond, err := s.farms.FindPondByID(ctx, pondID)
	if err != nil {
		return ErrNotFound
	}
	if pond.FarmID != farmID {
		return ErrAccessDenied
	}
	if _, err := s.farms.FindActiveCycleByPond(ctx, pondID); err == nil {
		return &apierror.ValidationError{Detail: "pond has an active culture cycle"}
	}
	return s.farms.DeactivatePond(ctx, pondID)
}

func (s *pondService) StartCycle(ctx context.Context, actor Actor, farmID, pondID uuid.UUID, req dto.StartCycleRequest) (*dto.CycleResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}
	if actor.Role == model.RoleOperator {
		return nil, ErrAccessDenied
	}
	pond, err := s.farms.FindPondByID(ctx, pondID)
	if err != nil {
		return nil, ErrNotFound
	}
	if pond.FarmID != farmID {
		return nil, ErrAccessDenied
	}
	if !pond.Active {
		return nil, &apierror.ValidationError{Detail: "pond is inactive"}
	}
	if _, err := s.farms.FindActiveCycleByPond(ctx, pondID); err == nil {
		return nil, &apierror.ValidationError{Detail: "pond already has an active culture cycle"}
	}

	density := req.DensityPerM2
	if density.IsZero() && pond.AreaM2.IsPositive() {
		density = decimal.NewFromInt(int64(req.PostLarvaeCount)).DivRound(pond.AreaM2, 2)
	}
	cycle := &model.CultureCycle{
		PondID:          pondID,
		FarmID:          farmID,
		StockedAt:       req.StockedAt,
		PostLarvaeCount: req.PostLarvaeCount,
		DensityPerM2:    density,
		Status:          model.CycleActive,
	}
	if err := s.farms.CreateCycle(ctx, cycle); err != nil {
		return nil, err
	}
	return s.cycleToResponse(cycle), nil
}

func (s *pondService) ListCycles(ctx context.Context, actor Actor, farmID uuid.UUID, status string) ([]dto.CycleResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}
	cycles, err := s.farms.ListCycles(ctx, farmID, status)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CycleResponse, 0, len(cycles))
	for i := range cycles {
		out = append(out, *s.cycleToResponse(&cycles[i]))
	}
	return out, nil
}

func (s *pondService) Harvest(ctx context.Context, actor Actor, farmID, cycleID uuid.UUID, req dto.HarvestRequest) (*dto.HarvestResponse, error) {
	if err := authorizeFarm(ctx, s.farms, actor, farmID); err != nil {
		return nil, err
	}
	if actor.Role == model.RoleOperator {
		return nil, ErrAccessDenied
	}
	cycle, err := s.farms.FindCycleByID(ctx, cycleID)
	if err != nil {
		return nil, ErrNotFound
	}
	if cycle.FarmID != farmID {
		return nil, ErrAccessDenied
	}
	if cycle.Status != model.CycleActive {
		return nil, &apierror.ValidationError{Detail: "culture cycle is already closed"}
	}
	if !req.BiomassKg.IsPositive() {
		return nil, &apierror.ValidationError{Detail: "biomass must be positive"}
	}

	harvest := &model.HarvestRecord{
		CycleID:     cycleID,
		FarmID:      farmID,
		HarvestedAt: req.HarvestedAt,
		BiomassKg:   req.BiomassKg,
		PricePerKg:  req.PricePerKg,
		Revenue:     req.BiomassKg.Mul(req.PricePerKg).Round(2),
		SurvivalPct: s.estimateSurvival(ctx, cycle, req.BiomassKg),
		Notes:       req.Notes,
		CreatedBy:   actor.UserID,
	}

	// Closing the cycle and recording the harvest are one transaction; a
	// closed cycle without its harvest row would be unrecoverable.
	err = runTx(ctx, s.farms.DB(), func(tx *gorm.DB) error {
		if err := s.farms.CreateHarvestTx(tx, harvest); err != nil {
			return err
		}
		return s.farms.CloseCycleTx(tx, cycleID, req.HarvestedAt)
	})
	if err != nil {
		return nil, err
	}
	closedAt := req.HarvestedAt
	cycle.ClosedAt = &closedAt
	cycle.Status = model.CycleClosed

	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueHarvestReport(ctx, worker.HarvestReportPayload{
			HarvestID: harvest.ID.String(),
			CycleID:   cycleID.String(),
			FarmID:    farmID.String(),
		}); err != nil {
			log.Warn().Err(err).Str("harvest_id", harvest.ID.String()).Msg("failed to enqueue harvest report")
		}
	}

	return &dto.HarvestResponse{
		ID:          harvest.ID.String(),
		CycleID:     cycleID.String(),
		HarvestedAt: harvest.HarvestedAt,
		BiomassKg:   harvest.BiomassKg,
		PricePerKg:  harvest.PricePerKg,
		Revenue:     harvest.Revenue,
		SurvivalPct: harvest.SurvivalPct,
		DOC:         cycle.DOC(s.now()),
		Notes:       harvest.Notes,
	}, nil
}

// estimateSurvival derives survival from the latest biometry: estimated
// population is biomass divided by average individual weight, survival is
// that population over the stocked count. Returns zero when no biometry
// exists for the pond.
func (s *pondService) estimateSurvival(ctx context.Context, cycle *model.CultureCycle, biomassKg decimal.Decimal) decimal.Decimal {
	if cycle.PostLarvaeCount <= 0 {
		return decimal.Zero
	}
	bios, err := s.records.ListBiometries(ctx, cycle.FarmID, repository.RecordFilter{PondID: &cycle.PondID, Limit: 1})
	if err != nil || len(bios) == 0 || !bios[0].AverageWeightG.IsPositive() {
		return decimal.Zero
	}
	biomassG := biomassKg.Mul(decimal.NewFromInt(1000))
	population := biomassG.DivRound(bios[0].AverageWeightG, 0)
	pct := population.
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(cycle.PostLarvaeCount)), 2)
	hundred := decimal.NewFromInt(100)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return pct
}

func farmToResponse(f *model.Farm) *dto.FarmResponse {
	return &dto.FarmResponse{
		ID:       f.ID.String(),
		Name:     f.Name,
		Location: f.Location,
		OwnerID:  f.OwnerID.String(),
	}
}

func pondToResponse(p *model.Pond) *dto.PondResponse {
	return &dto.PondResponse{
		ID:     p.ID.String(),
		FarmID: p.FarmID.String(),
		Name:   p.Name,
		AreaM2: p.AreaM2,
		Active: p.Active,
	}
}

func (s *pondService) cycleToResponse(c *model.CultureCycle) *dto.CycleResponse {
	return &dto.CycleResponse{
		ID:              c.ID.String(),
		PondID:          c.PondID.String(),
		FarmID:          c.FarmID.String(),
		StockedAt:       c.StockedAt,
		PostLarvaeCount: c.PostLarvaeCount,
		DensityPerM2:    c.DensityPerM2,
		Status:          c.Status,
		DOC:             c.DOC(s.now()),
		ClosedAt:        c.ClosedAt,
	}
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"aquafarm/internal/model"
	"aquafarm/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReportGenerator renders a harvest summary to a file and returns its path.
// Implemented by infra's PDF builder.
type ReportGenerator interface {
	HarvestReport(h *model.HarvestRecord, c *model.CultureCycle, f *model.Farm) (string, error)
}

// NewHarvestReportHandler builds the handler that renders the harvest PDF
// after a cycle is closed.
func NewHarvestReportHandler(farms repository.FarmRepository, gen ReportGenerator) Handler {
	return func(ctx context.Context, job Job) error {
		var p HarvestReportPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("malformed harvest report payload")
			return nil
		}
		harvestID, err := uuid.Parse(p.HarvestID)
		if err != nil {
			log.Error().Str("harvest_id", p.HarvestID).Msg("invalid harvest id in report job")
			return nil
		}

		harvest, err := farms.FindHarvestByID(ctx, harvestID)
		if err != nil {
			return fmt.Errorf("loading harvest %s: %w", p.HarvestID, err)
		}
		cycle, err := farms.FindCycleByID(ctx, harvest.CycleID)
		if err != nil {
			return fmt.Errorf("loading cycle for harvest %s: %w", p.HarvestID, err)
		}
		farm, err := farms.FindFarmByID(ctx, harvest.FarmID)
		if err != nil {
			return fmt.Errorf("loading farm for harvest %s: %w", p.HarvestID, err)
		}

		path, err := gen.HarvestReport(harvest, cycle, farm)
		if err != nil {
			return fmt.Errorf("rendering harvest report %s: %w", p.HarvestID, err)
		}
		log.Info().Str("harvest_id", p.HarvestID).Str("path", path).Msg("harvest report generated")
		return nil
	}
}

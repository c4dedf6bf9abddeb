// Package scheduler runs the periodic background jobs: the nightly ledger
// reconciliation sweep and the morning low-stock digest email.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"aquafarm/internal/model"
	"aquafarm/internal/repository"
	"aquafarm/internal/service"
	"aquafarm/internal/worker"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

type Scheduler struct {
	cron       *cron.Cron
	items      repository.InventoryRepository
	movements  repository.MovementRepository
	mailer     worker.Mailer
	alertEmail string
}

func New(items repository.InventoryRepository, movements repository.MovementRepository, mailer worker.Mailer, alertEmail string) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		items:      items,
		movements:  movements,
		mailer:     mailer,
		alertEmail: alertEmail,
	}
}

// Start registers the cron entries and launches the scheduler goroutine.
func (s *Scheduler) Start() error {
	// 03:00 server time, after the day's field records have settled.
	if _, err := s.cron.AddFunc("0 3 * * *", s.reconcileSweep); err != nil {
		return err
	}
	// 06:30, before the morning feeding round.
	if _, err := s.cron.AddFunc("30 6 * * *", s.lowStockDigest); err != nil {
		return err
	}
	s.cron.Start()
	log.Info().Msg("scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// reconcileSweep replays every active item's ledger chain and logs any item
// whose cached quantity has drifted from the chain. It never mutates data;
// inconsistencies require a human decision.
func (s *Scheduler) reconcileSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	items, err := s.items.ListAllActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reconciliation sweep: listing items failed")
		return
	}

	var inconsistent int
	for i := range items {
		item := &items[i]
		chain, err := s.movements.ListChain(ctx, item.ID)
		if err != nil {
			log.Error().Err(err).Str("item_id", item.ID.String()).Msg("reconciliation sweep: chain load failed")
			continue
		}
		ledgerQty, broken := service.VerifyChain(chain)
		if broken == nil && ledgerQty == item.QuantityG {
			continue
		}
		inconsistent++
		ev := log.Error().
			Str("item_id", item.ID.String()).
			Str("item_name", item.Name).
			Int64("cached_quantity_g", item.QuantityG).
			Int64("ledger_quantity_g", ledgerQty)
		if broken != nil {
			ev = ev.Str("broken_entry_id", broken.ID.String())
		}
		ev.Msg("reconciliation sweep found inconsistent ledger")
	}
	log.Info().Int("items", len(items)).Int("inconsistent", inconsistent).Msg("reconciliation sweep finished")
}

// lowStockDigest emails one summary of every item at or below threshold,
// grouped by farm, so owners get a single morning email instead of a drip
// of per-item alerts.
func (s *Scheduler) lowStockDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if s.alertEmail == "" {
		return
	}
	items, err := s.items.ListAllActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("low stock digest: listing items failed")
		return
	}

	type lowItem struct {
		item     *model.InventoryItem
		severity string
	}
	byFarm := make(map[string][]lowItem)
	for i := range items {
		item := &items[i]
		severity := service.AlertSeverity(item.QuantityG, item.EffectiveThresholdG())
		if severity == "" {
			continue
		}
		key := item.FarmID.String()
		byFarm[key] = append(byFarm[key], lowItem{item: item, severity: severity})
	}
	if len(byFarm) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString("<h2>Low stock digest</h2>")
	farmIDs := make([]string, 0, len(byFarm))
	for id := range byFarm {
		farmIDs = append(farmIDs, id)
	}
	sort.Strings(farmIDs)
	total := 0
	for _, farmID := range farmIDs {
		fmt.Fprintf(&b, "<h3>Farm %s</h3><ul>", farmID)
		for _, li := range byFarm[farmID] {
			fmt.Fprintf(&b, "<li><strong>%s</strong>: %.2f kg (threshold %.2f kg, %s)</li>",
				li.item.Name,
				float64(li.item.QuantityG)/1000,
				float64(li.item.EffectiveThresholdG())/1000,
				li.severity)
			total++
		}
		b.WriteString("</ul>")
	}

	subject := fmt.Sprintf("Low stock digest: %d item(s) need restocking", total)
	if err := s.mailer.Send([]string{s.alertEmail}, subject, b.String()); err != nil {
		log.Error().Err(err).Msg("low stock digest: send failed")
		return
	}
	log.Info().Int("items", total).Msg("low stock digest sent")
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Job types and their redis queues.
const (
	JobStockAlert    = "stock_alert"
	JobHarvestReport = "harvest_report"

	QueueStockAlert    = "jobs:stock_alert"
	QueueHarvestReport = "jobs:harvest_report"

	// MaxJobAttempts is how many times a job is retried before landing in
	// the dead letter queue.
	MaxJobAttempts = 3
)

// Job is the envelope pushed onto redis queues. Payload is the job-type
// specific body, marshalled separately.
type Job struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// StockAlertPayload describes an item that crossed its low-stock threshold.
type StockAlertPayload struct {
	ItemID     string `json:"item_id"`
	FarmID     string `json:"farm_id"`
	Name       string `json:"name"`
	QuantityG  int64  `json:"quantity_g"`
	ThresholdG int64  `json:"threshold_g"`
	Severity   string `json:"severity"`
}

// HarvestReportPayload identifies a harvest whose PDF report should be built.
type HarvestReportPayload struct {
	HarvestID string `json:"harvest_id"`
	CycleID   string `json:"cycle_id"`
	FarmID    string `json:"farm_id"`
}

// Dispatcher enqueues background jobs. Services hold a *Dispatcher and never
// talk to redis directly.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	if d == nil || d.rdb == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Payload:    body,
		EnqueuedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, raw).Err()
}

func (d *Dispatcher) EnqueueStockAlert(ctx context.Context, p StockAlertPayload) error {
	return d.enqueue(ctx, QueueStockAlert, JobStockAlert, p)
}

func (d *Dispatcher) EnqueueHarvestReport(ctx context.Context, p HarvestReportPayload) error {
	return d.enqueue(ctx, QueueHarvestReport, JobHarvestReport, p)
}

// Handler processes one job. A returned error requeues the job until
// MaxJobAttempts, then it moves to the dead letter queue.
type Handler func(ctx context.Context, job Job) error

// Pool consumes jobs from redis with a fixed number of goroutines. Each
// worker blocks on BRPOP across all registered queues.
type Pool struct {
	rdb      *redis.Client
	size     int
	handlers map[string]Handler
	queues   []string
	dlq      *DeadLetterQueue
}

func NewPool(rdb *redis.Client, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		rdb:      rdb,
		size:     size,
		handlers: make(map[string]Handler),
		dlq:      NewDeadLetterQueue(rdb),
	}
}

// Register binds a handler to a job type and its queue. Must be called
// before Start.
func (p *Pool) Register(jobType, queue string, h Handler) {
	p.handlers[jobType] = h
	p.queues = append(p.queues, queue)
}

// Start launches the worker goroutines. They run until ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		go p.run(ctx, i)
	}
	log.Info().Int("workers", p.size).Strs("queues", p.queues).Msg("worker pool started")
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.rdb.BRPop(ctx, 5*time.Second, p.queues...).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Error().Err(err).Int("worker", id).Msg("queue pop failed")
			time.Sleep(time.Second)
			continue
		}
		// BRPOP returns [queue, value].
		if len(res) != 2 {
			continue
		}
		p.process(ctx, res[0], []byte(res[1]))
	}
}

func (p *Pool) process(ctx context.Context, queue string, raw []byte) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("malformed job dropped")
		return
	}
	handler, ok := p.handlers[job.Type]
	if !ok {
		log.Error().Str("type", job.Type).Msg("no handler for job type, dropping")
		return
	}

	if err := handler(ctx, job); err != nil {
		job.Attempts++
		if job.Attempts >= MaxJobAttempts {
			log.Error().Err(err).Str("job_id", job.ID).Str("type", job.Type).
				Int("attempts", job.Attempts).Msg("job exhausted retries, moving to DLQ")
			if dlqErr := p.dlq.Push(ctx, job, err); dlqErr != nil {
				log.Error().Err(dlqErr).Str("job_id", job.ID).Msg("DLQ push failed")
			}
			return
		}
		log.Warn().Err(err).Str("job_id", job.ID).Int("attempts", job.Attempts).Msg("job failed, requeueing")
		if raw, mErr := json.Marshal(job); mErr == nil {
			_ = p.rdb.LPush(ctx, queue, raw).Err()
		}
		return
	}
	log.Debug().Str("job_id", job.ID).Str("type", job.Type).Msg("job processed")
}

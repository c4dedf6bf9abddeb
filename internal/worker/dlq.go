package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const dlqKey = "jobs:dead_letter"

// DeadLetterEntry wraps a job that exhausted its retries, with the last
// error for diagnosis.
type DeadLetterEntry struct {
	Job       Job       `json:"job"`
	LastError string    `json:"last_error"`
	FailedAt  time.Time `json:"failed_at"`
}

// DeadLetterQueue stores permanently failed jobs in a capped redis list so
// an operator can inspect and replay them by hand.
type DeadLetterQueue struct {
	rdb *redis.Client
}

func NewDeadLetterQueue(rdb *redis.Client) *DeadLetterQueue {
	return &DeadLetterQueue{rdb: rdb}
}

func (q *DeadLetterQueue) Push(ctx context.Context, job Job, cause error) error {
	entry := DeadLetterEntry{Job: job, LastError: cause.Error(), FailedAt: time.Now()}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	pipe := q.rdb.TxPipeline()
	pipe.LPush(ctx, dlqKey, raw)
	pipe.LTrim(ctx, dlqKey, 0, 999)
	_, err = pipe.Exec(ctx)
	return err
}

// List returns the most recent dead letter entries, newest first.
func (q *DeadLetterQueue) List(ctx context.Context, limit int64) ([]DeadLetterEntry, error) {
	if limit < 1 {
		limit = 50
	}
	raws, err := q.rdb.LRange(ctx, dlqKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]DeadLetterEntry, 0, len(raws))
	for _, raw := range raws {
		var e DeadLetterEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

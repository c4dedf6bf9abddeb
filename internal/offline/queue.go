package offline

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ApplyStatus is the server's verdict on one replayed operation.
type ApplyStatus string

const (
	StatusApplied   ApplyStatus = "applied"
	StatusDuplicate ApplyStatus = "duplicate"
	StatusRejected  ApplyStatus = "rejected"
	StatusError     ApplyStatus = "error"
)

// RemoteWriter applies one operation against the API.
type RemoteWriter interface {
	Apply(ctx context.Context, op Operation) (ApplyStatus, error)
}

// ErrDrainInProgress is returned by Drain when another drain is running.
var ErrDrainInProgress = errors.New("drain already in progress")

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Queue is the durable FIFO of operations waiting for connectivity. Every
// enqueue hits the store before returning, so a crash between enqueue and
// drain loses nothing. Operations leave the queue one by one, each only
// after the server confirmed it (applied or duplicate); an operation that
// fails stays put for the next drain.
type Queue struct {
	mu    sync.Mutex
	store Store
	ops   []Operation

	draining bool
}

// NewQueue loads any operations persisted by a previous run.
func NewQueue(store Store) (*Queue, error) {
	ops, err := store.List()
	if err != nil {
		return nil, err
	}
	if len(ops) > 0 {
		log.Info().Int("pending", len(ops)).Msg("recovered operations from previous run")
	}
	return &Queue{store: store, ops: ops}, nil
}

// Enqueue persists the operation and adds it to the tail of the queue.
func (q *Queue) Enqueue(op Operation) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.store.Append(op); err != nil {
		return err
	}
	q.ops = append(q.ops, op)
	log.Debug().Str("op_id", op.ID).Str("kind", op.Kind).Int("pending", len(q.ops)).Msg("operation enqueued")
	return nil
}

// Pending returns the number of buffered operations.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Snapshot returns a copy of the buffered operations in order.
func (q *Queue) Snapshot() []Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Operation, len(q.ops))
	copy(out, q.ops)
	return out
}

// Drain replays buffered operations oldest first. The lock is only held to
// snapshot and to remove confirmed operations, so enqueues keep working
// while a drain is in flight; operations enqueued mid-drain wait for the
// next pass. Only one drain runs at a time.
func (q *Queue) Drain(ctx context.Context, remote RemoteWriter) (DrainResult, error) {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return DrainResult{}, ErrDrainInProgress
	}
	q.draining = true
	snapshot := make([]Operation, len(q.ops))
	copy(snapshot, q.ops)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	var res DrainResult
	for _, op := range snapshot {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempted++

		status, err := remote.Apply(ctx, op)
		switch status {
		case StatusApplied, StatusDuplicate:
			if err := q.remove(op.ID); err != nil {
				// The server has the operation; a dangling local copy only
				// costs a duplicate verdict on the next drain.
				log.Error().Err(err).Str("op_id", op.ID).Msg("confirmed operation could not be removed locally")
			}
			res.Succeeded++
		case StatusRejected:
			// Removal happens only on confirmed success, so a rejected
			// operation stays pending. It costs one attempt per pass and
			// never blocks the operations behind it; clearing it is a human
			// call (Clear or manual re-entry).
			log.Error().Str("op_id", op.ID).Str("kind", op.Kind).
				RawJSON("payload", op.Payload).
				Msg("operation rejected by server, left pending for review")
			res.Failed++
		default:
			log.Warn().Err(err).Str("op_id", op.ID).Str("kind", op.Kind).Msg("operation failed, will retry next drain")
			res.Failed++
		}
	}
	log.Info().Int("attempted", res.Attempted).Int("succeeded", res.Succeeded).Int("failed", res.Failed).Msg("drain pass finished")
	return res, nil
}

// remove deletes the operation from the store first, then from memory.
func (q *Queue) remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.store.Remove(id); err != nil {
		return err
	}
	for i := range q.ops {
		if q.ops[i].ID == id {
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
			break
		}
	}
	return nil
}

// Clear drops every buffered operation, durable copy included.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.store.Clear(); err != nil {
		return err
	}
	q.ops = nil
	return nil
}

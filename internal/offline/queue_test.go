package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for queue tests; durability itself is
// covered by the SQLiteStore tests.
type memStore struct {
	ops     []Operation
	failAll bool
}

func (s *memStore) Append(op Operation) error {
	if s.failAll {
		return errors.New("disk full")
	}
	s.ops = append(s.ops, op)
	return nil
}

func (s *memStore) Remove(id string) error {
	for i := range s.ops {
		if s.ops[i].ID == id {
			s.ops = append(s.ops[:i], s.ops[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memStore) List() ([]Operation, error) {
	out := make([]Operation, len(s.ops))
	copy(out, s.ops)
	return out, nil
}

func (s *memStore) Clear() error { s.ops = nil; return nil }
func (s *memStore) Close() error { return nil }

// scriptedRemote returns a fixed verdict per operation id, defaulting to
// applied, and records the order operations arrived in.
type scriptedRemote struct {
	verdicts map[string]ApplyStatus
	seen     []string
}

func (r *scriptedRemote) Apply(_ context.Context, op Operation) (ApplyStatus, error) {
	r.seen = append(r.seen, op.ID)
	if v, ok := r.verdicts[op.ID]; ok {
		if v == StatusError {
			return v, errors.New("connection refused")
		}
		return v, nil
	}
	return StatusApplied, nil
}

func mustOp(t *testing.T, id string) Operation {
	t.Helper()
	op, err := NewOperation(KindFeeding, map[string]any{"quantity_g": 1000})
	require.NoError(t, err)
	op.ID = id
	return op
}

func TestEnqueuePersistsBeforeReturning(t *testing.T) {
	store := &memStore{}
	q, err := NewQueue(store)
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(mustOp(t, "a")))
	assert.Len(t, store.ops, 1)
	assert.Equal(t, 1, q.Pending())

	// A failed persist never leaves a phantom in memory.
	store.failAll = true
	err = q.Enqueue(mustOp(t, "b"))
	require.Error(t, err)
	assert.Equal(t, 1, q.Pending())
}

func TestQueueRecoversFromStore(t *testing.T) {
	store := &memStore{}
	require.NoError(t, store.Append(mustOp(t, "a")))
	require.NoError(t, store.Append(mustOp(t, "b")))

	q, err := NewQueue(store)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Pending())

	snap := q.Snapshot()
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, "b", snap[1].ID)
}

func TestDrainReplaysInOrder(t *testing.T) {
	q, err := NewQueue(&memStore{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(mustOp(t, fmt.Sprintf("op-%d", i))))
	}

	remote := &scriptedRemote{}
	res, err := q.Drain(context.Background(), remote)
	require.NoError(t, err)

	assert.Equal(t, []string{"op-0", "op-1", "op-2", "op-3", "op-4"}, remote.seen)
	assert.Equal(t, DrainResult{Attempted: 5, Succeeded: 5}, res)
	assert.Zero(t, q.Pending())
}

func TestDrainKeepsFailedOperations(t *testing.T) {
	store := &memStore{}
	q, err := NewQueue(store)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(mustOp(t, "ok-1")))
	require.NoError(t, q.Enqueue(mustOp(t, "flaky")))
	require.NoError(t, q.Enqueue(mustOp(t, "ok-2")))

	remote := &scriptedRemote{verdicts: map[string]ApplyStatus{"flaky": StatusError}}
	res, err := q.Drain(context.Background(), remote)
	require.NoError(t, err)

	// The failure does not block the operations behind it.
	assert.Equal(t, DrainResult{Attempted: 3, Succeeded: 2, Failed: 1}, res)
	require.Equal(t, 1, q.Pending())
	assert.Equal(t, "flaky", q.Snapshot()[0].ID)
	// Still in the durable store too.
	persisted, _ := store.List()
	require.Len(t, persisted, 1)
	assert.Equal(t, "flaky", persisted[0].ID)

	// Next drain retries it.
	remote = &scriptedRemote{}
	res, err = q.Drain(context.Background(), remote)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Attempted: 1, Succeeded: 1}, res)
	assert.Zero(t, q.Pending())
}

func TestDrainKeepsRejectedOperations(t *testing.T) {
	q, err := NewQueue(&memStore{})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(mustOp(t, "bad")))

	remote := &scriptedRemote{verdicts: map[string]ApplyStatus{"bad": StatusRejected}}
	res, err := q.Drain(context.Background(), remote)
	require.NoError(t, err)

	// Rejected is not confirmed: the operation stays for a human to look at.
	assert.Equal(t, DrainResult{Attempted: 1, Failed: 1}, res)
	assert.Equal(t, 1, q.Pending())
}

func TestDrainTreatsDuplicateAsConfirmed(t *testing.T) {
	q, err := NewQueue(&memStore{})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(mustOp(t, "replayed")))

	remote := &scriptedRemote{verdicts: map[string]ApplyStatus{"replayed": StatusDuplicate}}
	res, err := q.Drain(context.Background(), remote)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Attempted: 1, Succeeded: 1}, res)
	assert.Zero(t, q.Pending())
}

// blockingRemote parks inside Apply until released, letting the test hold a
// drain open.
type blockingRemote struct {
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRemote) Apply(context.Context, Operation) (ApplyStatus, error) {
	r.entered <- struct{}{}
	<-r.release
	return StatusApplied, nil
}

func TestSingleDrainAtATime(t *testing.T) {
	q, err := NewQueue(&memStore{})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(mustOp(t, "a")))

	remote := &blockingRemote{entered: make(chan struct{}), release: make(chan struct{})}
	done := make(chan DrainResult)
	go func() {
		res, _ := q.Drain(context.Background(), remote)
		done <- res
	}()
	<-remote.entered

	// Second drain bounces while the first is in flight, and enqueues keep
	// working.
	_, err = q.Drain(context.Background(), &scriptedRemote{})
	assert.ErrorIs(t, err, ErrDrainInProgress)
	require.NoError(t, q.Enqueue(mustOp(t, "late")))

	close(remote.release)
	res := <-done

	// The mid-drain enqueue was not part of the snapshot; it waits for the
	// next pass.
	assert.Equal(t, DrainResult{Attempted: 1, Succeeded: 1}, res)
	assert.Equal(t, 1, q.Pending())
	assert.Equal(t, "late", q.Snapshot()[0].ID)
}

func TestDrainStopsOnCancel(t *testing.T) {
	q, err := NewQueue(&memStore{})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(mustOp(t, "a")))
	require.NoError(t, q.Enqueue(mustOp(t, "b")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Drain(ctx, &scriptedRemote{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, q.Pending())
}

func TestClear(t *testing.T) {
	store := &memStore{}
	q, err := NewQueue(store)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(mustOp(t, "a")))

	require.NoError(t, q.Clear())
	assert.Zero(t, q.Pending())
	persisted, _ := store.List()
	assert.Empty(t, persisted)
}

func TestNewOperationWrapsPayload(t *testing.T) {
	op, err := NewOperation(KindBiometry, map[string]any{"sample_size": 30})
	require.NoError(t, err)
	assert.NotEmpty(t, op.ID)
	assert.Equal(t, KindBiometry, op.Kind)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(op.Payload, &decoded))
	assert.Equal(t, 30, decoded["sample_size"])
}

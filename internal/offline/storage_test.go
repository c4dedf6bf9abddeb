package offline

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(Operation{
			ID:        fmt.Sprintf("op-%d", i),
			Kind:      KindFeeding,
			Payload:   json.RawMessage(`{"quantity_g":1000}`),
			CreatedAt: time.Now(),
		}))
	}
	require.NoError(t, store.Close())

	// Simulated restart: everything is still there, in enqueue order.
	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	ops, err := store.List()
	require.NoError(t, err)
	require.Len(t, ops, 3)
	for i, op := range ops {
		assert.Equal(t, fmt.Sprintf("op-%d", i), op.ID)
		assert.JSONEq(t, `{"quantity_g":1000}`, string(op.Payload))
	}
}

func TestSQLiteStoreRemove(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(Operation{ID: "a", Kind: KindMortality, Payload: json.RawMessage(`{}`), CreatedAt: time.Now()}))
	require.NoError(t, store.Append(Operation{ID: "b", Kind: KindMortality, Payload: json.RawMessage(`{}`), CreatedAt: time.Now()}))

	require.NoError(t, store.Remove("a"))
	// Removing an absent id is a no-op, not an error.
	require.NoError(t, store.Remove("a"))

	ops, err := store.List()
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "b", ops[0].ID)
}

func TestSQLiteStoreRejectsDuplicateIDs(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	defer store.Close()

	op := Operation{ID: "same", Kind: KindFeeding, Payload: json.RawMessage(`{}`), CreatedAt: time.Now()}
	require.NoError(t, store.Append(op))
	assert.Error(t, store.Append(op))
}

func TestSQLiteStoreClear(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(Operation{ID: "a", Kind: KindFeeding, Payload: json.RawMessage(`{}`), CreatedAt: time.Now()}))
	require.NoError(t, store.Clear())

	ops, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, ops)
}

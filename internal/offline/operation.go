// Package offline implements the durable operation queue used by field
// stations with intermittent connectivity. Writes made while the API is
// unreachable are buffered locally and replayed in order once the link
// comes back.
package offline

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Operation kinds, matching what the sync endpoint accepts.
const (
	KindFeeding      = "feeding"
	KindBiometry     = "biometry"
	KindWaterQuality = "water_quality"
	KindMortality    = "mortality"
)

// Operation is one buffered write. ID is generated at enqueue time and is
// the idempotency key the server dedups on, so replaying the same operation
// twice can never double-apply.
type Operation struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewOperation wraps a payload in an Operation with a fresh id.
func NewOperation(kind string, payload interface{}) (Operation, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Operation{}, err
	}
	return Operation{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   body,
		CreatedAt: time.Now(),
	}, nil
}

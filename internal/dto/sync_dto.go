package dto

import "encoding/json"

// Offline operation statuses reported per replayed operation. "duplicate"
// means an earlier sync already applied the operation, so the agent treats it
// the same as "applied" and removes the operation from its queue.
const (
	SyncApplied   = "applied"
	SyncDuplicate = "duplicate"
	SyncRejected  = "rejected" // validation failure, retrying will not help
	SyncError     = "error"    // transient failure, safe to retry
)

type SyncOperation struct {
	ID        string          `json:"id" validate:"required"`
	Kind      string          `json:"kind" validate:"required,oneof=feeding biometry water_quality mortality"`
	Payload   json.RawMessage `json:"payload" validate:"required"`
	CreatedAt int64           `json:"created_at"` // client clock, ms since epoch, diagnostics only
}

type SyncBatchRequest struct {
	Operations []SyncOperation `json:"operations" validate:"required,min=1,dive"`
}

type SyncOperationResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type SyncBatchResponse struct {
	Results []SyncOperationResult `json:"results"`
	Applied int                   `json:"applied"`
	Failed  int                   `json:"failed"`
}

package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"aquafarm/internal/dto"
	"aquafarm/internal/infra"

	"github.com/go-resty/resty/v2"
)

// APIClient talks to the farm API on behalf of the sync agent. Calls run
// through a circuit breaker so a dead link fails fast instead of burning a
// timeout per operation.
type APIClient struct {
	http    *resty.Client
	farmID  string
	breaker *infra.Breaker
}

func NewAPIClient(baseURL, token, farmID string) *APIClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &APIClient{
		http:    client,
		farmID:  farmID,
		breaker: infra.NewBreaker(5, 30*time.Second),
	}
}

// Apply replays one operation through the sync endpoint. A batch of one
// keeps the per-operation confirmation semantics simple.
func (c *APIClient) Apply(ctx context.Context, op Operation) (ApplyStatus, error) {
	var (
		status ApplyStatus = StatusError
		res    dto.SyncBatchResponse
	)
	err := c.breaker.Do(func() error {
		req := dto.SyncBatchRequest{
			Operations: []dto.SyncOperation{{
				ID:        op.ID,
				Kind:      op.Kind,
				Payload:   op.Payload,
				CreatedAt: op.CreatedAt.UnixMilli(),
			}},
		}
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&res).
			Post(fmt.Sprintf("/v1/farms/%s/sync/operations", c.farmID))
		if err != nil {
			return err
		}
		if resp.StatusCode() != http.StatusOK {
			return fmt.Errorf("sync endpoint returned %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, infra.ErrBreakerOpen) {
			return StatusError, err
		}
		return StatusError, fmt.Errorf("applying operation %s: %w", op.ID, err)
	}

	if len(res.Results) != 1 {
		return StatusError, fmt.Errorf("sync endpoint returned %d results for one operation", len(res.Results))
	}
	switch res.Results[0].Status {
	case dto.SyncApplied:
		status = StatusApplied
	case dto.SyncDuplicate:
		status = StatusDuplicate
	case dto.SyncRejected:
		status = StatusRejected
	default:
		return StatusError, fmt.Errorf("operation %s failed remotely: %s", op.ID, res.Results[0].Detail)
	}
	return status, nil
}

// Online probes the health endpoint. Bypasses the breaker: the probe is
// exactly what tells the breaker's underlying condition has cleared.
func (c *APIClient) Online(ctx context.Context) bool {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	return err == nil && resp.StatusCode() == http.StatusOK
}

package handler

import (
	"net/http"

	"aquafarm/internal/dto"
	"aquafarm/internal/service"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct{ svc service.SyncService }

func NewSyncHandler(svc service.SyncService) *SyncHandler { return &SyncHandler{svc: svc} }

// ApplyBatch godoc
// @Summary      Replay offline operations
// @Description  Applies a batch of operations buffered while offline. Idempotent per operation id: already-applied operations report "duplicate". One failing operation never aborts the batch.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        farm_id path string true "Farm UUID"
// @Param        body body dto.SyncBatchRequest true "Buffered operations, oldest first"
// @Success      200  {object} dto.SyncBatchResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/farms/{farm_id}/sync/operations [post]
func (h *SyncHandler) ApplyBatch(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	var req dto.SyncBatchRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ApplyBatch(c.Request.Context(), actorFromClaims(c), farmID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

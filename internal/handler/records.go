package handler

import (
	"net/http"
	"time"

	"aquafarm/internal/dto"
	"aquafarm/internal/repository"
	"aquafarm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RecordsHandler struct{ svc service.RecordService }

func NewRecordsHandler(svc service.RecordService) *RecordsHandler {
	return &RecordsHandler{svc: svc}
}

func recordFilterFromQuery(c *gin.Context) repository.RecordFilter {
	var filter repository.RecordFilter
	if pondStr := c.Query("pond_id"); pondStr != "" {
		if id, err := uuid.Parse(pondStr); err == nil {
			filter.PondID = &id
		}
	}
	if fromStr := c.Query("from"); fromStr != "" {
		if t, err := time.Parse("2006-01-02", fromStr); err == nil {
			filter.From = &t
		}
	}
	if toStr := c.Query("to"); toStr != "" {
		if t, err := time.Parse("2006-01-02", toStr); err == nil {
			end := t.Add(24*time.Hour - time.Nanosecond)
			filter.To = &end
		}
	}
	return filter
}

// CreateFeeding godoc
// @Summary      Record a feeding
// @Description  Records a feeding event. When inventory_item_id is set the fed quantity is deducted from stock through the ledger first.
// @Tags         records
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        farm_id path string true "Farm UUID"
// @Param        body body dto.CreateFeedingRequest true "Feeding"
// @Success      201  {object} dto.FeedingResponse
// @Failure      422  {object} apierror.APIError
// @Router       /v1/farms/{farm_id}/records/feedings [post]
func (h *RecordsHandler) CreateFeeding(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	var req dto.CreateFeedingRequest
	if !bindAndValidate(c, &req) {
		return
	}
	// Online writes never carry a client op id; only sync replay sets it.
	req.ClientOpID = ""
	resp, err := h.svc.CreateFeeding(c.Request.Context(), actorFromClaims(c), farmID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RecordsHandler) ListFeedings(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	resp, err := h.svc.ListFeedings(c.Request.Context(), actorFromClaims(c), farmID, recordFilterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecordsHandler) CreateBiometry(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	var req dto.CreateBiometryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.ClientOpID = ""
	resp, err := h.svc.CreateBiometry(c.Request.Context(), actorFromClaims(c), farmID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RecordsHandler) ListBiometries(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	resp, err := h.svc.ListBiometries(c.Request.Context(), actorFromClaims(c), farmID, recordFilterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecordsHandler) CreateWaterQuality(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	var req dto.CreateWaterQualityRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.ClientOpID = ""
	resp, err := h.svc.CreateWaterQuality(c.Request.Context(), actorFromClaims(c), farmID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RecordsHandler) ListWaterQualities(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	resp, err := h.svc.ListWaterQualities(c.Request.Context(), actorFromClaims(c), farmID, recordFilterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecordsHandler) CreateMortality(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	var req dto.CreateMortalityRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.ClientOpID = ""
	resp, err := h.svc.CreateMortality(c.Request.Context(), actorFromClaims(c), farmID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RecordsHandler) ListMortalities(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	resp, err := h.svc.ListMortalities(c.Request.Context(), actorFromClaims(c), farmID, recordFilterFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

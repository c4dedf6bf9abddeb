package handler

import (
	"net/http"

	"aquafarm/internal/dto"
	"aquafarm/internal/service"

	"github.com/gin-gonic/gin"
)

type PondsHandler struct{ svc service.PondService }

func NewPondsHandler(svc service.PondService) *PondsHandler { return &PondsHandler{svc: svc} }

// CreateFarm godoc
// @Summary      Create a farm
// @Tags         farms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateFarmRequest true "Farm"
// @Success      201  {object} dto.FarmResponse
// @Router       /v1/farms [post]
func (h *PondsHandler) CreateFarm(c *gin.Context) {
	var req dto.CreateFarmRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateFarm(c.Request.Context(), actorFromClaims(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListFarms returns the farms visible to the caller.
func (h *PondsHandler) ListFarms(c *gin.Context) {
	resp, err := h.svc.ListFarms(c.Request.Context(), actorFromClaims(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PondsHandler) CreatePond(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	var req dto.CreatePondRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreatePond(c.Request.Context(), actorFromClaims(c), farmID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PondsHandler) ListPonds(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	resp, err := h.svc.ListPonds(c.Request.Context(), actorFromClaims(c), farmID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PondsHandler) DeactivatePond(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	pondID, ok := pathUUID(c, "pond_id")
	if !ok {
		return
	}
	if err := h.svc.DeactivatePond(c.Request.Context(), actorFromClaims(c), farmID, pondID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StartCycle godoc
// @Summary      Start a culture cycle
// @Description  Stocks a pond with post-larvae. A pond carries at most one active cycle.
// @Tags         cycles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        farm_id path string true "Farm UUID"
// @Param        pond_id path string true "Pond UUID"
// @Param        body body dto.StartCycleRequest true "Stocking details"
// @Success      201  {object} dto.CycleResponse
// @Router       /v1/farms/{farm_id}/ponds/{pond_id}/cycles [post]
func (h *PondsHandler) StartCycle(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	pondID, ok := pathUUID(c, "pond_id")
	if !ok {
		return
	}
	var req dto.StartCycleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.StartCycle(c.Request.Context(), actorFromClaims(c), farmID, pondID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PondsHandler) ListCycles(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	resp, err := h.svc.ListCycles(c.Request.Context(), actorFromClaims(c), farmID, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Harvest godoc
// @Summary      Harvest a cycle
// @Description  Records the harvest and closes the cycle atomically; dispatches the PDF report job.
// @Tags         cycles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        farm_id  path string true "Farm UUID"
// @Param        cycle_id path string true "Cycle UUID"
// @Param        body body dto.HarvestRequest true "Harvest details"
// @Success      201  {object} dto.HarvestResponse
// @Router       /v1/farms/{farm_id}/cycles/{cycle_id}/harvest [post]
func (h *PondsHandler) Harvest(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	cycleID, ok := pathUUID(c, "cycle_id")
	if !ok {
		return
	}
	var req dto.HarvestRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Harvest(c.Request.Context(), actorFromClaims(c), farmID, cycleID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

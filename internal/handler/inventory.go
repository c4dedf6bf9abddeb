package handler

import (
	"net/http"
	"strconv"

	"aquafarm/internal/dto"
	"aquafarm/internal/repository"
	"aquafarm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventoryHandler struct {
	svc      service.InventoryService
	forecast service.ForecastService
}

func NewInventoryHandler(svc service.InventoryService, forecast service.ForecastService) *InventoryHandler {
	return &InventoryHandler{svc: svc, forecast: forecast}
}

// CreateItem godoc
// @Summary      Create inventory item
// @Description  Registers a stock item. Opening quantity is recorded as an inbound ledger movement.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        farm_id path string true "Farm UUID"
// @Param        body body dto.CreateItemRequest true "Item"
// @Success      201  {object} dto.ItemResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/farms/{farm_id}/inventory/items [post]
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	var req dto.CreateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateItem(c.Request.Context(), actorFromClaims(c), farmID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListItems returns all active items for a farm.
func (h *InventoryHandler) ListItems(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	resp, err := h.svc.ListItems(c.Request.Context(), actorFromClaims(c), farmID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) GetItem(c *gin.Context) {
	itemID, ok := pathUUID(c, "item_id")
	if !ok {
		return
	}
	resp, err := h.svc.GetItem(c.Request.Context(), actorFromClaims(c), itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	itemID, ok := pathUUID(c, "item_id")
	if !ok {
		return
	}
	var req dto.UpdateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateItem(c.Request.Context(), actorFromClaims(c), itemID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) DeactivateItem(c *gin.Context) {
	itemID, ok := pathUUID(c, "item_id")
	if !ok {
		return
	}
	if err := h.svc.DeactivateItem(c.Request.Context(), actorFromClaims(c), itemID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ApplyMovement godoc
// @Summary      Apply a stock movement
// @Description  Atomically updates the item quantity and appends the ledger entry. Rejects movements that would drive stock negative.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        item_id path string true "Item UUID"
// @Param        body body dto.ApplyMovementRequest true "Movement"
// @Success      201  {object} dto.MovementResponse
// @Failure      422  {object} apierror.APIError
// @Router       /v1/inventory/items/{item_id}/movements [post]
func (h *InventoryHandler) ApplyMovement(c *gin.Context) {
	itemID, ok := pathUUID(c, "item_id")
	if !ok {
		return
	}
	var req dto.ApplyMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ApplyMovement(c.Request.Context(), actorFromClaims(c), itemID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListMovements returns the paginated ledger for a farm, optionally filtered
// by item and movement type.
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	filter := repository.MovementFilter{
		MovementType: c.Query("movement_type"),
	}
	if itemStr := c.Query("item_id"); itemStr != "" {
		if id, err := uuid.Parse(itemStr); err == nil {
			filter.InventoryItemID = &id
		}
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))

	resp, err := h.svc.ListMovements(c.Request.Context(), actorFromClaims(c), farmID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// StockAlerts returns items at or below threshold, strongest severity first.
func (h *InventoryHandler) StockAlerts(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	resp, err := h.svc.StockAlerts(c.Request.Context(), actorFromClaims(c), farmID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Forecast godoc
// @Summary      Consumption forecast
// @Description  Estimates days of stock remaining per item from recent outbound ledger movements.
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        farm_id path  string true  "Farm UUID"
// @Param        days    query int    false "Analysis window in days (default 30)"
// @Success      200  {array} dto.ForecastResponse
// @Router       /v1/farms/{farm_id}/inventory/forecast [get]
func (h *InventoryHandler) Forecast(c *gin.Context) {
	farmID, ok := pathUUID(c, "farm_id")
	if !ok {
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	resp, err := h.forecast.Forecast(c.Request.Context(), actorFromClaims(c), farmID, days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reconcile replays the item's ledger chain and reports whether the cached
// quantity matches.
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	itemID, ok := pathUUID(c, "item_id")
	if !ok {
		return
	}
	resp, err := h.svc.Reconcile(c.Request.Context(), actorFromClaims(c), itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

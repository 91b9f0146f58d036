package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticketeer/services"
)

type PickupHandler struct {
	pickupService *services.PickupService
}

func NewPickupHandler(pickupService *services.PickupService) *PickupHandler {
	return &PickupHandler{pickupService: pickupService}
}

// GetStatus - Ticket details behind an accessory-pickup hash
func (h *PickupHandler) GetStatus(e *core.RequestEvent) error {
	hash := e.Request.PathValue("hash")

	status, err := h.pickupService.Status(e.Request.Context(), hash)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, status)
}

type pickupRequest struct {
	Notes string `json:"notes"`
}

// Pickup - Mark the ticket's accessory as collected
func (h *PickupHandler) Pickup(e *core.RequestEvent) error {
	hash := e.Request.PathValue("hash")

	var req pickupRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	result, err := h.pickupService.ProcessPickup(e.Request.Context(), hash, req.Notes)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, result)
}

package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticketeer/models"
	"ticketeer/services"
)

type ConfirmationHandler struct {
	confirmationService *services.ConfirmationService
}

func NewConfirmationHandler(confirmationService *services.ConfirmationService) *ConfirmationHandler {
	return &ConfirmationHandler{confirmationService: confirmationService}
}

// GetOrder - Public order view behind the confirmation hash
func (h *ConfirmationHandler) GetOrder(e *core.RequestEvent) error {
	hash := e.Request.PathValue("hash")

	order, err := h.confirmationService.GetOrderForHash(e.Request.Context(), hash)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, order)
}

type submitBuyersRequest struct {
	Buyers []models.BuyerEntry `json:"buyers"`
}

// SubmitBuyers - One-time buyer identity submission for an order
func (h *ConfirmationHandler) SubmitBuyers(e *core.RequestEvent) error {
	hash := e.Request.PathValue("hash")

	var req submitBuyersRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	result, err := h.confirmationService.SubmitBuyers(e.Request.Context(), hash, req.Buyers)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, result)
}

package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticketeer/services"
	"ticketeer/utils"
)

type OrderHandler struct {
	app          *pocketbase.PocketBase
	orderService *services.OrderService
}

func NewOrderHandler(app *pocketbase.PocketBase, orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		app:          app,
		orderService: orderService,
	}
}

// GetConfirmationLink - Organizer lookup of an order's confirmation link
//
// The order reference comes from the payment provider; the optional eventId
// query narrows the lookup when the same reference sold tickets for more
// than one event.
func (h *OrderHandler) GetConfirmationLink(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	orderRef := e.Request.PathValue("orderRef")
	eventID := e.Request.URL.Query().Get("eventId")

	hash, err := h.orderService.ConfirmationHashForOrder(e.Request.Context(), orderRef, e.Auth.Id, eventID)
	if err != nil {
		return apiError(err)
	}

	url, err := h.orderService.ConfirmationURL(e.Request.Context(), orderRef, e.Auth.Id, eventID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"order_id": orderRef,
		"hash":     hash,
		"url":      url,
	})
}

// RotateWebhookKey - Generate and store a fresh webhook key for the organizer
func (h *OrderHandler) RotateWebhookKey(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	key, err := utils.GenerateCode(24)
	if err != nil {
		return apis.NewInternalServerError("Failed to generate key", err)
	}

	e.Auth.Set("webhook_key", key)
	if err := h.app.Save(e.Auth); err != nil {
		return apis.NewInternalServerError("Failed to store key", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"webhook_key": key})
}

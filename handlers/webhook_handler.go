package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticketeer/models"
	"ticketeer/services"
)

type WebhookHandler struct {
	app          *pocketbase.PocketBase
	orderService *services.OrderService
}

func NewWebhookHandler(app *pocketbase.PocketBase, orderService *services.OrderService) *WebhookHandler {
	return &WebhookHandler{
		app:          app,
		orderService: orderService,
	}
}

// HandleCheckout - Payment provider checkout webhook
//
// The route is addressed to the organizer whose tickets the order buys, and
// is guarded by that organizer's webhook key. Key mismatch and unknown
// organizer both answer 404 so probing the route reveals nothing.
func (h *WebhookHandler) HandleCheckout(e *core.RequestEvent) error {
	ownerID := e.Request.PathValue("ownerId")

	owner, err := h.app.FindRecordById("users", ownerID)
	if err != nil {
		return apis.NewNotFoundError("Not found", nil)
	}

	key := e.Request.Header.Get("X-Webhook-Key")
	if key == "" {
		key = e.Request.URL.Query().Get("key")
	}
	expected := owner.GetString("webhook_key")
	if expected == "" || subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
		return apis.NewNotFoundError("Not found", nil)
	}

	var hook models.CheckoutWebhook
	if err := e.BindBody(&hook); err != nil {
		return apis.NewBadRequestError("Invalid webhook payload", err)
	}

	result, err := h.orderService.ProcessCheckoutWebhook(e.Request.Context(), hook, ownerID)
	if err != nil {
		slog.Warn("checkout webhook rejected",
			"owner", ownerID,
			"event_type", hook.Event,
			"error", err,
		)
		return apiError(err)
	}

	return e.JSON(http.StatusOK, result)
}

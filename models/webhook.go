package models

import (
	"encoding/json"
)

// EventTypeOrderPaid is the only webhook event type that triggers ticket
// reconciliation. Other types are acknowledged and ignored.
const EventTypeOrderPaid = "order.paid"

// OrderRef decodes the payment provider's order id, which arrives either as a
// JSON number or a string depending on the provider version.
type OrderRef string

func (r *OrderRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = OrderRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = OrderRef(n.String())
	return nil
}

type WebhookCustomer struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Identification string `json:"identification"`
}

type WebhookItem struct {
	Quantity    float64 `json:"quantity"`
	ProductID   int     `json:"product_id"`
	ProductName string  `json:"product_name"`
	Total       float64 `json:"total"`
}

type WebhookMeta struct {
	TableNumber string `json:"tableNumber"`
	// EventID is an opaque-encoded hint scoping the order to one event.
	EventID string `json:"eventId"`
}

type CheckoutPayload struct {
	ID       OrderRef         `json:"id"`
	Status   string           `json:"status"`
	Total    float64          `json:"total"`
	Customer *WebhookCustomer `json:"customer"`
	Items    []WebhookItem    `json:"items"`
	Meta     WebhookMeta      `json:"meta"`
}

// CheckoutWebhook is the inbound payment-provider notification.
type CheckoutWebhook struct {
	Event   string          `json:"event"`
	Payload CheckoutPayload `json:"payload"`
}

// TotalQuantity sums the line-item quantities, rounding provider floats to
// whole tickets.
func (p CheckoutPayload) TotalQuantity() int {
	var sum float64
	for _, item := range p.Items {
		sum += item.Quantity
	}
	return int(sum + 0.5)
}

// HasContact reports whether the payload carries enough customer identity to
// record a buyer on the first ticket.
func (p CheckoutPayload) HasContact() bool {
	return p.Customer != nil && p.Customer.Name != ""
}

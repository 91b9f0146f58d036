package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutWebhook_DecodeNumericOrderID(t *testing.T) {
	raw := `{
		"event": "order.paid",
		"payload": {
			"id": 7931,
			"status": "paid",
			"total": 44.9,
			"customer": {
				"name": "Rodrigo Lima",
				"email": "rodrigo@example.com",
				"phone": "+5512998833382",
				"identification": "44010729015"
			},
			"items": [
				{"total": 44.9, "value": 44.9, "quantity": 1.0, "unit_name": "UN", "product_id": 45, "product_name": "Ingresso"}
			],
			"meta": {
				"tableNumber": "1",
				"_checkout_url": "https://pay.example.com/checkout/abc"
			}
		}
	}`

	var hook CheckoutWebhook
	require.NoError(t, json.Unmarshal([]byte(raw), &hook))

	assert.Equal(t, EventTypeOrderPaid, hook.Event)
	assert.Equal(t, OrderRef("7931"), hook.Payload.ID)
	assert.Equal(t, "1", hook.Payload.Meta.TableNumber)
	assert.Equal(t, 1, hook.Payload.TotalQuantity())
	require.NotNil(t, hook.Payload.Customer)
	assert.Equal(t, "Rodrigo Lima", hook.Payload.Customer.Name)
	assert.True(t, hook.Payload.HasContact())
}

func TestCheckoutWebhook_DecodeStringOrderID(t *testing.T) {
	raw := `{
		"event": "order.paid",
		"payload": {
			"id": "ORDER-12345-ABC",
			"items": [{"quantity": 2.0}, {"quantity": 1.0}]
		}
	}`

	var hook CheckoutWebhook
	require.NoError(t, json.Unmarshal([]byte(raw), &hook))

	assert.Equal(t, OrderRef("ORDER-12345-ABC"), hook.Payload.ID)
	assert.Equal(t, 3, hook.Payload.TotalQuantity())
	assert.Nil(t, hook.Payload.Customer)
	assert.False(t, hook.Payload.HasContact())
	assert.Empty(t, hook.Payload.Meta.TableNumber)
}

func TestCheckoutPayload_TotalQuantityRounding(t *testing.T) {
	tests := []struct {
		name  string
		items []WebhookItem
		want  int
	}{
		{"empty", nil, 0},
		{"single", []WebhookItem{{Quantity: 1.0}}, 1},
		{"multiple", []WebhookItem{{Quantity: 2.0}, {Quantity: 3.0}}, 5},
		{"float drift", []WebhookItem{{Quantity: 1.9999999}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CheckoutPayload{Items: tt.items}
			assert.Equal(t, tt.want, p.TotalQuantity())
		})
	}
}

func TestTicket_HasBuyerInfo(t *testing.T) {
	ticket := Ticket{
		Buyer:         "Ana",
		BuyerDocument: "52998224725",
		BuyerEmail:    "ana@example.com",
	}
	assert.True(t, ticket.HasBuyerInfo())

	// Phone is optional and does not affect completeness.
	ticket.BuyerPhone = ""
	assert.True(t, ticket.HasBuyerInfo())

	ticket.BuyerEmail = ""
	assert.False(t, ticket.HasBuyerInfo())
}

func TestTicket_Sold(t *testing.T) {
	assert.False(t, Ticket{}.Sold())
	assert.True(t, Ticket{OrderRef: "ORD-1"}.Sold())
}

func TestTicket_JSONRoundTrip(t *testing.T) {
	checkedInAt := time.Now()
	ticket := Ticket{
		ID:                   "t1",
		EventID:              "e1",
		Description:          "General admission",
		IdentificationNumber: 42,
		Price:                decimal.RequireFromString("20.00"),
		OrderRef:             "ORD-1",
		CheckedIn:            true,
		CheckedInAt:          &checkedInAt,
	}

	data, err := json.Marshal(ticket)
	require.NoError(t, err)

	var decoded Ticket
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, ticket.ID, decoded.ID)
	assert.Equal(t, ticket.IdentificationNumber, decoded.IdentificationNumber)
	assert.True(t, ticket.Price.Equal(decoded.Price))
	require.NotNil(t, decoded.CheckedInAt)
	assert.WithinDuration(t, checkedInAt, *decoded.CheckedInAt, time.Second)
}

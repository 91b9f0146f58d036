package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketeer/models"
)

func orderFixture(t *testing.T) (*OrderService, *memStore, *fakeNotifier, *HashCodec) {
	t.Helper()
	codec := newTestCodec(t)
	store := newMemStore()
	store.addEvent(models.Event{ID: "event1", Name: "Launch Party", OwnerID: "owner1"})
	notifier := newFakeNotifier()
	svc := NewOrderService(store, codec, notifier, nil, "https://tickets.example.com")
	return svc, store, notifier, codec
}

func paidWebhook(orderID string, quantity float64) models.CheckoutWebhook {
	return models.CheckoutWebhook{
		Event: models.EventTypeOrderPaid,
		Payload: models.CheckoutPayload{
			ID:    models.OrderRef(orderID),
			Items: []models.WebhookItem{{Quantity: quantity}},
			Customer: &models.WebhookCustomer{
				Name:           "Maria Silva",
				Email:          "maria@example.com",
				Phone:          "+5511999990000",
				Identification: "529.982.247-25",
			},
		},
	}
}

func TestProcessCheckoutWebhook_QuantitySelectsLowestNumbers(t *testing.T) {
	svc, store, notifier, _ := orderFixture(t)
	ctx := context.Background()

	// Tickets deliberately inserted out of numbering order.
	for _, n := range []int{5, 3, 8, 1} {
		store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: n, Description: "Pista"})
	}

	result, err := svc.ProcessCheckoutWebhook(ctx, paidWebhook("9001", 2), "owner1")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "9001", result.OrderRef)
	assert.Equal(t, 2, result.ProcessedTickets)
	assert.Equal(t, "Maria Silva", result.BuyerAssigned)

	sold, _ := store.TicketsByOrderRef(ctx, "9001")
	require.Len(t, sold, 2)
	assert.Equal(t, 1, sold[0].Ticket.IdentificationNumber)
	assert.Equal(t, 3, sold[1].Ticket.IdentificationNumber)

	// Only the lowest-numbered ticket carries the buyer identity.
	assert.Equal(t, "Maria Silva", sold[0].Ticket.Buyer)
	assert.Equal(t, "529.982.247-25", sold[0].Ticket.BuyerDocument)
	assert.Empty(t, sold[1].Ticket.Buyer)
	assert.Empty(t, sold[1].Ticket.BuyerDocument)

	// Multi-ticket order: buyer gets a confirmation link, not a QR.
	assert.Equal(t, []string{"maria@example.com"}, notifier.confirmations)
	assert.Empty(t, notifier.qrSent)
}

func TestProcessCheckoutWebhook_SingleTicketGetsQRDirectly(t *testing.T) {
	svc, store, notifier, _ := orderFixture(t)
	ctx := context.Background()

	store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: 1, Description: "Pista"})

	result, err := svc.ProcessCheckoutWebhook(ctx, paidWebhook("9002", 1), "owner1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.ProcessedTickets)
	assert.Equal(t, []string{"maria@example.com"}, notifier.qrSent)
	assert.Empty(t, notifier.confirmations)

	require.Len(t, result.Notifications, 1)
	assert.True(t, result.Notifications[0].Sent)
	assert.Equal(t, "ticket_qr", result.Notifications[0].Kind)
}

func TestProcessCheckoutWebhook_InsufficientInventory(t *testing.T) {
	svc, store, _, _ := orderFixture(t)
	ctx := context.Background()

	store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: 1, Description: "Pista"})

	_, err := svc.ProcessCheckoutWebhook(ctx, paidWebhook("9003", 3), "owner1")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "insufficient inventory")

	// Rejection must leave the inventory untouched.
	sold, _ := store.SoldCandidates(ctx)
	assert.Empty(t, sold)
}

func TestProcessCheckoutWebhook_SoldTicketsAreNotReassigned(t *testing.T) {
	svc, store, _, _ := orderFixture(t)
	ctx := context.Background()

	store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: 1, OrderRef: "earlier"})
	store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: 2})

	result, err := svc.ProcessCheckoutWebhook(ctx, paidWebhook("9004", 1), "owner1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.ProcessedTickets)
	sold, _ := store.TicketsByOrderRef(ctx, "9004")
	require.Len(t, sold, 1)
	assert.Equal(t, 2, sold[0].Ticket.IdentificationNumber)

	// The earlier order's ticket keeps its reference.
	previous, _ := store.TicketsByOrderRef(ctx, "earlier")
	require.Len(t, previous, 1)
}

func TestProcessCheckoutWebhook_TableSelection(t *testing.T) {
	svc, store, _, _ := orderFixture(t)
	ctx := context.Background()

	store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: 1, Table: 12})
	store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: 2, Table: 12, OrderRef: "earlier"})
	store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: 3, Table: 13})
	store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: 4})

	hook := paidWebhook("9005", 1)
	hook.Payload.Meta.TableNumber = "12"

	result, err := svc.ProcessCheckoutWebhook(ctx, hook, "owner1")
	require.NoError(t, err)

	// The whole table moves to the new order, previously sold seats
	// included. Re-billing a table supersedes the earlier reference.
	assert.Equal(t, 2, result.ProcessedTickets)
	assert.Equal(t, 12, result.TableNumber)

	sold, _ := store.TicketsByOrderRef(ctx, "9005")
	require.Len(t, sold, 2)
	assert.Equal(t, 1, sold[0].Ticket.IdentificationNumber)
	assert.Equal(t, 2, sold[1].Ticket.IdentificationNumber)

	leftover, _ := store.TicketsByOrderRef(ctx, "earlier")
	assert.Empty(t, leftover)
}

func TestProcessCheckoutWebhook_UnknownTable(t *testing.T) {
	svc, store, _, _ := orderFixture(t)
	ctx := context.Background()

	store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: 1})

	hook := paidWebhook("9006", 1)
	hook.Payload.Meta.TableNumber = "99"

	_, err := svc.ProcessCheckoutWebhook(ctx, hook, "owner1")
	assert.ErrorIs(t, err, ErrNotFound)

	hook.Payload.Meta.TableNumber = "not-a-number"
	_, err = svc.ProcessCheckoutWebhook(ctx, hook, "owner1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProcessCheckoutWebhook_IgnoresOtherEventTypes(t *testing.T) {
	svc, store, notifier, _ := orderFixture(t)
	ctx := context.Background()

	store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: 1})

	hook := paidWebhook("9007", 1)
	hook.Event = "order.refunded"

	result, err := svc.ProcessCheckoutWebhook(ctx, hook, "owner1")
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	sold, _ := store.SoldCandidates(ctx)
	assert.Empty(t, sold)
	assert.Empty(t, notifier.qrSent)
	assert.Empty(t, notifier.confirmations)
}

func TestProcessCheckoutWebhook_MissingOrderID(t *testing.T) {
	svc, _, _, _ := orderFixture(t)

	hook := paidWebhook("", 1)
	_, err := svc.ProcessCheckoutWebhook(context.Background(), hook, "owner1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProcessCheckoutWebhook_EventHintScopesSelection(t *testing.T) {
	svc, store, _, _ := orderFixture(t)
	ctx := context.Background()

	store.addEvent(models.Event{ID: "event2", Name: "Second Show", OwnerID: "owner1"})
	store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: 1})
	store.addTicket(models.Ticket{EventID: "event2", IdentificationNumber: 1})

	hook := paidWebhook("9008", 1)
	hook.Payload.Meta.EventID = EncodeEventRef("event2")

	_, err := svc.ProcessCheckoutWebhook(ctx, hook, "owner1")
	require.NoError(t, err)

	sold, _ := store.TicketsByOrderRef(ctx, "9008")
	require.Len(t, sold, 1)
	assert.Equal(t, "event2", sold[0].Ticket.EventID)
}

func TestProcessCheckoutWebhook_EventHintOwnershipEnforced(t *testing.T) {
	svc, store, _, _ := orderFixture(t)
	ctx := context.Background()

	store.addEvent(models.Event{ID: "foreign", Name: "Not Yours", OwnerID: "owner2"})
	store.addTicket(models.Ticket{EventID: "foreign", IdentificationNumber: 1})

	hook := paidWebhook("9009", 1)
	hook.Payload.Meta.EventID = EncodeEventRef("foreign")

	_, err := svc.ProcessCheckoutWebhook(ctx, hook, "owner1")
	assert.ErrorIs(t, err, ErrNotFound)

	hook.Payload.Meta.EventID = "%%%not-base64%%%"
	_, err = svc.ProcessCheckoutWebhook(ctx, hook, "owner1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProcessCheckoutWebhook_NotificationFailureDoesNotFailCall(t *testing.T) {
	svc, store, notifier, _ := orderFixture(t)
	ctx := context.Background()

	store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: 1})
	notifier.failFor["maria@example.com"] = assert.AnError

	result, err := svc.ProcessCheckoutWebhook(ctx, paidWebhook("9010", 1), "owner1")
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.Len(t, result.Notifications, 1)
	assert.False(t, result.Notifications[0].Sent)
	assert.NotEmpty(t, result.Notifications[0].Error)

	// The reconciliation itself stays committed.
	sold, _ := store.TicketsByOrderRef(ctx, "9010")
	assert.Len(t, sold, 1)
}

func TestConfirmationHashForOrder(t *testing.T) {
	svc, store, _, codec := orderFixture(t)
	ctx := context.Background()

	store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: 1, OrderRef: "555"})

	hash, err := svc.ConfirmationHashForOrder(ctx, "555", "owner1", "")
	require.NoError(t, err)
	assert.Equal(t, codec.ScopedOrderHash("555", "event1"), hash)

	url, err := svc.ConfirmationURL(ctx, "555", "owner1", "")
	require.NoError(t, err)
	assert.Equal(t, "https://tickets.example.com/confirmation/"+hash, url)

	_, err = svc.ConfirmationHashForOrder(ctx, "555", "owner2", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ConfirmationHashForOrder(ctx, "", "owner1", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConfirmationHashForOrder_MultiEventNeedsScope(t *testing.T) {
	svc, store, _, codec := orderFixture(t)
	ctx := context.Background()

	store.addEvent(models.Event{ID: "event2", Name: "Second Show", OwnerID: "owner1"})
	store.addTicket(models.Ticket{EventID: "event1", IdentificationNumber: 1, OrderRef: "555"})
	store.addTicket(models.Ticket{EventID: "event2", IdentificationNumber: 1, OrderRef: "555"})

	_, err := svc.ConfirmationHashForOrder(ctx, "555", "owner1", "")
	assert.ErrorIs(t, err, ErrConflict)

	hash, err := svc.ConfirmationHashForOrder(ctx, "555", "owner1", "event2")
	require.NoError(t, err)
	assert.Equal(t, codec.ScopedOrderHash("555", "event2"), hash)
}

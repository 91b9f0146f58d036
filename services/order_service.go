package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"ticketeer/models"
	"ticketeer/monitoring"
	"ticketeer/utils"
)

// OrderService reconciles asynchronous payment webhooks against the ticket
// inventory and answers organizer questions about orders.
//
// Reconciliation selects tickets either by explicit table number or by
// requested quantity, stamps every selected ticket with the order reference,
// and records the buyer identity only on the selection's lowest-numbered
// ticket. Whoever is named on the receipt is the accountable buyer;
// co-attendees fill in their own details through the confirmation link.
type OrderService struct {
	store    Store
	codec    *HashCodec
	notifier Notifier
	feed     *RealtimeFeed
	breaker  *utils.CircuitBreaker
	baseURL  string
}

func NewOrderService(store Store, codec *HashCodec, notifier Notifier, feed *RealtimeFeed, baseURL string) *OrderService {
	return &OrderService{
		store:    store,
		codec:    codec,
		notifier: notifier,
		feed:     feed,
		breaker:  utils.NewCircuitBreaker("buyer-email"),
		baseURL:  baseURL,
	}
}

// WebhookResult reports the outcome of one webhook delivery.
type WebhookResult struct {
	Success          bool                 `json:"success"`
	Skipped          bool                 `json:"skipped,omitempty"`
	OrderRef         string               `json:"order_id,omitempty"`
	TableNumber      int                  `json:"table_number,omitempty"`
	ProcessedTickets int                  `json:"processed_tickets"`
	BuyerAssigned    string               `json:"buyer_assigned,omitempty"`
	TicketIDs        []string             `json:"ticket_ids,omitempty"`
	Notifications    []NotificationResult `json:"notifications,omitempty"`
}

// selectRecordOwner names the single ticket of a selection that carries the
// full buyer identity. The policy is "lowest identification number"; it is a
// business rule, isolated here so it can change without touching the
// transactional core.
func selectRecordOwner(orderedTickets []models.Ticket) string {
	return orderedTickets[0].ID
}

// ProcessCheckoutWebhook handles one payment-provider delivery for the given
// authenticated owner. Anything but an order.paid event is acknowledged as a
// no-op. Selection and assignment run inside one transaction; notifications
// run after commit and never fail the call.
func (s *OrderService) ProcessCheckoutWebhook(ctx context.Context, hook models.CheckoutWebhook, ownerID string) (*WebhookResult, error) {
	if hook.Event != models.EventTypeOrderPaid {
		slog.Info("ignoring webhook event", "type", hook.Event, "owner", ownerID)
		return &WebhookResult{Success: true, Skipped: true}, nil
	}

	orderRef := string(hook.Payload.ID)
	if orderRef == "" {
		return nil, fmt.Errorf("%w: webhook payload is missing the order id", ErrValidation)
	}

	eventID, err := s.resolveEventHint(ctx, hook.Payload.Meta.EventID, ownerID)
	if err != nil {
		return nil, err
	}

	tableNumber, err := parseTableNumber(hook.Payload.Meta.TableNumber)
	if err != nil {
		return nil, err
	}

	var selected []models.Ticket
	err = s.store.RunInTransaction(ctx, func(tx Store) error {
		var selErr error
		if tableNumber > 0 {
			selected, selErr = s.selectByTable(ctx, tx, ownerID, tableNumber, eventID)
		} else {
			selected, selErr = s.selectByQuantity(ctx, tx, ownerID, eventID, hook.Payload.TotalQuantity())
		}
		if selErr != nil {
			return selErr
		}

		sort.Slice(selected, func(i, j int) bool {
			return selected[i].IdentificationNumber < selected[j].IdentificationNumber
		})
		recordOwnerID := selectRecordOwner(selected)

		for i := range selected {
			t := &selected[i]
			t.OrderRef = orderRef
			if t.ID == recordOwnerID && hook.Payload.HasContact() {
				c := hook.Payload.Customer
				t.Buyer = c.Name
				t.BuyerDocument = c.Identification
				t.BuyerEmail = c.Email
				t.BuyerPhone = c.Phone
			}
			if err := tx.UpdateTicket(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		monitoring.TrackWebhook(selectionMode(tableNumber), "rejected")
		return nil, err
	}

	result := &WebhookResult{
		Success:          true,
		OrderRef:         orderRef,
		TableNumber:      tableNumber,
		ProcessedTickets: len(selected),
		TicketIDs:        ticketIDs(selected),
	}
	if hook.Payload.HasContact() {
		result.BuyerAssigned = hook.Payload.Customer.Name
	}

	result.Notifications = s.notifyAfterReconciliation(ctx, selected, ownerID, orderRef, hook.Payload.Customer)

	monitoring.TrackWebhook(selectionMode(tableNumber), "processed")
	s.feed.Publish(ownerID, map[string]any{
		"type":     "order_paid",
		"order_id": orderRef,
		"tickets":  len(selected),
	})

	return result, nil
}

// selectByTable takes every owner ticket at the table, sold or not. A table
// can be re-billed, so reassignment is allowed here by design intent of the
// reissue flow; the quantity path stays guarded.
func (s *OrderService) selectByTable(ctx context.Context, tx Store, ownerID string, table int, eventID string) ([]models.Ticket, error) {
	tickets, err := tx.TicketsByTable(ctx, ownerID, table, eventID)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, fmt.Errorf("%w: no tickets found for table %d", ErrNotFound, table)
	}
	return tickets, nil
}

func (s *OrderService) selectByQuantity(ctx context.Context, tx Store, ownerID, eventID string, quantity int) ([]models.Ticket, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: requested quantity must be positive", ErrValidation)
	}

	tickets, err := tx.UnsoldUntabledTickets(ctx, ownerID, eventID, quantity)
	if err != nil {
		return nil, err
	}
	if len(tickets) < quantity {
		return nil, fmt.Errorf("%w: insufficient inventory: requested %d, available %d", ErrConflict, quantity, len(tickets))
	}

	// Re-read inside the transaction: a concurrent delivery may have sold
	// one of these between selection and update.
	for _, t := range tickets {
		current, err := tx.TicketByID(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		if current.Sold() {
			return nil, fmt.Errorf("%w: ticket #%d already belongs to order %s", ErrConflict, current.IdentificationNumber, current.OrderRef)
		}
	}
	return tickets, nil
}

// resolveEventHint decodes the opaque event hint and verifies it belongs to
// the requesting owner. An empty hint is fine; a bad one is not.
func (s *OrderService) resolveEventHint(ctx context.Context, encoded, ownerID string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: malformed event reference", ErrValidation)
	}
	eventID := string(raw)
	if _, err := s.store.EventForOwner(ctx, eventID, ownerID); err != nil {
		return "", err
	}
	return eventID, nil
}

// EncodeEventRef produces the opaque event hint embedded in checkout
// metadata.
func EncodeEventRef(eventID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(eventID))
}

func parseTableNumber(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	table, err := strconv.Atoi(raw)
	if err != nil || table <= 0 {
		return 0, fmt.Errorf("%w: invalid table number %q", ErrValidation, raw)
	}
	return table, nil
}

func selectionMode(tableNumber int) string {
	if tableNumber > 0 {
		return "table"
	}
	return "quantity"
}

func ticketIDs(tickets []models.Ticket) []string {
	ids := make([]string, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
	}
	return ids
}

// notifyAfterReconciliation runs the post-commit side effects: a single
// fully-identified ticket gets its QR artifact immediately, a multi-ticket
// order gets a confirmation link addressed to the receipt buyer. Failures are
// reported in the result, never propagated, and never undo the commit.
func (s *OrderService) notifyAfterReconciliation(ctx context.Context, selected []models.Ticket, ownerID, orderRef string, customer *models.WebhookCustomer) []NotificationResult {
	if s.notifier == nil || customer == nil || customer.Email == "" {
		return nil
	}

	event, err := s.store.EventByID(ctx, selected[0].EventID)
	if err != nil {
		slog.Error("post-commit notification skipped", "order", orderRef, "error", err)
		return []NotificationResult{{Recipient: customer.Email, Sent: false, Error: err.Error()}}
	}

	if len(selected) == 1 && selected[0].HasBuyerInfo() {
		ticket := selected[0]
		hash := s.codec.AccessHash(ownerID, ticket.EventID, ticket.ID)
		_, err := s.breaker.Execute(ctx, func() (any, error) {
			return nil, s.notifier.SendTicketQR(ctx, customer.Email, ticket, event.Summary(), hash)
		})
		return []NotificationResult{dispatchResult(customer.Email, "ticket_qr", ticket.ID, err)}
	}

	confirmationURL := s.baseURL + s.codec.ConfirmationPath(orderRef, selected[0].EventID)
	_, err = s.breaker.Execute(ctx, func() (any, error) {
		return nil, s.notifier.SendOrderConfirmation(ctx, customer.Email, event.Summary(), orderRef, confirmationURL, len(selected))
	})
	return []NotificationResult{dispatchResult(customer.Email, "order_confirmation", "", err)}
}

func dispatchResult(recipient, kind, ticketID string, err error) NotificationResult {
	result := NotificationResult{Recipient: recipient, Kind: kind, TicketID: ticketID, Sent: err == nil}
	if err != nil {
		slog.Error("notification dispatch failed", "kind", kind, "recipient", recipient, "error", err)
		result.Error = err.Error()
	}
	return result
}

// ConfirmationHashForOrder returns the event-scoped confirmation hash for an
// owned order. When the reference spans several of the owner's events the
// call is ambiguous unless an event id narrows it down.
func (s *OrderService) ConfirmationHashForOrder(ctx context.Context, orderRef, ownerID, eventID string) (string, error) {
	if orderRef == "" {
		return "", fmt.Errorf("%w: order id is required", ErrValidation)
	}

	candidates, err := s.store.TicketsByOrderRef(ctx, orderRef)
	if err != nil {
		return "", err
	}

	var owned []models.CandidateTicket
	for _, c := range candidates {
		if c.Event.OwnerID != ownerID {
			continue
		}
		if eventID != "" && c.Event.ID != eventID {
			continue
		}
		owned = append(owned, c)
	}
	if len(owned) == 0 {
		return "", fmt.Errorf("%w: order not found", ErrNotFound)
	}

	eventIDs := map[string]struct{}{}
	for _, c := range owned {
		eventIDs[c.Event.ID] = struct{}{}
	}
	if len(eventIDs) > 1 {
		return "", fmt.Errorf("%w: order spans multiple events, specify an event id", ErrConflict)
	}

	return s.codec.ScopedOrderHash(orderRef, owned[0].Event.ID), nil
}

// ConfirmationURL builds the full public confirmation link for an owned
// order.
func (s *OrderService) ConfirmationURL(ctx context.Context, orderRef, ownerID, eventID string) (string, error) {
	hash, err := s.ConfirmationHashForOrder(ctx, orderRef, ownerID, eventID)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/confirmation/" + hash, nil
}

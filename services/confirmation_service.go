package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"ticketeer/models"
	"ticketeer/utils"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ConfirmationService is the public buyer-confirmation flow: buyers open the
// order hash link, see the order's tickets, and submit one identity per
// ticket exactly once.
type ConfirmationService struct {
	store    Store
	codec    *HashCodec
	resolver *Resolver
	notifier Notifier
	breaker  *utils.CircuitBreaker
}

func NewConfirmationService(store Store, codec *HashCodec, resolver *Resolver, notifier Notifier) *ConfirmationService {
	return &ConfirmationService{
		store:    store,
		codec:    codec,
		resolver: resolver,
		notifier: notifier,
		breaker:  utils.NewCircuitBreaker("buyer-email"),
	}
}

// GetOrderForHash returns the public view of an order. Once the order is
// complete, buyer identities come back masked; this path never exposes raw
// completed buyer data.
func (s *ConfirmationService) GetOrderForHash(ctx context.Context, hash string) (*models.OrderView, error) {
	order, err := s.resolver.FindOrderByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	completed := true
	for _, t := range order.Tickets {
		if !t.HasBuyerInfo() {
			completed = false
			break
		}
	}

	view := &models.OrderView{
		OrderRef:     order.OrderRef,
		Hash:         hash,
		Event:        order.Event.Summary(),
		IsCompleted:  completed,
		TotalTickets: len(order.Tickets),
	}

	for _, t := range order.Tickets {
		pub := models.PublicTicket{
			ID:                   t.ID,
			EventID:              t.EventID,
			IdentificationNumber: t.IdentificationNumber,
			Description:          t.Description,
			Location:             t.Location,
			Table:                t.Table,
			Price:                t.Price.InexactFloat64(),
			IsCompleted:          t.HasBuyerInfo(),
		}
		if completed {
			pub.Buyer = t.Buyer
			pub.BuyerDocument = utils.MaskCPF(t.BuyerDocument)
			pub.BuyerEmail = utils.MaskEmail(t.BuyerEmail)
		} else {
			pub.Buyer = t.Buyer
			pub.BuyerDocument = t.BuyerDocument
			pub.BuyerEmail = t.BuyerEmail
		}
		view.Tickets = append(view.Tickets, pub)
	}

	return view, nil
}

// SubmitResult reports a successful buyer submission, including the
// per-recipient outcome of the post-commit QR dispatches.
type SubmitResult struct {
	OrderRef       string               `json:"order_id"`
	UpdatedTickets int                  `json:"updated_tickets"`
	QRCodeEmails   []NotificationResult `json:"qr_code_emails"`
}

// SubmitBuyers validates and atomically records one buyer per ticket. The
// entries are positionally aligned with the order's tickets in ascending
// identification-number order, the same order GetOrderForHash displays.
// Completion is one-time: a completed order rejects any further submission.
func (s *ConfirmationService) SubmitBuyers(ctx context.Context, hash string, buyers []models.BuyerEntry) (*SubmitResult, error) {
	order, err := s.resolver.FindOrderByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	completed := true
	for _, t := range order.Tickets {
		if !t.HasBuyerInfo() {
			completed = false
			break
		}
	}
	if completed {
		return nil, fmt.Errorf("%w: this order has already been completed and cannot be modified", ErrConflict)
	}

	if err := validateBuyers(buyers, order.Tickets); err != nil {
		return nil, err
	}

	updated := make([]models.Ticket, len(order.Tickets))
	err = s.store.RunInTransaction(ctx, func(tx Store) error {
		for i, entry := range buyers {
			ticket := order.Tickets[i]
			ticket.Buyer = strings.TrimSpace(entry.Name)
			ticket.BuyerDocument = utils.CleanCPF(entry.Document)
			ticket.BuyerEmail = strings.ToLower(strings.TrimSpace(entry.Email))
			ticket.BuyerPhone = strings.TrimSpace(entry.Phone)
			if err := tx.UpdateTicket(ctx, &ticket); err != nil {
				return err
			}
			updated[i] = ticket
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{
		OrderRef:       order.OrderRef,
		UpdatedTickets: len(updated),
	}

	// Every buyer gets their own access artifact; one bounced mailbox must
	// not block the others or undo the committed writes.
	if s.notifier != nil {
		for _, ticket := range updated {
			accessHash := s.codec.AccessHash(order.Event.OwnerID, ticket.EventID, ticket.ID)
			t := ticket
			_, sendErr := s.breaker.Execute(ctx, func() (any, error) {
				return nil, s.notifier.SendTicketQR(ctx, t.BuyerEmail, t, order.Event.Summary(), accessHash)
			})
			result.QRCodeEmails = append(result.QRCodeEmails, dispatchResult(ticket.BuyerEmail, "ticket_qr", ticket.ID, sendErr))
		}
	}

	return result, nil
}

// validateBuyers applies every per-entry and cross-entry rule before any
// write happens. The first violation aborts the whole submission.
func validateBuyers(buyers []models.BuyerEntry, tickets []models.Ticket) error {
	if len(buyers) != len(tickets) {
		return fmt.Errorf("%w: number of buyers (%d) must match number of tickets (%d)", ErrValidation, len(buyers), len(tickets))
	}

	usedDocuments := make(map[string]struct{})
	usedEmails := make(map[string]struct{})

	for i, buyer := range buyers {
		ticket := tickets[i]

		if buyer.TicketID == "" || buyer.Name == "" || buyer.Document == "" || buyer.Email == "" {
			return fmt.Errorf("%w: all fields are required for ticket #%d", ErrValidation, ticket.IdentificationNumber)
		}
		if buyer.TicketID != ticket.ID {
			return fmt.Errorf("%w: ticket id mismatch at position %d", ErrValidation, i+1)
		}
		if len(strings.TrimSpace(buyer.Name)) < 2 {
			return fmt.Errorf("%w: invalid name for ticket #%d", ErrValidation, ticket.IdentificationNumber)
		}
		if err := utils.ValidateCPF(buyer.Document); err != nil {
			return fmt.Errorf("%w: invalid document for ticket #%d: %v", ErrValidation, ticket.IdentificationNumber, err)
		}

		email := strings.ToLower(strings.TrimSpace(buyer.Email))
		if !emailPattern.MatchString(email) {
			return fmt.Errorf("%w: invalid email for ticket #%d", ErrValidation, ticket.IdentificationNumber)
		}

		document := utils.CleanCPF(buyer.Document)
		if _, dup := usedDocuments[document]; dup {
			return fmt.Errorf("%w: document %s is already used for another ticket in this order", ErrValidation, utils.FormatCPF(document))
		}
		usedDocuments[document] = struct{}{}

		if _, dup := usedEmails[email]; dup {
			return fmt.Errorf("%w: email %s is already used for another ticket in this order", ErrValidation, email)
		}
		usedEmails[email] = struct{}{}
	}

	return nil
}

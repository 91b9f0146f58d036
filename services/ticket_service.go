package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ticketeer/models"
	"ticketeer/monitoring"
)

const (
	minBatchQuantity = 1
	maxBatchQuantity = 100
)

// TicketService issues tickets with gap-free per-event identification
// numbers and carries the organizer-facing ticket operations.
type TicketService struct {
	store Store
}

func NewTicketService(store Store) *TicketService {
	return &TicketService{store: store}
}

// TicketFields is the caller-supplied part of a new ticket.
type TicketFields struct {
	Description   string
	Location      string
	Table         int
	Price         decimal.Decimal
	OrderRef      string
	Buyer         string
	BuyerDocument string
	BuyerEmail    string
	SalesEndAt    *time.Time
}

func (f TicketFields) validate() error {
	if f.Description == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if f.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if f.Table < 0 {
		return fmt.Errorf("%w: table must not be negative", ErrValidation)
	}
	return nil
}

// IssueOne creates a single ticket, atomically assigning the event's next
// identification number.
func (s *TicketService) IssueOne(ctx context.Context, eventID string, fields TicketFields, ownerID string) (*models.Ticket, error) {
	tickets, err := s.IssueBatch(ctx, eventID, fields, 1, ownerID)
	if err != nil {
		return nil, err
	}
	return &tickets[0], nil
}

// IssueBatch creates quantity tickets with consecutive identification
// numbers. The counter advance and every row insert share one transaction:
// either all tickets exist, or the counter was never moved.
func (s *TicketService) IssueBatch(ctx context.Context, eventID string, fields TicketFields, quantity int, ownerID string) ([]models.Ticket, error) {
	if quantity < minBatchQuantity || quantity > maxBatchQuantity {
		return nil, fmt.Errorf("%w: quantity must be between %d and %d", ErrValidation, minBatchQuantity, maxBatchQuantity)
	}
	if err := fields.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.EventForOwner(ctx, eventID, ownerID); err != nil {
		return nil, err
	}

	var created []models.Ticket
	err := s.store.RunInTransaction(ctx, func(tx Store) error {
		start, err := tx.ReserveTicketNumbers(ctx, eventID, quantity)
		if err != nil {
			return err
		}
		for i := 0; i < quantity; i++ {
			ticket := models.Ticket{
				EventID:              eventID,
				Description:          fields.Description,
				IdentificationNumber: start + i,
				Location:             fields.Location,
				Table:                fields.Table,
				Price:                fields.Price,
				OrderRef:             fields.OrderRef,
				Buyer:                fields.Buyer,
				BuyerDocument:        fields.BuyerDocument,
				BuyerEmail:           fields.BuyerEmail,
				SalesEndAt:           fields.SalesEndAt,
			}
			if err := tx.CreateTicket(ctx, &ticket); err != nil {
				return err
			}
			created = append(created, ticket)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.TrackTicketsIssued(eventID, quantity)
	return created, nil
}

// ListByEvent returns the event's tickets ascending by identification number.
func (s *TicketService) ListByEvent(ctx context.Context, eventID, ownerID string) ([]models.Ticket, error) {
	if _, err := s.store.EventForOwner(ctx, eventID, ownerID); err != nil {
		return nil, err
	}
	return s.store.TicketsByEvent(ctx, eventID)
}

// GetByID returns one ticket, owner-checked through its event.
func (s *TicketService) GetByID(ctx context.Context, ticketID, ownerID string) (*models.Ticket, error) {
	ticket, err := s.store.TicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.EventForOwner(ctx, ticket.EventID, ownerID); err != nil {
		return nil, err
	}
	return ticket, nil
}

// TicketUpdate carries the mutable ticket fields. Nil pointers leave the
// field untouched; the identification number is immutable.
type TicketUpdate struct {
	Description   *string
	Location      *string
	Table         *int
	Price         *decimal.Decimal
	OrderRef      *string
	Buyer         *string
	BuyerDocument *string
	BuyerEmail    *string
	SalesEndAt    **time.Time
}

func (s *TicketService) Update(ctx context.Context, ticketID string, update TicketUpdate, ownerID string) (*models.Ticket, error) {
	ticket, err := s.GetByID(ctx, ticketID, ownerID)
	if err != nil {
		return nil, err
	}

	if update.Price != nil && update.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}

	if update.Description != nil {
		if *update.Description == "" {
			return nil, fmt.Errorf("%w: description is required", ErrValidation)
		}
		ticket.Description = *update.Description
	}
	if update.Location != nil {
		ticket.Location = *update.Location
	}
	if update.Table != nil {
		if *update.Table < 0 {
			return nil, fmt.Errorf("%w: table must not be negative", ErrValidation)
		}
		ticket.Table = *update.Table
	}
	if update.Price != nil {
		ticket.Price = *update.Price
	}
	if update.OrderRef != nil {
		ticket.OrderRef = *update.OrderRef
	}
	if update.Buyer != nil {
		ticket.Buyer = *update.Buyer
	}
	if update.BuyerDocument != nil {
		ticket.BuyerDocument = *update.BuyerDocument
	}
	if update.BuyerEmail != nil {
		ticket.BuyerEmail = *update.BuyerEmail
	}
	if update.SalesEndAt != nil {
		ticket.SalesEndAt = *update.SalesEndAt
	}

	if err := s.store.UpdateTicket(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Delete removes one owned ticket.
func (s *TicketService) Delete(ctx context.Context, ticketID, ownerID string) error {
	if _, err := s.GetByID(ctx, ticketID, ownerID); err != nil {
		return err
	}
	return s.store.DeleteTickets(ctx, []string{ticketID})
}

// DeleteMany removes a set of owned tickets, verifying ownership of every id
// before touching any row.
func (s *TicketService) DeleteMany(ctx context.Context, ticketIDs []string, ownerID string) error {
	if len(ticketIDs) == 0 {
		return fmt.Errorf("%w: ticket ids are required", ErrValidation)
	}
	for _, id := range ticketIDs {
		if _, err := s.GetByID(ctx, id, ownerID); err != nil {
			return err
		}
	}
	return s.store.DeleteTickets(ctx, ticketIDs)
}

// Stats aggregates price figures for one owned event.
func (s *TicketService) Stats(ctx context.Context, eventID, ownerID string) (*models.TicketStats, error) {
	if _, err := s.store.EventForOwner(ctx, eventID, ownerID); err != nil {
		return nil, err
	}
	return s.store.TicketStats(ctx, eventID)
}

// SearchAvailable lists the event's unsold tickets whose sales window is
// still open. Buyer fields are never set on unsold tickets, so the result is
// safe for public availability pages.
func (s *TicketService) SearchAvailable(ctx context.Context, eventID, ownerID string) ([]models.Ticket, error) {
	if _, err := s.store.EventForOwner(ctx, eventID, ownerID); err != nil {
		return nil, err
	}
	return s.store.AvailableTickets(ctx, eventID, time.Now())
}

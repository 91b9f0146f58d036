package services

import (
	"context"
	"time"

	"ticketeer/models"
	"ticketeer/monitoring"
)

// CheckinService handles door check-in through access-hash links. Check-in
// is one-way: once a ticket is checked in it never resets through this flow.
type CheckinService struct {
	store    Store
	codec    *HashCodec
	resolver *Resolver
	feed     *RealtimeFeed
}

func NewCheckinService(store Store, codec *HashCodec, resolver *Resolver, feed *RealtimeFeed) *CheckinService {
	return &CheckinService{store: store, codec: codec, resolver: resolver, feed: feed}
}

// CheckinStatus is the staff-facing view before scanning someone in.
type CheckinStatus struct {
	Ticket     models.Ticket       `json:"ticket"`
	Event      models.EventSummary `json:"event"`
	CanCheckin bool                `json:"can_checkin"`
	Hash       string              `json:"hash"`
}

// CheckinResult reports a check-in attempt. An already-checked-in ticket is
// a distinct outcome, not an error: the door staff needs the details either
// way.
type CheckinResult struct {
	Success          bool                `json:"success"`
	AlreadyCheckedIn bool                `json:"already_checked_in,omitempty"`
	Message          string              `json:"message"`
	Ticket           models.Ticket       `json:"ticket"`
	Event            models.EventSummary `json:"event"`
}

func (s *CheckinService) Status(ctx context.Context, hash string) (*CheckinStatus, error) {
	candidate, err := s.resolver.FindTicketByAccessHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	return &CheckinStatus{
		Ticket:     candidate.Ticket,
		Event:      candidate.Event.Summary(),
		CanCheckin: !candidate.Ticket.CheckedIn,
		Hash:       hash,
	}, nil
}

func (s *CheckinService) ProcessCheckin(ctx context.Context, hash string) (*CheckinResult, error) {
	candidate, err := s.resolver.FindTicketByAccessHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	ticket := candidate.Ticket
	if ticket.CheckedIn {
		return &CheckinResult{
			Success:          false,
			AlreadyCheckedIn: true,
			Message:          "This ticket has already been checked in",
			Ticket:           ticket,
			Event:            candidate.Event.Summary(),
		}, nil
	}

	now := time.Now()
	ticket.CheckedIn = true
	ticket.CheckedInAt = &now
	if err := s.store.UpdateTicket(ctx, &ticket); err != nil {
		return nil, err
	}

	monitoring.TrackCheckin(ticket.EventID)
	s.feed.Publish(candidate.Event.OwnerID, map[string]any{
		"type":                  "checkin",
		"ticket_id":             ticket.ID,
		"identification_number": ticket.IdentificationNumber,
		"buyer":                 ticket.Buyer,
	})

	return &CheckinResult{
		Success: true,
		Message: "Check-in completed successfully",
		Ticket:  ticket,
		Event:   candidate.Event.Summary(),
	}, nil
}

// AccessHashForTicket regenerates the check-in hash for an owned ticket,
// used by organizers to reissue a lost link.
func (s *CheckinService) AccessHashForTicket(ctx context.Context, ticketID, ownerID string) (string, error) {
	ticket, err := s.store.TicketByID(ctx, ticketID)
	if err != nil {
		return "", err
	}
	if _, err := s.store.EventForOwner(ctx, ticket.EventID, ownerID); err != nil {
		return "", err
	}
	return s.codec.AccessHash(ownerID, ticket.EventID, ticket.ID), nil
}

// EventStats summarizes check-in progress for an owned event.
func (s *CheckinService) EventStats(ctx context.Context, eventID, ownerID string) (*models.CheckinStats, error) {
	if _, err := s.store.EventForOwner(ctx, eventID, ownerID); err != nil {
		return nil, err
	}
	return s.store.CheckinStats(ctx, eventID)
}

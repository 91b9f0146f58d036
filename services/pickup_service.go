package services

import (
	"context"
	"strings"
	"time"

	"ticketeer/models"
)

// PickupService handles accessory pickup through the same access-hash links
// as check-in. Collection is one-way.
type PickupService struct {
	store    Store
	resolver *Resolver
	feed     *RealtimeFeed
}

func NewPickupService(store Store, resolver *Resolver, feed *RealtimeFeed) *PickupService {
	return &PickupService{store: store, resolver: resolver, feed: feed}
}

type PickupStatus struct {
	Ticket    models.Ticket       `json:"ticket"`
	Event     models.EventSummary `json:"event"`
	CanPickup bool                `json:"can_pickup"`
	Hash      string              `json:"hash"`
}

type PickupResult struct {
	Success          bool                `json:"success"`
	AlreadyCollected bool                `json:"already_collected,omitempty"`
	Message          string              `json:"message"`
	Ticket           models.Ticket       `json:"ticket"`
	Event            models.EventSummary `json:"event"`
}

func (s *PickupService) Status(ctx context.Context, hash string) (*PickupStatus, error) {
	candidate, err := s.resolver.FindTicketByAccessHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	return &PickupStatus{
		Ticket:    candidate.Ticket,
		Event:     candidate.Event.Summary(),
		CanPickup: !candidate.Ticket.AccessoryCollected,
		Hash:      hash,
	}, nil
}

func (s *PickupService) ProcessPickup(ctx context.Context, hash, notes string) (*PickupResult, error) {
	candidate, err := s.resolver.FindTicketByAccessHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	ticket := candidate.Ticket
	if ticket.AccessoryCollected {
		return &PickupResult{
			Success:          false,
			AlreadyCollected: true,
			Message:          "Accessories for this ticket have already been collected",
			Ticket:           ticket,
			Event:            candidate.Event.Summary(),
		}, nil
	}

	now := time.Now()
	ticket.AccessoryCollected = true
	ticket.AccessoryCollectedAt = &now
	ticket.AccessoryNotes = strings.TrimSpace(notes)
	if err := s.store.UpdateTicket(ctx, &ticket); err != nil {
		return nil, err
	}

	s.feed.Publish(candidate.Event.OwnerID, map[string]any{
		"type":                  "accessory_pickup",
		"ticket_id":             ticket.ID,
		"identification_number": ticket.IdentificationNumber,
	})

	return &PickupResult{
		Success: true,
		Message: "Accessory pickup recorded",
		Ticket:  ticket,
		Event:   candidate.Event.Summary(),
	}, nil
}

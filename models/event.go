package models

import (
	"time"
)

type Event struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Venue            string    `json:"venue"`
	OwnerID          string    `json:"owner_id"`
	OpeningAt        time.Time `json:"opening_at"`
	ClosingAt        time.Time `json:"closing_at"`
	NextTicketNumber int       `json:"next_ticket_number"`
}

// EventSummary is the subset of event data exposed through public
// (hash-addressed) endpoints.
type EventSummary struct {
	Name      string    `json:"name"`
	Venue     string    `json:"venue"`
	OpeningAt time.Time `json:"opening_at"`
	ClosingAt time.Time `json:"closing_at"`
}

func (e Event) Summary() EventSummary {
	return EventSummary{
		Name:      e.Name,
		Venue:     e.Venue,
		OpeningAt: e.OpeningAt,
		ClosingAt: e.ClosingAt,
	}
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Ticket struct {
	ID                   string          `json:"id"`
	EventID              string          `json:"event_id"`
	Description          string          `json:"description"`
	IdentificationNumber int             `json:"identification_number"`
	Location             string          `json:"location,omitempty"`
	Table                int             `json:"table,omitempty"` // 0 means no table assigned
	Price                decimal.Decimal `json:"price"`
	OrderRef             string          `json:"order,omitempty"` // empty means unsold
	Buyer                string          `json:"buyer,omitempty"`
	BuyerDocument        string          `json:"buyer_document,omitempty"`
	BuyerEmail           string          `json:"buyer_email,omitempty"`
	BuyerPhone           string          `json:"buyer_phone,omitempty"`
	SalesEndAt           *time.Time      `json:"sales_end_at,omitempty"`
	CheckedIn            bool            `json:"checked_in"`
	CheckedInAt          *time.Time      `json:"checked_in_at,omitempty"`
	AccessoryCollected   bool            `json:"accessory_collected"`
	AccessoryCollectedAt *time.Time      `json:"accessory_collected_at,omitempty"`
	AccessoryNotes       string          `json:"accessory_notes,omitempty"`
	Created              time.Time       `json:"created"`
	Updated              time.Time       `json:"updated"`
}

// Sold reports whether the ticket carries an order reference.
func (t Ticket) Sold() bool {
	return t.OrderRef != ""
}

// HasBuyerInfo reports whether the buyer identity is complete.
// Phone is optional in the confirmation flow and does not count.
func (t Ticket) HasBuyerInfo() bool {
	return t.Buyer != "" && t.BuyerDocument != "" && t.BuyerEmail != ""
}

// CandidateTicket pairs a ticket with its owning event, which carries the
// owner id needed to recompute access hashes.
type CandidateTicket struct {
	Ticket Ticket
	Event  Event
}

// TicketStats aggregates price figures for an event's tickets.
type TicketStats struct {
	TotalTickets int             `json:"total_tickets"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	AveragePrice decimal.Decimal `json:"average_price"`
	MinPrice     decimal.Decimal `json:"min_price"`
	MaxPrice     decimal.Decimal `json:"max_price"`
}

// CheckinStats summarizes door activity for an event.
type CheckinStats struct {
	TotalTickets        int `json:"total_tickets"`
	CheckedInTickets    int `json:"checked_in_tickets"`
	NotCheckedIn        int `json:"not_checked_in"`
	CheckedInPercentage int `json:"checked_in_percentage"`
}

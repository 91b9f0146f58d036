package models

// An order is not a stored entity: it is the set of tickets sharing the same
// order reference within one event. These types are the public views derived
// from that set.

// PublicTicket is a ticket as shown through the buyer-confirmation link.
// Buyer fields are masked once the order is complete.
type PublicTicket struct {
	ID                   string  `json:"id"`
	EventID              string  `json:"event_id"`
	IdentificationNumber int     `json:"identification_number"`
	Description          string  `json:"description"`
	Location             string  `json:"location,omitempty"`
	Table                int     `json:"table,omitempty"`
	Price                float64 `json:"price"`
	Buyer                string  `json:"buyer,omitempty"`
	BuyerDocument        string  `json:"buyer_document,omitempty"`
	BuyerEmail           string  `json:"buyer_email,omitempty"`
	IsCompleted          bool    `json:"is_completed"`
}

// OrderView is the public confirmation-page payload for one order.
type OrderView struct {
	OrderRef     string         `json:"order_id"`
	Hash         string         `json:"hash"`
	Event        EventSummary   `json:"event"`
	Tickets      []PublicTicket `json:"tickets"`
	IsCompleted  bool           `json:"is_completed"`
	TotalTickets int            `json:"total_tickets"`
}

// BuyerEntry is one submitted buyer record, positionally aligned with the
// order's tickets in ascending identification-number order.
type BuyerEntry struct {
	TicketID string `json:"ticket_id"`
	Name     string `json:"name"`
	Document string `json:"document"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

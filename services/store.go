package services

import (
	"context"
	"time"

	"ticketeer/models"
)

// CandidateSource enumerates the tickets a hash could address. Hashes are
// one-way, so resolution recomputes per candidate instead of querying by
// hash; implementations only need to scope the candidate set, never to index
// hashes themselves.
type CandidateSource interface {
	// AllCandidates returns every ticket with its owning event.
	AllCandidates(ctx context.Context) ([]models.CandidateTicket, error)

	// SoldCandidates returns tickets carrying a non-empty order reference,
	// with their owning events.
	SoldCandidates(ctx context.Context) ([]models.CandidateTicket, error)

	// CandidateByID fetches one ticket with its event, for index-assisted
	// lookups. The caller re-verifies the hash before trusting the result.
	CandidateByID(ctx context.Context, ticketID string) (*models.CandidateTicket, error)
}

// Store is the transactional persistence collaborator. All multi-row
// mutations run through RunInTransaction; within the callback the passed
// Store operates on the transaction.
type Store interface {
	CandidateSource

	EventByID(ctx context.Context, eventID string) (*models.Event, error)

	// EventForOwner returns ErrNotFound for both absent and foreign events.
	EventForOwner(ctx context.Context, eventID, ownerID string) (*models.Event, error)

	// ReserveTicketNumbers atomically advances the event's counter by
	// quantity and returns the first reserved identification number. Must be
	// called inside a transaction so the counter never drifts from the
	// created rows.
	ReserveTicketNumbers(ctx context.Context, eventID string, quantity int) (int, error)

	CreateTicket(ctx context.Context, t *models.Ticket) error
	TicketByID(ctx context.Context, ticketID string) (*models.Ticket, error)
	UpdateTicket(ctx context.Context, t *models.Ticket) error
	DeleteTickets(ctx context.Context, ticketIDs []string) error

	// TicketsByEvent lists ascending by identification number.
	TicketsByEvent(ctx context.Context, eventID string) ([]models.Ticket, error)

	// AvailableTickets lists unsold tickets whose sales window is open,
	// ascending by identification number.
	AvailableTickets(ctx context.Context, eventID string, now time.Time) ([]models.Ticket, error)

	// TicketsByTable selects the owner's tickets at the given table
	// regardless of sold state, optionally scoped to one event, ascending by
	// identification number.
	TicketsByTable(ctx context.Context, ownerID string, table int, eventID string) ([]models.Ticket, error)

	// UnsoldUntabledTickets selects up to limit of the owner's tickets with
	// no table and no order reference, optionally scoped to one event,
	// ascending by identification number.
	UnsoldUntabledTickets(ctx context.Context, ownerID, eventID string, limit int) ([]models.Ticket, error)

	// TicketsByOrderRef returns every ticket carrying the order reference,
	// across events and owners, with their events. Callers filter by owner.
	TicketsByOrderRef(ctx context.Context, orderRef string) ([]models.CandidateTicket, error)

	TicketStats(ctx context.Context, eventID string) (*models.TicketStats, error)
	CheckinStats(ctx context.Context, eventID string) (*models.CheckinStats, error)

	RunInTransaction(ctx context.Context, fn func(tx Store) error) error
}

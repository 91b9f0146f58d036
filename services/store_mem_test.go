package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ticketeer/models"
)

// memStore is a mutex-guarded in-memory Store. Transactions serialize on a
// dedicated lock so concurrent callers observe the same atomicity the sqlite
// write transaction gives the real store.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	events  map[string]*models.Event
	tickets map[string]*models.Ticket
	nextID  int
}

func newMemStore() *memStore {
	return &memStore{
		events:  make(map[string]*models.Event),
		tickets: make(map[string]*models.Ticket),
	}
}

func (s *memStore) addEvent(e models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.NextTicketNumber == 0 {
		e.NextTicketNumber = 1
	}
	s.events[e.ID] = &e
}

func (s *memStore) addTicket(t models.Ticket) models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		s.nextID++
		t.ID = fmt.Sprintf("ticket%03d", s.nextID)
	}
	s.tickets[t.ID] = &t
	return t
}

func (s *memStore) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

func (s *memStore) EventByID(ctx context.Context, eventID string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("%w: event", ErrNotFound)
	}
	copied := *e
	return &copied, nil
}

func (s *memStore) EventForOwner(ctx context.Context, eventID, ownerID string) (*models.Event, error) {
	event, err := s.EventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: event", ErrNotFound)
	}
	return event, nil
}

func (s *memStore) ReserveTicketNumbers(ctx context.Context, eventID string, quantity int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return 0, fmt.Errorf("%w: event", ErrNotFound)
	}
	start := e.NextTicketNumber
	e.NextTicketNumber += quantity
	return start, nil
}

func (s *memStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = fmt.Sprintf("ticket%03d", s.nextID)
	t.Created = time.Now()
	t.Updated = t.Created
	copied := *t
	s.tickets[t.ID] = &copied
	return nil
}

func (s *memStore) TicketByID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("%w: ticket", ErrNotFound)
	}
	copied := *t
	return &copied, nil
}

func (s *memStore) UpdateTicket(ctx context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[t.ID]; !ok {
		return fmt.Errorf("%w: ticket", ErrNotFound)
	}
	t.Updated = time.Now()
	copied := *t
	s.tickets[t.ID] = &copied
	return nil
}

func (s *memStore) DeleteTickets(ctx context.Context, ticketIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ticketIDs {
		if _, ok := s.tickets[id]; !ok {
			return fmt.Errorf("%w: ticket", ErrNotFound)
		}
	}
	for _, id := range ticketIDs {
		delete(s.tickets, id)
	}
	return nil
}

func (s *memStore) TicketsByEvent(ctx context.Context, eventID string) ([]models.Ticket, error) {
	return s.filter(func(t *models.Ticket) bool {
		return t.EventID == eventID
	}), nil
}

func (s *memStore) AvailableTickets(ctx context.Context, eventID string, now time.Time) ([]models.Ticket, error) {
	return s.filter(func(t *models.Ticket) bool {
		if t.EventID != eventID || t.Sold() {
			return false
		}
		return t.SalesEndAt == nil || t.SalesEndAt.After(now)
	}), nil
}

func (s *memStore) TicketsByTable(ctx context.Context, ownerID string, table int, eventID string) ([]models.Ticket, error) {
	return s.filter(func(t *models.Ticket) bool {
		if !s.ownedBy(t, ownerID) || t.Table != table {
			return false
		}
		return eventID == "" || t.EventID == eventID
	}), nil
}

func (s *memStore) UnsoldUntabledTickets(ctx context.Context, ownerID, eventID string, limit int) ([]models.Ticket, error) {
	tickets := s.filter(func(t *models.Ticket) bool {
		if !s.ownedBy(t, ownerID) || t.Table != 0 || t.Sold() {
			return false
		}
		return eventID == "" || t.EventID == eventID
	})
	if limit > 0 && len(tickets) > limit {
		tickets = tickets[:limit]
	}
	return tickets, nil
}

func (s *memStore) TicketsByOrderRef(ctx context.Context, orderRef string) ([]models.CandidateTicket, error) {
	tickets := s.filter(func(t *models.Ticket) bool {
		return t.OrderRef == orderRef
	})
	return s.pair(tickets), nil
}

func (s *memStore) AllCandidates(ctx context.Context) ([]models.CandidateTicket, error) {
	return s.pair(s.filter(func(t *models.Ticket) bool { return true })), nil
}

func (s *memStore) SoldCandidates(ctx context.Context) ([]models.CandidateTicket, error) {
	return s.pair(s.filter(func(t *models.Ticket) bool { return t.Sold() })), nil
}

func (s *memStore) CandidateByID(ctx context.Context, ticketID string) (*models.CandidateTicket, error) {
	ticket, err := s.TicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	pairs := s.pair([]models.Ticket{*ticket})
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: event", ErrNotFound)
	}
	return &pairs[0], nil
}

func (s *memStore) TicketStats(ctx context.Context, eventID string) (*models.TicketStats, error) {
	tickets, _ := s.TicketsByEvent(ctx, eventID)
	stats := &models.TicketStats{TotalTickets: len(tickets)}
	if len(tickets) == 0 {
		return stats, nil
	}
	stats.MinPrice = tickets[0].Price
	stats.MaxPrice = tickets[0].Price
	for _, t := range tickets {
		stats.TotalRevenue = stats.TotalRevenue.Add(t.Price)
		if t.Price.LessThan(stats.MinPrice) {
			stats.MinPrice = t.Price
		}
		if t.Price.GreaterThan(stats.MaxPrice) {
			stats.MaxPrice = t.Price
		}
	}
	stats.AveragePrice = stats.TotalRevenue.Div(decimal.NewFromInt(int64(len(tickets)))).Round(2)
	return stats, nil
}

func (s *memStore) CheckinStats(ctx context.Context, eventID string) (*models.CheckinStats, error) {
	tickets, _ := s.TicketsByEvent(ctx, eventID)
	stats := &models.CheckinStats{TotalTickets: len(tickets)}
	for _, t := range tickets {
		if t.CheckedIn {
			stats.CheckedInTickets++
		}
	}
	stats.NotCheckedIn = stats.TotalTickets - stats.CheckedInTickets
	if stats.TotalTickets > 0 {
		stats.CheckedInPercentage = stats.CheckedInTickets * 100 / stats.TotalTickets
	}
	return stats, nil
}

func (s *memStore) filter(keep func(*models.Ticket) bool) []models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Ticket
	for _, t := range s.tickets {
		if keep(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].IdentificationNumber < out[j].IdentificationNumber
	})
	return out
}

// ownedBy is called with mu held through filter; it reads events directly.
func (s *memStore) ownedBy(t *models.Ticket, ownerID string) bool {
	e, ok := s.events[t.EventID]
	return ok && e.OwnerID == ownerID
}

func (s *memStore) pair(tickets []models.Ticket) []models.CandidateTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CandidateTicket
	for _, t := range tickets {
		e, ok := s.events[t.EventID]
		if !ok {
			continue
		}
		out = append(out, models.CandidateTicket{Ticket: t, Event: *e})
	}
	return out
}

// fakeNotifier records dispatches and optionally fails them.
type fakeNotifier struct {
	mu            sync.Mutex
	qrSent        []string // recipient addresses
	confirmations []string // recipient addresses
	failFor       map[string]error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failFor: make(map[string]error)}
}

func (n *fakeNotifier) SendTicketQR(ctx context.Context, to string, ticket models.Ticket, event models.EventSummary, accessHash string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failFor[to]; ok {
		return err
	}
	n.qrSent = append(n.qrSent, to)
	return nil
}

func (n *fakeNotifier) SendOrderConfirmation(ctx context.Context, to string, event models.EventSummary, orderRef, confirmationURL string, totalTickets int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failFor[to]; ok {
		return err
	}
	n.confirmations = append(n.confirmations, to)
	return nil
}

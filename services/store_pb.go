package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"ticketeer/models"
)

// PBStore implements Store on the pocketbase app. Inside RunInTransaction it
// wraps the transactional core.App, so every method runs against the
// transaction.
type PBStore struct {
	app core.App
}

func NewPBStore(app core.App) *PBStore {
	return &PBStore{app: app}
}

func (s *PBStore) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		return fn(NewPBStore(txApp))
	})
}

func (s *PBStore) EventByID(ctx context.Context, eventID string) (*models.Event, error) {
	record, err := s.app.FindRecordById("events", eventID)
	if err != nil {
		return nil, notFoundOr(err, "event")
	}
	event := recordToEvent(record)
	return &event, nil
}

func (s *PBStore) EventForOwner(ctx context.Context, eventID, ownerID string) (*models.Event, error) {
	record, err := s.app.FindFirstRecordByFilter(
		"events",
		"id = {:id} && created_by = {:owner}",
		dbx.Params{"id": eventID, "owner": ownerID},
	)
	if err != nil {
		return nil, notFoundOr(err, "event")
	}
	event := recordToEvent(record)
	return &event, nil
}

// ReserveTicketNumbers advances the counter with a single UPDATE and reads
// the new value back. Under sqlite the write transaction serializes the
// update-then-read pair, so two concurrent batches can never observe the
// same pre-increment value.
func (s *PBStore) ReserveTicketNumbers(ctx context.Context, eventID string, quantity int) (int, error) {
	result, err := s.app.DB().
		NewQuery("UPDATE events SET next_ticket_number = next_ticket_number + {:qty} WHERE id = {:id}").
		Bind(dbx.Params{"qty": quantity, "id": eventID}).
		Execute()
	if err != nil {
		return 0, err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return 0, fmt.Errorf("%w: event", ErrNotFound)
	}

	var next int
	err = s.app.DB().
		NewQuery("SELECT next_ticket_number FROM events WHERE id = {:id}").
		Bind(dbx.Params{"id": eventID}).
		Row(&next)
	if err != nil {
		return 0, err
	}
	return next - quantity, nil
}

func (s *PBStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	collection, err := s.app.FindCachedCollectionByNameOrId("tickets")
	if err != nil {
		return err
	}

	record := core.NewRecord(collection)
	applyTicket(record, t)
	if err := s.app.Save(record); err != nil {
		return err
	}

	t.ID = record.Id
	t.Created = record.GetDateTime("created").Time()
	t.Updated = record.GetDateTime("updated").Time()
	return nil
}

func (s *PBStore) TicketByID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	record, err := s.app.FindRecordById("tickets", ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	ticket := recordToTicket(record)
	return &ticket, nil
}

func (s *PBStore) UpdateTicket(ctx context.Context, t *models.Ticket) error {
	record, err := s.app.FindRecordById("tickets", t.ID)
	if err != nil {
		return notFoundOr(err, "ticket")
	}
	applyTicket(record, t)
	if err := s.app.Save(record); err != nil {
		return err
	}
	t.Updated = record.GetDateTime("updated").Time()
	return nil
}

func (s *PBStore) DeleteTickets(ctx context.Context, ticketIDs []string) error {
	for _, id := range ticketIDs {
		record, err := s.app.FindRecordById("tickets", id)
		if err != nil {
			return notFoundOr(err, "ticket")
		}
		if err := s.app.Delete(record); err != nil {
			return err
		}
	}
	return nil
}

func (s *PBStore) TicketsByEvent(ctx context.Context, eventID string) ([]models.Ticket, error) {
	records, err := s.app.FindRecordsByFilter(
		"tickets",
		"event = {:event}",
		"+identification_number",
		0, 0,
		dbx.Params{"event": eventID},
	)
	if err != nil {
		return nil, err
	}
	return recordsToTickets(records), nil
}

func (s *PBStore) AvailableTickets(ctx context.Context, eventID string, now time.Time) ([]models.Ticket, error) {
	records, err := s.app.FindRecordsByFilter(
		"tickets",
		"event = {:event} && order_ref = '' && (sales_end_at = '' || sales_end_at > {:now})",
		"+identification_number",
		0, 0,
		dbx.Params{"event": eventID, "now": now.UTC().Format(types.DefaultDateLayout)},
	)
	if err != nil {
		return nil, err
	}
	return recordsToTickets(records), nil
}

func (s *PBStore) TicketsByTable(ctx context.Context, ownerID string, table int, eventID string) ([]models.Ticket, error) {
	filter := "event.created_by = {:owner} && table_number = {:table}"
	params := dbx.Params{"owner": ownerID, "table": table}
	if eventID != "" {
		filter += " && event = {:event}"
		params["event"] = eventID
	}

	records, err := s.app.FindRecordsByFilter("tickets", filter, "+identification_number", 0, 0, params)
	if err != nil {
		return nil, err
	}
	return recordsToTickets(records), nil
}

func (s *PBStore) UnsoldUntabledTickets(ctx context.Context, ownerID, eventID string, limit int) ([]models.Ticket, error) {
	filter := "event.created_by = {:owner} && table_number = 0 && order_ref = ''"
	params := dbx.Params{"owner": ownerID}
	if eventID != "" {
		filter += " && event = {:event}"
		params["event"] = eventID
	}

	records, err := s.app.FindRecordsByFilter("tickets", filter, "+identification_number", limit, 0, params)
	if err != nil {
		return nil, err
	}
	return recordsToTickets(records), nil
}

func (s *PBStore) TicketsByOrderRef(ctx context.Context, orderRef string) ([]models.CandidateTicket, error) {
	records, err := s.app.FindRecordsByFilter(
		"tickets",
		"order_ref = {:ref}",
		"+identification_number",
		0, 0,
		dbx.Params{"ref": orderRef},
	)
	if err != nil {
		return nil, err
	}
	return s.withEvents(records)
}

func (s *PBStore) AllCandidates(ctx context.Context) ([]models.CandidateTicket, error) {
	records, err := s.app.FindAllRecords("tickets")
	if err != nil {
		return nil, err
	}
	return s.withEvents(records)
}

func (s *PBStore) SoldCandidates(ctx context.Context) ([]models.CandidateTicket, error) {
	records, err := s.app.FindAllRecords("tickets", dbx.NewExp("order_ref != ''"))
	if err != nil {
		return nil, err
	}
	return s.withEvents(records)
}

func (s *PBStore) CandidateByID(ctx context.Context, ticketID string) (*models.CandidateTicket, error) {
	record, err := s.app.FindRecordById("tickets", ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	candidates, err := s.withEvents([]*core.Record{record})
	if err != nil {
		return nil, err
	}
	return &candidates[0], nil
}

func (s *PBStore) TicketStats(ctx context.Context, eventID string) (*models.TicketStats, error) {
	tickets, err := s.TicketsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

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

func (s *PBStore) CheckinStats(ctx context.Context, eventID string) (*models.CheckinStats, error) {
	tickets, err := s.TicketsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

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

// withEvents joins ticket records with their owning events in one extra
// query per distinct event set.
func (s *PBStore) withEvents(records []*core.Record) ([]models.CandidateTicket, error) {
	seen := make(map[string]struct{})
	var eventIDs []string
	for _, r := range records {
		id := r.GetString("event")
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			eventIDs = append(eventIDs, id)
		}
	}

	events := make(map[string]models.Event, len(eventIDs))
	if len(eventIDs) > 0 {
		eventRecords, err := s.app.FindRecordsByIds("events", eventIDs)
		if err != nil {
			return nil, err
		}
		for _, r := range eventRecords {
			events[r.Id] = recordToEvent(r)
		}
	}

	candidates := make([]models.CandidateTicket, 0, len(records))
	for _, r := range records {
		event, ok := events[r.GetString("event")]
		if !ok {
			// Orphaned ticket; skip rather than resolve against a hole.
			continue
		}
		candidates = append(candidates, models.CandidateTicket{
			Ticket: recordToTicket(r),
			Event:  event,
		})
	}
	return candidates, nil
}

func notFoundOr(err error, kind string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, kind)
	}
	return err
}

func recordToEvent(r *core.Record) models.Event {
	return models.Event{
		ID:               r.Id,
		Name:             r.GetString("name"),
		Description:      r.GetString("description"),
		Venue:            r.GetString("venue"),
		OwnerID:          r.GetString("created_by"),
		OpeningAt:        r.GetDateTime("opening_at").Time(),
		ClosingAt:        r.GetDateTime("closing_at").Time(),
		NextTicketNumber: r.GetInt("next_ticket_number"),
	}
}

func recordsToTickets(records []*core.Record) []models.Ticket {
	tickets := make([]models.Ticket, 0, len(records))
	for _, r := range records {
		tickets = append(tickets, recordToTicket(r))
	}
	return tickets
}

func recordToTicket(r *core.Record) models.Ticket {
	price, err := decimal.NewFromString(r.GetString("price"))
	if err != nil {
		price = decimal.Zero
	}

	ticket := models.Ticket{
		ID:                   r.Id,
		EventID:              r.GetString("event"),
		Description:          r.GetString("description"),
		IdentificationNumber: r.GetInt("identification_number"),
		Location:             r.GetString("location"),
		Table:                r.GetInt("table_number"),
		Price:                price,
		OrderRef:             r.GetString("order_ref"),
		Buyer:                r.GetString("buyer"),
		BuyerDocument:        r.GetString("buyer_document"),
		BuyerEmail:           r.GetString("buyer_email"),
		BuyerPhone:           r.GetString("buyer_phone"),
		CheckedIn:            r.GetBool("checked_in"),
		AccessoryCollected:   r.GetBool("accessory_collected"),
		AccessoryNotes:       r.GetString("accessory_notes"),
		Created:              r.GetDateTime("created").Time(),
		Updated:              r.GetDateTime("updated").Time(),
	}
	if dt := r.GetDateTime("sales_end_at"); !dt.IsZero() {
		t := dt.Time()
		ticket.SalesEndAt = &t
	}
	if dt := r.GetDateTime("checked_in_at"); !dt.IsZero() {
		t := dt.Time()
		ticket.CheckedInAt = &t
	}
	if dt := r.GetDateTime("accessory_collected_at"); !dt.IsZero() {
		t := dt.Time()
		ticket.AccessoryCollectedAt = &t
	}
	return ticket
}

func applyTicket(record *core.Record, t *models.Ticket) {
	record.Set("event", t.EventID)
	record.Set("description", t.Description)
	record.Set("identification_number", t.IdentificationNumber)
	record.Set("location", t.Location)
	record.Set("table_number", t.Table)
	record.Set("price", t.Price.String())
	record.Set("order_ref", t.OrderRef)
	record.Set("buyer", t.Buyer)
	record.Set("buyer_document", t.BuyerDocument)
	record.Set("buyer_email", t.BuyerEmail)
	record.Set("buyer_phone", t.BuyerPhone)
	record.Set("checked_in", t.CheckedIn)
	record.Set("accessory_collected", t.AccessoryCollected)
	record.Set("accessory_notes", t.AccessoryNotes)

	if t.SalesEndAt != nil {
		record.Set("sales_end_at", t.SalesEndAt.UTC())
	} else {
		record.Set("sales_end_at", "")
	}
	if t.CheckedInAt != nil {
		record.Set("checked_in_at", t.CheckedInAt.UTC())
	} else {
		record.Set("checked_in_at", "")
	}
	if t.AccessoryCollectedAt != nil {
		record.Set("accessory_collected_at", t.AccessoryCollectedAt.UTC())
	} else {
		record.Set("accessory_collected_at", "")
	}
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"ticketeer/models"
	"ticketeer/monitoring"
)

// Resolver maps inbound hashes back to entities. The hash cannot be inverted
// or used as a lookup key, so resolution is a linear scan recomputing the
// hash per candidate. A redis forward index may shortcut the scan, but the
// recomputed hash stays authoritative: a stale index entry is discarded, not
// trusted.
type Resolver struct {
	codec  *HashCodec
	source CandidateSource
	index  *HashIndex // optional
}

func NewResolver(codec *HashCodec, source CandidateSource, index *HashIndex) *Resolver {
	return &Resolver{codec: codec, source: source, index: index}
}

// ResolvedOrder is the outcome of an order-hash lookup.
type ResolvedOrder struct {
	OrderRef string
	Event    models.Event
	Tickets  []models.Ticket
}

// FindTicketByAccessHash resolves a check-in/pickup hash to its ticket.
func (r *Resolver) FindTicketByAccessHash(ctx context.Context, hash string) (*models.CandidateTicket, error) {
	if !IsWellFormed(hash) {
		return nil, fmt.Errorf("%w: invalid hash format", ErrValidation)
	}

	if r.index != nil {
		if ticketID, ok := r.index.Lookup(ctx, hash); ok {
			candidate, err := r.source.CandidateByID(ctx, ticketID)
			if err == nil && r.codec.VerifyAccessHash(hash, candidate.Event.OwnerID, candidate.Ticket.EventID, candidate.Ticket.ID) {
				monitoring.TrackHashResolution("access", "hit")
				return candidate, nil
			}
			// Stale or poisoned entry: drop it and fall back to the scan.
			r.index.Invalidate(ctx, hash)
		}
	}

	candidates, err := r.source.AllCandidates(ctx)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		c := &candidates[i]
		if r.codec.VerifyAccessHash(hash, c.Event.OwnerID, c.Ticket.EventID, c.Ticket.ID) {
			if r.index != nil {
				r.index.Store(ctx, hash, c.Ticket.ID)
			}
			monitoring.TrackHashResolution("access", "hit")
			return c, nil
		}
	}

	monitoring.TrackHashResolution("access", "miss")
	return nil, fmt.Errorf("%w: no ticket matches the provided hash", ErrNotFound)
}

// FindOrderByHash resolves a confirmation hash to its order. Candidates are
// grouped by (order reference, event) and tested against the scoped hash
// first; the legacy unscoped hash is accepted only when exactly one group
// matches it, so an ambiguous legacy link fails safe instead of guessing.
func (r *Resolver) FindOrderByHash(ctx context.Context, hash string) (*ResolvedOrder, error) {
	if !IsWellFormed(hash) {
		return nil, fmt.Errorf("%w: invalid hash format", ErrValidation)
	}

	candidates, err := r.source.SoldCandidates(ctx)
	if err != nil {
		return nil, err
	}

	type group struct {
		orderRef string
		event    models.Event
		tickets  []models.Ticket
	}
	groups := make(map[string]*group)
	var keys []string
	for _, c := range candidates {
		key := c.Ticket.OrderRef + "\x00" + c.Ticket.EventID
		g, ok := groups[key]
		if !ok {
			g = &group{orderRef: c.Ticket.OrderRef, event: c.Event}
			groups[key] = g
			keys = append(keys, key)
		}
		g.tickets = append(g.tickets, c.Ticket)
	}
	sort.Strings(keys)

	var legacy []*group
	for _, key := range keys {
		g := groups[key]
		if r.codec.VerifyScopedOrderHash(hash, g.orderRef, g.event.ID) {
			monitoring.TrackHashResolution("order", "hit")
			return r.orderFromGroup(g.orderRef, g.event, g.tickets), nil
		}
		if r.codec.VerifyOrderHash(hash, g.orderRef) {
			legacy = append(legacy, g)
		}
	}

	if len(legacy) == 1 {
		g := legacy[0]
		monitoring.TrackHashResolution("order", "hit")
		return r.orderFromGroup(g.orderRef, g.event, g.tickets), nil
	}
	if len(legacy) > 1 {
		slog.Warn("ambiguous legacy order hash rejected", "matches", len(legacy))
	}

	monitoring.TrackHashResolution("order", "miss")
	return nil, fmt.Errorf("%w: no order matches the provided hash", ErrNotFound)
}

func (r *Resolver) orderFromGroup(orderRef string, event models.Event, tickets []models.Ticket) *ResolvedOrder {
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].IdentificationNumber < tickets[j].IdentificationNumber
	})
	return &ResolvedOrder{OrderRef: orderRef, Event: event, Tickets: tickets}
}

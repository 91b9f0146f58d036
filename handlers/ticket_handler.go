package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"ticketeer/services"
)

type TicketHandler struct {
	ticketService *services.TicketService
}

func NewTicketHandler(ticketService *services.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

type createTicketRequest struct {
	Description string `json:"description"`
	Location    string `json:"location"`
	Table       int    `json:"table"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
	SalesEndAt  string `json:"sales_end_at"`
}

func (r createTicketRequest) fields() (services.TicketFields, error) {
	fields := services.TicketFields{
		Description: r.Description,
		Location:    r.Location,
		Table:       r.Table,
	}

	if r.Price != "" {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return fields, err
		}
		fields.Price = price
	}

	if r.SalesEndAt != "" {
		endAt, err := time.Parse(time.RFC3339, r.SalesEndAt)
		if err != nil {
			return fields, err
		}
		fields.SalesEndAt = &endAt
	}

	return fields, nil
}

// CreateTickets - Issue one or a batch of tickets for an event
func (h *TicketHandler) CreateTickets(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("eventId")

	var req createTicketRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	fields, err := req.fields()
	if err != nil {
		return apis.NewBadRequestError("Invalid ticket fields", err)
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	tickets, err := h.ticketService.IssueBatch(e.Request.Context(), eventID, fields, quantity, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusCreated, map[string]any{
		"tickets": tickets,
		"count":   len(tickets),
	})
}

// ListTickets - All tickets of an event, ascending by identification number
func (h *TicketHandler) ListTickets(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("eventId")

	tickets, err := h.ticketService.ListByEvent(e.Request.Context(), eventID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"tickets": tickets,
		"count":   len(tickets),
	})
}

// GetTicket - Single ticket with ownership check
func (h *TicketHandler) GetTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketID := e.Request.PathValue("ticketId")

	ticket, err := h.ticketService.GetByID(e.Request.Context(), ticketID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, ticket)
}

type updateTicketRequest struct {
	Description   *string `json:"description"`
	Location      *string `json:"location"`
	Table         *int    `json:"table"`
	Price         *string `json:"price"`
	OrderRef      *string `json:"order"`
	Buyer         *string `json:"buyer"`
	BuyerDocument *string `json:"buyer_document"`
	BuyerEmail    *string `json:"buyer_email"`
	SalesEndAt    *string `json:"sales_end_at"` // "" clears the deadline
}

func (r updateTicketRequest) update() (services.TicketUpdate, error) {
	update := services.TicketUpdate{
		Description:   r.Description,
		Location:      r.Location,
		Table:         r.Table,
		OrderRef:      r.OrderRef,
		Buyer:         r.Buyer,
		BuyerDocument: r.BuyerDocument,
		BuyerEmail:    r.BuyerEmail,
	}

	if r.Price != nil {
		price, err := decimal.NewFromString(*r.Price)
		if err != nil {
			return update, err
		}
		update.Price = &price
	}

	if r.SalesEndAt != nil {
		if *r.SalesEndAt == "" {
			var cleared *time.Time
			update.SalesEndAt = &cleared
		} else {
			endAt, err := time.Parse(time.RFC3339, *r.SalesEndAt)
			if err != nil {
				return update, err
			}
			ptr := &endAt
			update.SalesEndAt = &ptr
		}
	}

	return update, nil
}

// UpdateTicket - Patch ticket fields; the identification number is immutable
func (h *TicketHandler) UpdateTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketID := e.Request.PathValue("ticketId")

	var req updateTicketRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	update, err := req.update()
	if err != nil {
		return apis.NewBadRequestError("Invalid ticket fields", err)
	}

	ticket, err := h.ticketService.Update(e.Request.Context(), ticketID, update, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, ticket)
}

// DeleteTicket - Remove one ticket
func (h *TicketHandler) DeleteTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketID := e.Request.PathValue("ticketId")

	if err := h.ticketService.Delete(e.Request.Context(), ticketID, e.Auth.Id); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"deleted": 1})
}

type deleteTicketsRequest struct {
	TicketIDs []string `json:"ticket_ids"`
}

// DeleteTickets - Remove a batch of tickets in one transaction
func (h *TicketHandler) DeleteTickets(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req deleteTicketsRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if len(req.TicketIDs) == 0 {
		return apis.NewBadRequestError("ticket_ids must not be empty", nil)
	}

	if err := h.ticketService.DeleteMany(e.Request.Context(), req.TicketIDs, e.Auth.Id); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"deleted": len(req.TicketIDs)})
}

// GetStats - Price aggregates for an event's tickets
func (h *TicketHandler) GetStats(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("eventId")

	stats, err := h.ticketService.Stats(e.Request.Context(), eventID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, stats)
}

// SearchAvailable - Unsold tickets still inside their sales window
func (h *TicketHandler) SearchAvailable(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("eventId")

	tickets, err := h.ticketService.SearchAvailable(e.Request.Context(), eventID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"tickets": tickets,
		"count":   len(tickets),
	})
}

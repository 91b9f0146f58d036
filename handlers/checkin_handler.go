package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticketeer/services"
)

type CheckinHandler struct {
	checkinService *services.CheckinService
}

func NewCheckinHandler(checkinService *services.CheckinService) *CheckinHandler {
	return &CheckinHandler{checkinService: checkinService}
}

// GetStatus - Ticket details behind a check-in hash
func (h *CheckinHandler) GetStatus(e *core.RequestEvent) error {
	hash := e.Request.PathValue("hash")

	status, err := h.checkinService.Status(e.Request.Context(), hash)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, status)
}

// Checkin - Mark the ticket as checked in
func (h *CheckinHandler) Checkin(e *core.RequestEvent) error {
	hash := e.Request.PathValue("hash")

	result, err := h.checkinService.ProcessCheckin(e.Request.Context(), hash)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, result)
}

// GetAccessHash - Organizer lookup of a ticket's check-in link
func (h *CheckinHandler) GetAccessHash(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketID := e.Request.PathValue("ticketId")

	hash, err := h.checkinService.AccessHashForTicket(e.Request.Context(), ticketID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"ticket_id": ticketID,
		"hash":      hash,
	})
}

// GetEventStats - Check-in totals for an event
func (h *CheckinHandler) GetEventStats(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("eventId")

	stats, err := h.checkinService.EventStats(e.Request.Context(), eventID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, stats)
}

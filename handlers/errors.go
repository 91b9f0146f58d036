package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"

	"ticketeer/services"
)

// apiError translates service errors into API responses. Unknown errors
// come back as a generic 500; their details stay in the server log.
func apiError(err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, services.ErrNotFound):
		return apis.NewNotFoundError(err.Error(), nil)
	case errors.Is(err, services.ErrConflict):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)
	case errors.Is(err, services.ErrConfiguration):
		return apis.NewInternalServerError("Service misconfigured", nil)
	default:
		return apis.NewInternalServerError("Something went wrong", err)
	}
}

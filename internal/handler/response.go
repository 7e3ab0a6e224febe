// Package handler contains the echo HTTP handlers.  Every response uses the
// envelope {success, message, data?}.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-booking/internal/amadeus"
	"github.com/iliyamo/flight-booking/internal/apperr"
	"github.com/iliyamo/flight-booking/internal/flight"
	"github.com/iliyamo/flight-booking/internal/logger"
	"github.com/iliyamo/flight-booking/internal/repository"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(c echo.Context, code int, msg string, data any) error {
	return c.JSON(code, Envelope{Success: true, Message: msg, Data: data})
}

func bad(c echo.Context, code int, msg string) error {
	return c.JSON(code, Envelope{Success: false, Message: msg})
}

// respondError maps the error taxonomy onto HTTP status codes.  Messages of
// validation and upstream errors are returned verbatim; storage and unknown
// failures are logged and answered with an opaque 500.
func respondError(c echo.Context, log logger.Logger, err error) error {
	var (
		ve *apperr.ValidationError
		ne *flight.NormalizationError
		ue *amadeus.UpstreamError
	)
	switch {
	case errors.As(err, &ve):
		return bad(c, http.StatusBadRequest, ve.Message)
	case errors.As(err, &ne):
		return bad(c, http.StatusBadRequest, ne.Error())
	case errors.Is(err, repository.ErrBookingNotFound):
		return bad(c, http.StatusNotFound, "Booking not found")
	case errors.Is(err, repository.ErrEmailExists):
		return bad(c, http.StatusConflict, "email already exists")
	case errors.As(err, &ue):
		if ue.ClientFault() {
			return bad(c, http.StatusBadRequest, ue.Error())
		}
		log.Warn("upstream failure", "path", c.Path(), "status", ue.StatusCode, "error", err)
		return bad(c, http.StatusBadGateway, ue.Error())
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to send
		return bad(c, 499, "request cancelled")
	default:
		log.Error("request failed", "path", c.Path(), "error", err)
		return bad(c, http.StatusInternalServerError, "internal error")
	}
}

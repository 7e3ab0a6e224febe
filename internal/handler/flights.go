package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-booking/internal/logger"
	"github.com/iliyamo/flight-booking/internal/model"
	"github.com/iliyamo/flight-booking/internal/search"
	"github.com/iliyamo/flight-booking/internal/service"
)

// FlightSearcher is satisfied by *service.SearchService.
type FlightSearcher interface {
	Search(ctx context.Context, in search.QueryInput) (service.SearchResult, error)
	Offers(ctx context.Context, in search.QueryInput) ([]model.NormalizedFlight, error)
	FlightStatus(ctx context.Context, carrierCode, flightNumber, date string) ([]json.RawMessage, error)
}

// FlightHandler serves the public flight search and status endpoints.
type FlightHandler struct {
	svc FlightSearcher
	log logger.Logger
}

func NewFlightHandler(svc FlightSearcher, log logger.Logger) *FlightHandler {
	return &FlightHandler{svc: svc, log: log}
}

// Search handles GET /api/flights/search.  Responses are served from the
// search cache when an identical query was answered recently.
func (h *FlightHandler) Search(c echo.Context) error {
	in := search.QueryInput{
		Origin:      c.QueryParam("depIata"),
		Destination: c.QueryParam("arrIata"),
		Date:        c.QueryParam("date"),
		Adults:      c.QueryParam("adults"),
		TravelClass: c.QueryParam("travelClass"),
		Max:         c.QueryParam("limit"),
	}
	res, err := h.svc.Search(c.Request().Context(), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "Flights", res)
}

// Offers handles GET /api/amadeus/offers, an uncached passthrough.
func (h *FlightHandler) Offers(c echo.Context) error {
	in := search.QueryInput{
		Origin:      c.QueryParam("origin"),
		Destination: c.QueryParam("destination"),
		Date:        c.QueryParam("date"),
		Adults:      c.QueryParam("adults"),
		TravelClass: c.QueryParam("travelClass"),
		Max:         c.QueryParam("max"),
	}
	offers, err := h.svc.Offers(c.Request().Context(), in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if offers == nil {
		offers = []model.NormalizedFlight{}
	}
	return ok(c, http.StatusOK, "Offers", echo.Map{"offers": offers})
}

// Status handles GET /api/flights/status.
func (h *FlightHandler) Status(c echo.Context) error {
	results, err := h.svc.FlightStatus(c.Request().Context(),
		c.QueryParam("carrierCode"), c.QueryParam("flightNumber"), c.QueryParam("date"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	if results == nil {
		results = []json.RawMessage{}
	}
	return ok(c, http.StatusOK, "Flight status", echo.Map{"results": results})
}

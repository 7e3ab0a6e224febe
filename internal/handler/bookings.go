package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-booking/internal/logger"
	"github.com/iliyamo/flight-booking/internal/middleware"
	"github.com/iliyamo/flight-booking/internal/model"
	"github.com/iliyamo/flight-booking/internal/service"
)

// BookingManager is satisfied by *service.BookingService.
type BookingManager interface {
	Create(ctx context.Context, userID uint64, in service.CreateBookingInput) (model.Booking, error)
	List(ctx context.Context, userID uint64) ([]model.Booking, error)
	Get(ctx context.Context, id, userID uint64) (service.BookingDetail, error)
	Cancel(ctx context.Context, id, userID uint64) (model.Booking, bool, error)
}

// BookingHandler serves the authenticated /api/bookings endpoints.  Every
// operation is scoped to the caller; another user's booking reads as 404.
type BookingHandler struct {
	svc BookingManager
	log logger.Logger
}

func NewBookingHandler(svc BookingManager, log logger.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, log: log}
}

// amount and extraLuggageKg arrive as numbers or numeric strings.
type createBookingReq struct {
	Flight         json.RawMessage   `json:"flight"`
	FlightProvider string            `json:"flightProvider"`
	Passengers     []model.Passenger `json:"passengers"`
	Seats          []string          `json:"seats"`
	CabinClass     string            `json:"cabinClass"`
	Amount         flexNumber        `json:"amount"`
	AddOns         struct {
		ExtraLegroom   bool       `json:"extraLegroom"`
		ExtraLuggageKg flexNumber `json:"extraLuggageKg"`
	} `json:"addOns"`
}

// flexNumber accepts 12, 12.5 and "12.5".
type flexNumber struct {
	n   float64
	set bool
}

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		num = json.Number(s)
	}
	v, err := num.Float64()
	if err != nil {
		// leave unset; validation reports it
		return nil
	}
	f.n, f.set = v, true
	return nil
}

// Create handles POST /api/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, okID := middleware.UserID(c)
	if !okID {
		return bad(c, http.StatusUnauthorized, "unauthenticated")
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return bad(c, http.StatusBadRequest, "invalid body")
	}
	if !req.Amount.set {
		return bad(c, http.StatusBadRequest, "Valid amount required")
	}

	in := service.CreateBookingInput{
		Flight:         req.Flight,
		FlightProvider: model.Provider(req.FlightProvider),
		Passengers:     req.Passengers,
		Seats:          req.Seats,
		CabinClass:     req.CabinClass,
		Amount:         req.Amount.n,
		AddOns: model.AddOns{
			ExtraLegroom:   req.AddOns.ExtraLegroom,
			ExtraLuggageKg: int(req.AddOns.ExtraLuggageKg.n),
		},
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, err := h.svc.Create(ctx, uid, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, http.StatusCreated, "Booking created", echo.Map{"booking": b})
}

// Mine handles GET /api/bookings/me, newest first.
func (h *BookingHandler) Mine(c echo.Context) error {
	uid, okID := middleware.UserID(c)
	if !okID {
		return bad(c, http.StatusUnauthorized, "unauthenticated")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	list, err := h.svc.List(ctx, uid)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "My bookings", echo.Map{"bookings": list})
}

// Get handles GET /api/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, okID := middleware.UserID(c)
	if !okID {
		return bad(c, http.StatusUnauthorized, "unauthenticated")
	}
	id, okParam := bookingID(c)
	if !okParam {
		return bad(c, http.StatusBadRequest, "invalid booking id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	d, err := h.svc.Get(ctx, id, uid)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, http.StatusOK, "Booking details", d)
}

// Cancel handles PATCH /api/bookings/:id/cancel.  Cancelling twice succeeds
// with a different message and leaves the booking untouched.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, okID := middleware.UserID(c)
	if !okID {
		return bad(c, http.StatusUnauthorized, "unauthenticated")
	}
	id, okParam := bookingID(c)
	if !okParam {
		return bad(c, http.StatusBadRequest, "invalid booking id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	b, already, err := h.svc.Cancel(ctx, id, uid)
	if err != nil {
		return respondError(c, h.log, err)
	}
	msg := "Booking cancelled"
	if already {
		msg = "Booking already cancelled"
	}
	return ok(c, http.StatusOK, msg, echo.Map{"booking": b})
}

func bookingID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id != 0
}

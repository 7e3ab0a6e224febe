package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/flight-booking/internal/apperr"
	"github.com/iliyamo/flight-booking/internal/flight"
	"github.com/iliyamo/flight-booking/internal/logger"
	"github.com/iliyamo/flight-booking/internal/metrics"
	"github.com/iliyamo/flight-booking/internal/model"
	"github.com/iliyamo/flight-booking/internal/notify"
	"github.com/iliyamo/flight-booking/internal/repository"
	"github.com/iliyamo/flight-booking/internal/utils"
)

const notifyTimeout = 30 * time.Second

// BookingStore is the persistence the booking service needs;
// *repository.BookingRepo satisfies it.
type BookingStore interface {
	PNRExists(ctx context.Context, pnr string) (bool, error)
	CreateWithTracker(ctx context.Context, b *model.Booking, t *model.FlightStatusTracker) error
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	GetByIDForUser(ctx context.Context, id, userID uint64) (model.Booking, error)
	MarkCancelled(ctx context.Context, id, userID uint64, at time.Time) (bool, error)
}

type TrackerLookup interface {
	GetByBooking(ctx context.Context, bookingID uint64) (model.FlightStatusTracker, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// CreateBookingInput is a booking request after transport decoding.
// Flight is the client's flight selection in either upstream shape.
type CreateBookingInput struct {
	Flight         json.RawMessage
	FlightProvider model.Provider
	Passengers     []model.Passenger
	Seats          []string
	CabinClass     string
	Amount         float64
	AddOns         model.AddOns
}

// BookingDetail is a booking together with its status tracker, if any.
type BookingDetail struct {
	Booking model.Booking              `json:"booking"`
	Tracker *model.FlightStatusTracker `json:"tracker"`
}

// BookingService materializes bookings from normalized flights and owns
// their lifecycle.
type BookingService struct {
	store    BookingStore
	trackers TrackerLookup
	users    UserLookup
	notifier notify.Notifier
	currency string
	metrics  *metrics.Metrics
	log      logger.Logger

	newPNR func() (string, error)
	now    func() time.Time

	pending sync.WaitGroup
}

func NewBookingService(store BookingStore, trackers TrackerLookup, users UserLookup, notifier notify.Notifier,
	currency string, m *metrics.Metrics, log logger.Logger) *BookingService {
	if currency == "" {
		currency = "INR"
	}
	return &BookingService{
		store:    store,
		trackers: trackers,
		users:    users,
		notifier: notifier,
		currency: currency,
		metrics:  m,
		log:      log,
		newPNR:   GeneratePNR,
		now:      time.Now,
	}
}

func validateBooking(in CreateBookingInput) error {
	raw := bytes.TrimSpace(in.Flight)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return apperr.Invalid("Invalid flight selection")
	}
	if len(in.Passengers) == 0 {
		return apperr.Invalid("Passengers required")
	}
	for i, p := range in.Passengers {
		if strings.TrimSpace(p.FullName) == "" {
			return apperr.Invalid("passenger %d: fullName is required", i+1)
		}
		if p.Age < 0 {
			return apperr.Invalid("passenger %d: age must not be negative", i+1)
		}
	}
	// amounts are stored in minor units; anything rounding to zero is invalid
	if utils.ToMinor(in.Amount) <= 0 {
		return apperr.Invalid("Valid amount required")
	}
	if in.AddOns.ExtraLuggageKg < 0 {
		return apperr.Invalid("extraLuggageKg must not be negative")
	}
	return nil
}

// Create validates the request, normalizes the flight and persists the
// booking with its tracker atomically under a fresh PNR.  The confirmation
// email is sent in the background; its failure is only logged.
func (s *BookingService) Create(ctx context.Context, userID uint64, in CreateBookingInput) (model.Booking, error) {
	if err := validateBooking(in); err != nil {
		return model.Booking{}, err
	}
	nf, err := flight.ParseAndNormalize(in.Flight, in.FlightProvider)
	if err != nil {
		var ne *flight.NormalizationError
		if errors.As(err, &ne) {
			return model.Booking{}, &apperr.ValidationError{Message: ne.Error(), Err: err}
		}
		return model.Booking{}, err
	}

	now := s.now().UTC()
	seats := in.Seats
	if seats == nil {
		seats = []string{}
	}
	cabin := strings.TrimSpace(in.CabinClass)
	if cabin == "" {
		cabin = model.DefaultCabinClass
	}
	b := model.Booking{
		UserID:        userID,
		Passengers:    in.Passengers,
		Seats:         seats,
		CabinClass:    cabin,
		Amount:        utils.FromMinor(utils.ToMinor(in.Amount)),
		Currency:      s.currency,
		AddOns:        in.AddOns,
		PaymentStatus: model.PaymentPending,
		BookingStatus: model.BookingConfirmed,
		Flight:        nf,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	status := nf.Status
	if status == "" {
		status = model.UnknownStatus
	}
	payload := nf.Raw
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	tr := model.FlightStatusTracker{
		FlightIata:             nf.TrackingID(),
		ScheduledDepartureDate: nf.ScheduledDate(),
		LastStatus:             status,
		LastPayload:            payload,
		LastCheckedAt:          now,
	}

	if err := s.persist(ctx, &b, &tr); err != nil {
		s.metrics.ErrorsCount.WithLabelValues("create_booking").Inc()
		return model.Booking{}, err
	}
	s.metrics.BookingsCreated.Inc()
	s.log.Info("booking created", "booking_id", b.ID, "pnr", b.PNR, "user_id", userID)

	s.notifyCreated(ctx, b)
	return b, nil
}

func (s *BookingService) persist(ctx context.Context, b *model.Booking, tr *model.FlightStatusTracker) error {
	for attempt := 1; attempt <= MaxPNRAttempts; attempt++ {
		pnr, err := s.newPNR()
		if err != nil {
			return apperr.Persistence("generate pnr", err)
		}
		taken, err := s.store.PNRExists(ctx, pnr)
		if err != nil {
			return apperr.Persistence("check pnr", err)
		}
		if taken {
			continue
		}
		b.PNR = pnr
		err = s.store.CreateWithTracker(ctx, b, tr)
		if errors.Is(err, repository.ErrPNRTaken) {
			s.log.Debug("pnr collided on insert, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return apperr.Persistence("create booking", err)
		}
		return nil
	}
	b.PNR = ""
	return apperr.Persistence("allocate pnr", ErrPNRExhausted)
}

func (s *BookingService) notifyCreated(ctx context.Context, b model.Booking) {
	if s.notifier == nil || s.users == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		u, err := s.users.GetByID(nctx, b.UserID)
		if err != nil || u.Email == "" {
			s.log.Warn("booking notification skipped: no recipient", "booking_id", b.ID, "error", err)
			return
		}
		subject, html, text, err := notify.BookingCreated(b)
		if err != nil {
			s.log.Error("booking notification render failed", "booking_id", b.ID, "error", err)
			return
		}
		if err := s.notifier.Send(nctx, u.Email, subject, html, text); err != nil {
			s.metrics.ErrorsCount.WithLabelValues("notify").Inc()
			s.log.Warn("booking notification failed", "booking_id", b.ID, "error", err)
		}
	}()
}

// Wait blocks until background notifications have finished.
func (s *BookingService) Wait() { s.pending.Wait() }

// List returns the user's bookings, newest first.
func (s *BookingService) List(ctx context.Context, userID uint64) ([]model.Booking, error) {
	out, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence("list bookings", err)
	}
	return out, nil
}

// Get returns one of the user's bookings with its tracker.
func (s *BookingService) Get(ctx context.Context, id, userID uint64) (BookingDetail, error) {
	b, err := s.get(ctx, id, userID)
	if err != nil {
		return BookingDetail{}, err
	}
	d := BookingDetail{Booking: b}
	if s.trackers == nil {
		return d, nil
	}
	t, err := s.trackers.GetByBooking(ctx, b.ID)
	switch {
	case err == nil:
		d.Tracker = &t
	case errors.Is(err, repository.ErrTrackerNotFound):
	default:
		s.log.Warn("tracker lookup failed", "booking_id", b.ID, "error", err)
	}
	return d, nil
}

func (s *BookingService) get(ctx context.Context, id, userID uint64) (model.Booking, error) {
	b, err := s.store.GetByIDForUser(ctx, id, userID)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return model.Booking{}, err
	}
	if err != nil {
		return model.Booking{}, apperr.Persistence("get booking", err)
	}
	return b, nil
}

// Cancel moves the booking to cancelled.  Cancelling a cancelled booking
// succeeds without changes; already reports that case.
func (s *BookingService) Cancel(ctx context.Context, id, userID uint64) (b model.Booking, already bool, err error) {
	b, err = s.get(ctx, id, userID)
	if err != nil {
		return model.Booking{}, false, err
	}
	if b.IsCancelled() {
		return b, true, nil
	}
	now := s.now().UTC()
	changed, err := s.store.MarkCancelled(ctx, id, userID, now)
	if err != nil {
		return model.Booking{}, false, apperr.Persistence("cancel booking", err)
	}
	if !changed {
		// cancelled concurrently
		b, err = s.get(ctx, id, userID)
		if err != nil {
			return model.Booking{}, false, err
		}
		return b, true, nil
	}
	b.BookingStatus = model.BookingCancelled
	b.UpdatedAt = now
	s.metrics.BookingsCancelled.Inc()
	s.log.Info("booking cancelled", "booking_id", id, "user_id", userID)
	return b, false, nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/flight-booking/internal/model"
	"github.com/iliyamo/flight-booking/internal/utils"
)

// BookingRepo persists bookings together with their status trackers.
// Passengers, seats and the normalized flight are stored as JSON columns;
// amounts are stored in minor units.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, pnr, passengers, seats, cabin_class, amount_minor, currency,
    extra_legroom, extra_luggage_kg, payment_status, booking_status, flight, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (model.Booking, error) {
	var (
		b                         model.Booking
		passengers, seats, flight []byte
		amountMinor               int64
	)
	err := s.Scan(&b.ID, &b.UserID, &b.PNR, &passengers, &seats, &b.CabinClass, &amountMinor, &b.Currency,
		&b.AddOns.ExtraLegroom, &b.AddOns.ExtraLuggageKg, &b.PaymentStatus, &b.BookingStatus, &flight,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	if err := json.Unmarshal(passengers, &b.Passengers); err != nil {
		return model.Booking{}, fmt.Errorf("decode passengers of booking %d: %w", b.ID, err)
	}
	if len(seats) > 0 {
		if err := json.Unmarshal(seats, &b.Seats); err != nil {
			return model.Booking{}, fmt.Errorf("decode seats of booking %d: %w", b.ID, err)
		}
	}
	if b.Seats == nil {
		b.Seats = []string{}
	}
	if err := json.Unmarshal(flight, &b.Flight); err != nil {
		return model.Booking{}, fmt.Errorf("decode flight of booking %d: %w", b.ID, err)
	}
	b.Amount = utils.FromMinor(amountMinor)
	return b, nil
}

// PNRExists reports whether a booking already uses pnr.
func (r *BookingRepo) PNRExists(ctx context.Context, pnr string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE pnr = ? LIMIT 1`, pnr).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateWithTracker inserts the booking and its tracker in one transaction,
// so a booking never exists without a tracker.  On success b.ID, t.ID and
// t.BookingID are populated.  A PNR collision returns ErrPNRTaken and
// leaves nothing behind.
func (r *BookingRepo) CreateWithTracker(ctx context.Context, b *model.Booking, t *model.FlightStatusTracker) error {
	passengers, err := json.Marshal(b.Passengers)
	if err != nil {
		return fmt.Errorf("encode passengers: %w", err)
	}
	seats := b.Seats
	if seats == nil {
		seats = []string{}
	}
	seatsJSON, err := json.Marshal(seats)
	if err != nil {
		return fmt.Errorf("encode seats: %w", err)
	}
	flight, err := json.Marshal(b.Flight)
	if err != nil {
		return fmt.Errorf("encode flight: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const insBooking = `INSERT INTO bookings (user_id, pnr, passengers, seats, cabin_class, amount_minor, currency,
    extra_legroom, extra_luggage_kg, payment_status, booking_status, flight, created_at, updated_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, insBooking,
		b.UserID, b.PNR, passengers, seatsJSON, b.CabinClass, utils.ToMinor(b.Amount), b.Currency,
		b.AddOns.ExtraLegroom, b.AddOns.ExtraLuggageKg, b.PaymentStatus, b.BookingStatus, flight,
		b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrPNRTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	t.BookingID = b.ID

	var schedDate any
	if t.ScheduledDepartureDate != "" {
		schedDate = t.ScheduledDepartureDate
	}
	var payload any
	if len(t.LastPayload) > 0 {
		payload = []byte(t.LastPayload)
	}
	const insTracker = `INSERT INTO flight_status_trackers (booking_id, flight_iata, scheduled_departure_date,
    last_status, last_payload, last_checked_at) VALUES (?, ?, ?, ?, ?, ?)`
	res, err = tx.ExecContext(ctx, insTracker,
		t.BookingID, t.FlightIata, schedDate, t.LastStatus, payload, t.LastCheckedAt)
	if err != nil {
		return fmt.Errorf("insert tracker: %w", err)
	}
	tid, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(tid)

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetByIDForUser loads a booking owned by userID.  Bookings of other users
// are reported as ErrBookingNotFound.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? AND user_id = ? LIMIT 1`, id, userID)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, err
}

// MarkCancelled moves a confirmed booking to cancelled.  It returns false
// when no row changed, i.e. the booking was already cancelled or is not
// owned by userID.
func (r *BookingRepo) MarkCancelled(ctx context.Context, id, userID uint64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET booking_status = ?, updated_at = ? WHERE id = ? AND user_id = ? AND booking_status <> ?`,
		model.BookingCancelled, at, id, userID, model.BookingCancelled)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

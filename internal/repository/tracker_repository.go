package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/flight-booking/internal/model"
)

// TrackerRepo reads and updates flight status trackers.  Trackers are
// created together with their booking by BookingRepo.CreateWithTracker.
type TrackerRepo struct {
	db *sql.DB
}

func NewTrackerRepo(db *sql.DB) *TrackerRepo { return &TrackerRepo{db: db} }

const trackerColumns = `id, booking_id, flight_iata, scheduled_departure_date, last_status, last_payload, last_checked_at`

func scanTracker(s rowScanner) (model.FlightStatusTracker, error) {
	var (
		t       model.FlightStatusTracker
		date    sql.NullTime
		payload []byte
	)
	if err := s.Scan(&t.ID, &t.BookingID, &t.FlightIata, &date, &t.LastStatus, &payload, &t.LastCheckedAt); err != nil {
		return model.FlightStatusTracker{}, err
	}
	if date.Valid {
		t.ScheduledDepartureDate = date.Time.Format(time.DateOnly)
	}
	if len(payload) > 0 {
		t.LastPayload = json.RawMessage(payload)
	}
	return t, nil
}

// ListDue returns up to limit trackers, least recently checked first.
func (r *TrackerRepo) ListDue(ctx context.Context, limit int) ([]model.FlightStatusTracker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+trackerColumns+` FROM flight_status_trackers ORDER BY last_checked_at ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FlightStatusTracker
	for rows.Next() {
		t, err := scanTracker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetByBooking returns the tracker attached to a booking.
func (r *TrackerRepo) GetByBooking(ctx context.Context, bookingID uint64) (model.FlightStatusTracker, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+trackerColumns+` FROM flight_status_trackers WHERE booking_id = ? LIMIT 1`, bookingID)
	t, err := scanTracker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FlightStatusTracker{}, ErrTrackerNotFound
	}
	return t, err
}

// UpdateStatus records the outcome of one status lookup.
func (r *TrackerRepo) UpdateStatus(ctx context.Context, id uint64, status string, payload json.RawMessage, checkedAt time.Time) error {
	var p any
	if len(payload) > 0 {
		p = []byte(payload)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE flight_status_trackers SET last_status = ?, last_payload = ?, last_checked_at = ? WHERE id = ?`,
		status, p, checkedAt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTrackerNotFound
	}
	return nil
}

// Touch moves a tracker to the back of the refresh queue, leaving its status
// and payload as they were.
func (r *TrackerRepo) Touch(ctx context.Context, id uint64, checkedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE flight_status_trackers SET last_checked_at = ? WHERE id = ?`, checkedAt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTrackerNotFound
	}
	return nil
}

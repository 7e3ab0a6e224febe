// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrBookingNotFound is returned when a booking does not exist or is
// owned by someone else.  Handlers translate this into a 404; ownership
// is never revealed.
var ErrBookingNotFound = errors.New("booking not found")

// ErrPNRTaken is returned when the unique index on bookings.pnr rejects
// an insert.  The booking service retries with a fresh PNR.
var ErrPNRTaken = errors.New("pnr already in use")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrTrackerNotFound is returned when a booking has no status tracker.
var ErrTrackerNotFound = errors.New("tracker not found")

// isDuplicateKey reports whether err is MySQL error 1062 (ER_DUP_ENTRY).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

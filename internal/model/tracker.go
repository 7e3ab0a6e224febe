package model

import (
	"encoding/json"
	"time"
)

// UnknownStatus seeds trackers whose flight carried no status.
const UnknownStatus = "unknown"

// FlightStatusTracker drives periodic status polling for a booking's flight.
// One tracker is created with each booking and afterwards only the status
// refresh job writes to it.
//
// Fields:
//
//	ID                     – flight_status_trackers.id
//	BookingID              – booking the tracker belongs to.
//	FlightIata             – designator parsed by the job (e.g. AI202).
//	ScheduledDepartureDate – YYYY-MM-DD used for the schedule lookup; empty
//	                         for rows created before the column existed.
//	LastStatus             – summary of the last upstream answer.
//	LastPayload            – last raw upstream payload.
//	LastCheckedAt          – when the tracker was last written.
type FlightStatusTracker struct {
	ID                     uint64          `json:"id"`
	BookingID              uint64          `json:"bookingId"`
	FlightIata             string          `json:"flightIata"`
	ScheduledDepartureDate string          `json:"scheduledDepartureDate,omitempty"`
	LastStatus             string          `json:"lastStatus"`
	LastPayload            json.RawMessage `json:"lastPayload,omitempty"`
	LastCheckedAt          time.Time       `json:"lastCheckedAt"`
}

package model

import "time"

// Payment states of a booking.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// Booking states.  The only transition is confirmed → cancelled.
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// DefaultCabinClass is used when a booking request omits the cabin.
const DefaultCabinClass = "economy"

// Passenger is one traveller on a booking.
type Passenger struct {
	FullName string `json:"fullName"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
}

// AddOns are the optional extras purchased with a booking.
type AddOns struct {
	ExtraLegroom   bool `json:"extraLegroom"`
	ExtraLuggageKg int  `json:"extraLuggageKg"`
}

// Booking is a user's reservation on a single normalized flight.  The flight
// is embedded (denormalized) so the booking stays readable even when the
// upstream offer is gone.
//
// Fields:
//
//	ID            – bookings.id
//	UserID        – owner; bookings are only visible to this user.
//	PNR           – unique six character record locator.
//	Passengers    – at least one passenger.
//	Seats         – selected seat labels, possibly empty.
//	Amount        – major currency units; persisted as minor units.
//	PaymentStatus – pending, paid or failed.
//	BookingStatus – confirmed or cancelled.
type Booking struct {
	ID            uint64           `json:"id"`
	UserID        uint64           `json:"userId"`
	PNR           string           `json:"pnr"`
	Passengers    []Passenger      `json:"passengers"`
	Seats         []string         `json:"seats"`
	CabinClass    string           `json:"cabinClass"`
	Amount        float64          `json:"amount"`
	Currency      string           `json:"currency"`
	AddOns        AddOns           `json:"addOns"`
	PaymentStatus string           `json:"paymentStatus"`
	BookingStatus string           `json:"bookingStatus"`
	Flight        NormalizedFlight `json:"flight"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// IsCancelled reports whether the booking has already been cancelled.
func (b *Booking) IsCancelled() bool { return b.BookingStatus == BookingCancelled }

package model

import (
	"encoding/json"
	"time"
)

// Provider tags the upstream shape a NormalizedFlight was built from.
type Provider string

const (
	ProviderLegacy       Provider = "legacy"
	ProviderAmadeusOffer Provider = "amadeus-offer"
)

// OfferStatus is the fixed status carried by records built from Amadeus
// offers.  Offers are price quotes, not live flight states.
const OfferStatus = "offer"

// OfferPrice is the quoted fare of an Amadeus offer.  Totals are kept as the
// decimal strings the upstream returns.
type OfferPrice struct {
	Currency string `json:"currency,omitempty"`
	Total    string `json:"total,omitempty"`
	Base     string `json:"base,omitempty"`
}

// NormalizedFlight is the canonical flight record shared by search results,
// bookings and status trackers.
//
// Fields:
//
//	Provider       – which upstream shape produced the record.
//	FlightIata     – carrier code + number (e.g. AI202).
//	FlightIcao     – ICAO flight designator when the legacy shape carried one.
//	FlightNumber   – numeric part of the flight designator.
//	AirlineName    – carrier name, or the carrier code when no name is known.
//	AirlineIata    – two/three character carrier code.
//	DepIata/ArrIata – route endpoints; both are required.
//	DepScheduled/ArrScheduled – scheduled local timestamps as sent upstream.
//	Status         – upstream status tag, "offer" for Amadeus offers.
//	OfferID/Price  – set for Amadeus offers only.
//	Raw            – the original upstream payload, untouched.
type NormalizedFlight struct {
	Provider     Provider        `json:"provider"`
	FlightIata   string          `json:"flightIata,omitempty"`
	FlightIcao   string          `json:"flightIcao,omitempty"`
	FlightNumber string          `json:"flightNumber,omitempty"`
	AirlineName  string          `json:"airlineName,omitempty"`
	AirlineIata  string          `json:"airlineIata,omitempty"`
	DepIata      string          `json:"depIata"`
	ArrIata      string          `json:"arrIata"`
	DepAirport   string          `json:"depAirport,omitempty"`
	ArrAirport   string          `json:"arrAirport,omitempty"`
	DepScheduled string          `json:"depScheduled,omitempty"`
	ArrScheduled string          `json:"arrScheduled,omitempty"`
	Status       string          `json:"status,omitempty"`
	OfferID      string          `json:"offerId,omitempty"`
	Price        *OfferPrice     `json:"price,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

// TrackingID returns the identifier the status job polls with: the IATA
// flight designator, else the bare flight number.
func (f NormalizedFlight) TrackingID() string {
	if f.FlightIata != "" {
		return f.FlightIata
	}
	return f.FlightNumber
}

// ScheduledDate returns the YYYY-MM-DD part of DepScheduled, or "" when the
// departure timestamp is missing or does not start with a calendar date.
func (f NormalizedFlight) ScheduledDate() string {
	if len(f.DepScheduled) < 10 {
		return ""
	}
	d := f.DepScheduled[:10]
	if _, err := time.Parse(time.DateOnly, d); err != nil {
		return ""
	}
	return d
}

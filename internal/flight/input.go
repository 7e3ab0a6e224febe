// Package flight turns provider specific flight payloads into
// model.NormalizedFlight.  Payloads are classified once at ingestion into a
// closed set of variants; extraction is then a switch over those variants.
package flight

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/flight-booking/internal/amadeus"
	"github.com/iliyamo/flight-booking/internal/model"
)

// NormalizationError means a payload cannot be reconciled into a valid
// NormalizedFlight.  Callers must reject the request; there is no partial
// record.
type NormalizationError struct {
	Provider model.Provider
	Reason   string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("invalid flight data (%s)", e.Reason)
}

func fail(p model.Provider, format string, args ...any) error {
	return &NormalizationError{Provider: p, Reason: fmt.Sprintf(format, args...)}
}

// Input is one of LegacyFlight or AmadeusOffer.
type Input interface {
	Provider() model.Provider
}

// LegacyFlight is the status-feed shape: nested flight, airline, departure
// and arrival records.
type LegacyFlight struct {
	Flight struct {
		Iata   string             `json:"iata"`
		Icao   string             `json:"icao"`
		Number amadeus.FlexString `json:"number"`
	} `json:"flight"`
	Airline struct {
		Name string `json:"name"`
		Iata string `json:"iata"`
	} `json:"airline"`
	Departure    legacyPoint     `json:"departure"`
	Arrival      legacyPoint     `json:"arrival"`
	FlightStatus string          `json:"flight_status"`
	Status       string          `json:"status"`
	RawPayload   json.RawMessage `json:"raw"`

	payload json.RawMessage
}

type legacyPoint struct {
	Iata      string `json:"iata"`
	Airport   string `json:"airport"`
	Scheduled string `json:"scheduled"`
}

func (LegacyFlight) Provider() model.Provider { return model.ProviderLegacy }

// Overrides are caller supplied values that take precedence over anything
// read from the offer itself.
type Overrides struct {
	DepIata      string
	ArrIata      string
	AirlineIata  string
	FlightIata   string
	FlightNumber string
	DepScheduled string
	ArrScheduled string
}

// AmadeusOffer is a raw offer plus the overrides of the wrapper it arrived
// in, if any.
type AmadeusOffer struct {
	Offer     amadeus.Offer
	Overrides Overrides
}

func (AmadeusOffer) Provider() model.Provider { return model.ProviderAmadeusOffer }

// FromOffer wraps an offer fetched from the search endpoint.
func FromOffer(o amadeus.Offer) AmadeusOffer {
	return AmadeusOffer{Offer: o}
}

// wrapper is what the frontend posts for an Amadeus selection: the raw offer
// under rawOffer plus display fields it derived from it.
type wrapper struct {
	RawOffer  json.RawMessage `json:"rawOffer"`
	Departure *struct {
		Iata      string `json:"iata"`
		Scheduled string `json:"scheduled"`
	} `json:"departure"`
	Arrival *struct {
		Iata      string `json:"iata"`
		Scheduled string `json:"scheduled"`
	} `json:"arrival"`
	Airline *struct {
		Iata string `json:"iata"`
	} `json:"airline"`
	Flight *struct {
		Iata   string             `json:"iata"`
		Number amadeus.FlexString `json:"number"`
	} `json:"flight"`
	DepIata      string `json:"depIata"`
	ArrIata      string `json:"arrIata"`
	FlightIata   string `json:"flightIata"`
	DepScheduled string `json:"depScheduled"`
	ArrScheduled string `json:"arrScheduled"`
}

// Parse classifies raw into an Input.  declared may name the shape
// explicitly; when empty the shape is detected: a rawOffer or itineraries
// key means an Amadeus offer, otherwise nested flight, departure or arrival
// records mean the legacy shape, and anything else is read as an offer.
func Parse(raw json.RawMessage, declared model.Provider) (Input, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fail(declared, "flight is required")
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fail(declared, "flight must be an object")
	}

	provider := declared
	if provider == "" {
		provider = detect(probe)
	}
	switch provider {
	case model.ProviderLegacy:
		return parseLegacy(trimmed)
	case model.ProviderAmadeusOffer:
		return parseAmadeus(trimmed, probe)
	default:
		return nil, fail(provider, "unknown provider %q", provider)
	}
}

func detect(probe map[string]json.RawMessage) model.Provider {
	if present(probe, "rawOffer") || present(probe, "itineraries") {
		return model.ProviderAmadeusOffer
	}
	if present(probe, "flight") || present(probe, "departure") || present(probe, "arrival") {
		return model.ProviderLegacy
	}
	return model.ProviderAmadeusOffer
}

func present(probe map[string]json.RawMessage, key string) bool {
	v, ok := probe[key]
	return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func parseLegacy(raw []byte) (Input, error) {
	var lf LegacyFlight
	if err := json.Unmarshal(raw, &lf); err != nil {
		return nil, fail(model.ProviderLegacy, "malformed flight record: %v", err)
	}
	lf.payload = append(json.RawMessage(nil), raw...)
	return lf, nil
}

func parseAmadeus(raw []byte, probe map[string]json.RawMessage) (Input, error) {
	var w wrapper
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fail(model.ProviderAmadeusOffer, "malformed offer wrapper: %v", err)
	}
	offerBytes := json.RawMessage(raw)
	if present(probe, "rawOffer") {
		offerBytes = w.RawOffer
	}
	offer, err := amadeus.DecodeOffer(offerBytes)
	if err != nil {
		return nil, fail(model.ProviderAmadeusOffer, "malformed offer: %v", err)
	}

	var ov Overrides
	if w.Departure != nil {
		ov.DepIata = w.Departure.Iata
		ov.DepScheduled = w.Departure.Scheduled
	}
	if w.Arrival != nil {
		ov.ArrIata = w.Arrival.Iata
		ov.ArrScheduled = w.Arrival.Scheduled
	}
	if w.Airline != nil {
		ov.AirlineIata = w.Airline.Iata
	}
	if w.Flight != nil {
		ov.FlightIata = w.Flight.Iata
		ov.FlightNumber = w.Flight.Number.String()
	}
	ov.DepIata = firstNonEmpty(ov.DepIata, w.DepIata)
	ov.ArrIata = firstNonEmpty(ov.ArrIata, w.ArrIata)
	ov.FlightIata = firstNonEmpty(ov.FlightIata, w.FlightIata)
	ov.DepScheduled = firstNonEmpty(ov.DepScheduled, w.DepScheduled)
	ov.ArrScheduled = firstNonEmpty(ov.ArrScheduled, w.ArrScheduled)

	return AmadeusOffer{Offer: offer, Overrides: ov}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

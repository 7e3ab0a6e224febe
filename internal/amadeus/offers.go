package amadeus

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
)

const (
	OffersPath   = "/v2/shopping/flight-offers"
	SchedulePath = "/v2/schedule/flights"
)

// FlexString accepts a JSON string or number.  Flight numbers arrive both
// ways depending on who built the payload.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// Endpoint is one end of a segment.  Offers use iataCode; client-built
// payloads sometimes use iata.
type Endpoint struct {
	IataCode string `json:"iataCode,omitempty"`
	Iata     string `json:"iata,omitempty"`
	Terminal string `json:"terminal,omitempty"`
	At       string `json:"at,omitempty"`
}

// Code returns the airport code under whichever key was set.
func (e Endpoint) Code() string {
	if e.IataCode != "" {
		return e.IataCode
	}
	return e.Iata
}

type Segment struct {
	ID          string     `json:"id,omitempty"`
	Departure   Endpoint   `json:"departure"`
	Arrival     Endpoint   `json:"arrival"`
	CarrierCode string     `json:"carrierCode,omitempty"`
	Number      FlexString `json:"number,omitempty"`
	Duration    string     `json:"duration,omitempty"`
}

type Itinerary struct {
	Duration string    `json:"duration,omitempty"`
	Segments []Segment `json:"segments"`
}

type Price struct {
	Currency string `json:"currency,omitempty"`
	Total    string `json:"total,omitempty"`
	Base     string `json:"base,omitempty"`
}

// Offer is a flight-offers-search result.  Raw keeps the untouched upstream
// object for persistence.
type Offer struct {
	ID                     string          `json:"id"`
	Source                 string          `json:"source,omitempty"`
	OneWay                 bool            `json:"oneWay,omitempty"`
	LastTicketingDate      string          `json:"lastTicketingDate,omitempty"`
	Price                  Price           `json:"price"`
	ValidatingAirlineCodes []string        `json:"validatingAirlineCodes,omitempty"`
	Itineraries            []Itinerary     `json:"itineraries"`
	TravelerPricings       json.RawMessage `json:"travelerPricings,omitempty"`
	Raw                    json.RawMessage `json:"-"`
}

// DecodeOffer parses a single offer object and keeps its bytes as Raw.
func DecodeOffer(raw json.RawMessage) (Offer, error) {
	var o Offer
	if err := json.Unmarshal(raw, &o); err != nil {
		return Offer{}, err
	}
	o.Raw = append(json.RawMessage(nil), raw...)
	return o, nil
}

// SearchOffers calls the flight-offers search.  params are the upstream
// query parameters (originLocationCode, destinationLocationCode,
// departureDate, adults, travelClass, currencyCode, max).
func (c *Client) SearchOffers(ctx context.Context, params url.Values) ([]Offer, error) {
	body, err := c.Get(ctx, OffersPath, params)
	if err != nil {
		return nil, err
	}
	var env struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &UpstreamError{Detail: "amadeus returned an unreadable offer list", Err: err}
	}
	offers := make([]Offer, 0, len(env.Data))
	for _, raw := range env.Data {
		o, err := DecodeOffer(raw)
		if err != nil {
			c.log.Warn("skipping malformed offer", "error", err)
			continue
		}
		offers = append(offers, o)
	}
	return offers, nil
}

// Schedule is the answer of the schedule/status endpoint.
type Schedule struct {
	Data []json.RawMessage `json:"data"`
	Raw  json.RawMessage   `json:"-"`
}

// StatusSummary returns the first departure timing qualifier of the first
// flight point of the first record, or "updated" when the payload has none.
func (s *Schedule) StatusSummary() string {
	if s == nil || len(s.Data) == 0 {
		return "updated"
	}
	var rec struct {
		FlightPoints []struct {
			Departure struct {
				Timings []struct {
					Qualifier string `json:"qualifier"`
				} `json:"timings"`
			} `json:"departure"`
		} `json:"flightPoints"`
	}
	if err := json.Unmarshal(s.Data[0], &rec); err != nil {
		return "updated"
	}
	if len(rec.FlightPoints) == 0 || len(rec.FlightPoints[0].Departure.Timings) == 0 {
		return "updated"
	}
	if q := rec.FlightPoints[0].Departure.Timings[0].Qualifier; q != "" {
		return q
	}
	return "updated"
}

// ScheduleFlights looks up a flight's schedule and status for one date.
func (c *Client) ScheduleFlights(ctx context.Context, carrierCode, flightNumber, date string) (*Schedule, error) {
	params := url.Values{}
	params.Set("carrierCode", strings.ToUpper(carrierCode))
	params.Set("flightNumber", flightNumber)
	params.Set("scheduledDepartureDate", date)

	body, err := c.Get(ctx, SchedulePath, params)
	if err != nil {
		return nil, err
	}
	var s Schedule
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, &UpstreamError{Detail: "amadeus returned an unreadable schedule", Err: err}
	}
	s.Raw = append(json.RawMessage(nil), body...)
	if s.Data == nil {
		s.Data = []json.RawMessage{}
	}
	return &s, nil
}

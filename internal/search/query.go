// Package search implements the cached flight-offer search path: query
// canonicalization, fingerprinting and the TTL result store.
package search

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/flight-booking/internal/apperr"
)

const (
	// MaxResults caps the number of offers requested upstream.
	MaxResults = 50
	// DefaultResults is used when the caller does not ask for a count.
	DefaultResults     = 20
	DefaultTravelClass = "ECONOMY"
)

var iataPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Query is a validated, immutable offer search.
type Query struct {
	Origin      string
	Destination string
	Date        string // YYYY-MM-DD
	Adults      int
	TravelClass string
	Max         int
	Currency    string
}

// QueryInput carries raw request values before validation.
type QueryInput struct {
	Origin      string
	Destination string
	Date        string
	Adults      string
	TravelClass string
	Max         string
	Currency    string
}

// NewQuery validates in and applies defaults: one adult, ECONOMY and twenty
// results.  Codes are upper-cased, the date is truncated to its first ten
// characters and the result count is capped at MaxResults.
func NewQuery(in QueryInput) (Query, error) {
	q := Query{
		Origin:      strings.ToUpper(strings.TrimSpace(in.Origin)),
		Destination: strings.ToUpper(strings.TrimSpace(in.Destination)),
		TravelClass: strings.ToUpper(strings.TrimSpace(in.TravelClass)),
		Currency:    strings.ToUpper(strings.TrimSpace(in.Currency)),
		Adults:      1,
		Max:         DefaultResults,
	}
	if q.Origin == "" || q.Destination == "" {
		return Query{}, apperr.Invalid("origin and destination are required")
	}
	if !iataPattern.MatchString(q.Origin) || !iataPattern.MatchString(q.Destination) {
		return Query{}, apperr.Invalid("origin and destination must be 3-letter IATA codes")
	}

	date := strings.TrimSpace(in.Date)
	if date == "" {
		return Query{}, apperr.Invalid("date is required (YYYY-MM-DD)")
	}
	if len(date) > 10 {
		date = date[:10]
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return Query{}, apperr.Invalid("date must be YYYY-MM-DD")
	}
	q.Date = date

	if s := strings.TrimSpace(in.Adults); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Query{}, apperr.Invalid("adults must be >= 1")
		}
		q.Adults = n
	}
	if s := strings.TrimSpace(in.Max); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Query{}, apperr.Invalid("max must be a positive number")
		}
		q.Max = n
	}
	if q.Max > MaxResults {
		q.Max = MaxResults
	}
	if q.TravelClass == "" {
		q.TravelClass = DefaultTravelClass
	}
	if q.Currency == "" {
		q.Currency = "INR"
	}
	return q, nil
}

// Params returns the upstream parameter record.  It is both the request
// parameter set and the input to Fingerprint.
func (q Query) Params() map[string]any {
	return map[string]any{
		"originLocationCode":      q.Origin,
		"destinationLocationCode": q.Destination,
		"departureDate":           q.Date,
		"adults":                  q.Adults,
		"travelClass":             q.TravelClass,
		"currencyCode":            q.Currency,
		"max":                     q.Max,
	}
}

// Values encodes the query for the offer search endpoint.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("originLocationCode", q.Origin)
	v.Set("destinationLocationCode", q.Destination)
	v.Set("departureDate", q.Date)
	v.Set("adults", strconv.Itoa(q.Adults))
	v.Set("travelClass", q.TravelClass)
	v.Set("currencyCode", q.Currency)
	v.Set("max", strconv.Itoa(q.Max))
	return v
}

// Fingerprint is the cache key of the query.
func (q Query) Fingerprint() string {
	return Fingerprint(q.Params())
}

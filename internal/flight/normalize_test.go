package flight

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-booking/internal/model"
)

const legacyFixture = `{
	"flight": {"iata": "AI202", "number": "202"},
	"airline": {"iata": "AI", "name": "Air India"},
	"departure": {"iata": "MAA", "scheduled": "2026-02-11T10:00:00"},
	"arrival": {"iata": "DEL", "scheduled": "2026-02-11T12:30:00"},
	"flight_status": "scheduled"
}`

// MAA -> BOM -> DEL on two segments of the same itinerary.
const twoSegmentOffer = `{
	"id": "7",
	"source": "GDS",
	"price": {"currency": "INR", "total": "10432.00", "base": "8600.00"},
	"validatingAirlineCodes": ["6E"],
	"itineraries": [{
		"duration": "PT6H",
		"segments": [
			{"departure": {"iataCode": "MAA", "at": "2026-02-11T06:00:00"},
			 "arrival": {"iataCode": "BOM", "at": "2026-02-11T08:00:00"},
			 "carrierCode": "6E", "number": "5312"},
			{"departure": {"iataCode": "BOM", "at": "2026-02-11T09:30:00"},
			 "arrival": {"iataCode": "DEL", "at": "2026-02-11T11:45:00"},
			 "carrierCode": "6E", "number": "2041"}
		]
	}]
}`

func normalizeString(t *testing.T, raw string, declared model.Provider) (model.NormalizedFlight, error) {
	t.Helper()
	return ParseAndNormalize(json.RawMessage(raw), declared)
}

func requireNormalizationError(t *testing.T, err error) *NormalizationError {
	t.Helper()
	var ne *NormalizationError
	require.Error(t, err)
	require.True(t, errors.As(err, &ne), "expected NormalizationError, got %T: %v", err, err)
	return ne
}

func TestNormalize_LegacyShape(t *testing.T) {
	nf, err := normalizeString(t, legacyFixture, "")
	require.NoError(t, err)

	assert.Equal(t, model.ProviderLegacy, nf.Provider)
	assert.Equal(t, "MAA", nf.DepIata)
	assert.Equal(t, "DEL", nf.ArrIata)
	assert.Equal(t, "AI202", nf.FlightIata)
	assert.Equal(t, "202", nf.FlightNumber)
	assert.Equal(t, "Air India", nf.AirlineName)
	assert.Equal(t, "AI", nf.AirlineIata)
	assert.Equal(t, "scheduled", nf.Status)
	assert.Equal(t, "2026-02-11T10:00:00", nf.DepScheduled)
	assert.Equal(t, "2026-02-11T12:30:00", nf.ArrScheduled)
	assert.JSONEq(t, legacyFixture, string(nf.Raw))
}

func TestNormalize_LegacyStatusFallbackAndRaw(t *testing.T) {
	raw := `{
		"flight": {"iata": "UK811", "icao": "VTI811", "number": 811},
		"departure": {"iata": "BLR", "airport": "Kempegowda"},
		"arrival": {"iata": "BOM", "airport": "Chhatrapati Shivaji"},
		"status": "active",
		"raw": {"source": "feed"}
	}`
	nf, err := normalizeString(t, raw, "")
	require.NoError(t, err)

	assert.Equal(t, "active", nf.Status)
	assert.Equal(t, "811", nf.FlightNumber)
	assert.Equal(t, "VTI811", nf.FlightIcao)
	assert.Equal(t, "Kempegowda", nf.DepAirport)
	assert.JSONEq(t, `{"source":"feed"}`, string(nf.Raw))
}

func TestNormalize_LegacyMissingArrival(t *testing.T) {
	raw := `{"flight": {"iata": "AI202"}, "departure": {"iata": "MAA"}}`
	_, err := normalizeString(t, raw, "")
	ne := requireNormalizationError(t, err)
	assert.Equal(t, model.ProviderLegacy, ne.Provider)
	assert.Equal(t, "invalid flight data (missing route)", ne.Error())
}

func TestNormalize_LegacyMalformedSubRecord(t *testing.T) {
	raw := `{"flight": "AI202", "departure": {"iata": "MAA"}, "arrival": {"iata": "DEL"}}`
	_, err := normalizeString(t, raw, "")
	requireNormalizationError(t, err)
}

func TestNormalize_AmadeusTwoSegmentsUsesRouteEndpoints(t *testing.T) {
	nf, err := normalizeString(t, twoSegmentOffer, "")
	require.NoError(t, err)

	assert.Equal(t, model.ProviderAmadeusOffer, nf.Provider)
	assert.Equal(t, "MAA", nf.DepIata)
	assert.Equal(t, "DEL", nf.ArrIata, "arrival must come from the last segment")
	assert.NotEqual(t, "BOM", nf.ArrIata)
	assert.Equal(t, "2026-02-11T06:00:00", nf.DepScheduled)
	assert.Equal(t, "2026-02-11T11:45:00", nf.ArrScheduled)
	assert.Equal(t, "6E5312", nf.FlightIata)
	assert.Equal(t, "5312", nf.FlightNumber)
	assert.Equal(t, "6E", nf.AirlineIata)
	assert.Equal(t, model.OfferStatus, nf.Status)
	assert.Equal(t, "7", nf.OfferID)
	require.NotNil(t, nf.Price)
	assert.Equal(t, "10432.00", nf.Price.Total)
	assert.JSONEq(t, twoSegmentOffer, string(nf.Raw))
}

func TestNormalize_AmadeusEmptyItinerariesFails(t *testing.T) {
	_, err := normalizeString(t, `{"id": "1", "itineraries": []}`, "")
	ne := requireNormalizationError(t, err)
	assert.Equal(t, model.ProviderAmadeusOffer, ne.Provider)
}

func TestNormalize_AmadeusEmptySegmentsFails(t *testing.T) {
	_, err := normalizeString(t, `{"itineraries": [{"segments": []}]}`, "")
	requireNormalizationError(t, err)
}

func TestNormalize_AmadeusMalformedItineraries(t *testing.T) {
	_, err := normalizeString(t, `{"itineraries": "MAA-DEL"}`, "")
	requireNormalizationError(t, err)
}

func TestNormalize_AmadeusWrapperOverrides(t *testing.T) {
	raw := `{
		"rawOffer": ` + twoSegmentOffer + `,
		"depIata": "MAA",
		"arrIata": "IXC",
		"airline": {"iata": "AI"},
		"flightIata": "AI999",
		"depScheduled": "2026-02-12T07:00:00"
	}`
	nf, err := normalizeString(t, raw, "")
	require.NoError(t, err)

	assert.Equal(t, "IXC", nf.ArrIata)
	assert.Equal(t, "AI", nf.AirlineIata)
	assert.Equal(t, "AI999", nf.FlightIata)
	assert.Equal(t, "2026-02-12T07:00:00", nf.DepScheduled)
	assert.Equal(t, "2026-02-11T11:45:00", nf.ArrScheduled)
	assert.JSONEq(t, twoSegmentOffer, string(nf.Raw), "raw keeps the offer, not the wrapper")
}

func TestNormalize_AmadeusWrapperNestedOverridesWithDeclaredProvider(t *testing.T) {
	raw := `{
		"departure": {"iata": "HYD", "scheduled": "2026-03-01T05:00:00"},
		"arrival": {"iata": "GOI"},
		"flight": {"iata": "QP1100", "number": 1100},
		"rawOffer": {"itineraries": []}
	}`
	nf, err := normalizeString(t, raw, model.ProviderAmadeusOffer)
	require.NoError(t, err)

	assert.Equal(t, "HYD", nf.DepIata)
	assert.Equal(t, "GOI", nf.ArrIata)
	assert.Equal(t, "QP1100", nf.FlightIata)
	assert.Equal(t, "1100", nf.FlightNumber)
	assert.Equal(t, "Airline", nf.AirlineName)
}

func TestNormalize_AmadeusAirlinePrecedence(t *testing.T) {
	noValidating := `{"itineraries": [{"segments": [
		{"departure": {"iataCode": "CCU"}, "arrival": {"iataCode": "GAU"}, "carrierCode": "SG", "number": 201}
	]}]}`
	nf, err := normalizeString(t, noValidating, "")
	require.NoError(t, err)
	assert.Equal(t, "SG", nf.AirlineIata, "falls back to the first segment carrier")
	assert.Equal(t, "SG201", nf.FlightIata)

	withValidating := `{"validatingAirlineCodes": ["UK"], "itineraries": [{"segments": [
		{"departure": {"iataCode": "CCU"}, "arrival": {"iataCode": "GAU"}, "carrierCode": "SG", "number": "201"}
	]}]}`
	nf, err = normalizeString(t, withValidating, "")
	require.NoError(t, err)
	assert.Equal(t, "UK", nf.AirlineIata)
}

func TestNormalize_AmadeusAcceptsIataKey(t *testing.T) {
	raw := `{"itineraries": [{"segments": [
		{"departure": {"iata": "PNQ"}, "arrival": {"iata": "JAI"}}
	]}]}`
	nf, err := normalizeString(t, raw, "")
	require.NoError(t, err)
	assert.Equal(t, "PNQ", nf.DepIata)
	assert.Equal(t, "JAI", nf.ArrIata)
	assert.Empty(t, nf.FlightIata, "no carrier or number, no designator")
}

func TestParse_RejectsNonObjects(t *testing.T) {
	for _, raw := range []string{``, `null`, `[]`, `"AI202"`, `42`} {
		_, err := Parse(json.RawMessage(raw), "")
		requireNormalizationError(t, err)
	}
}

func TestParse_UnknownDeclaredProvider(t *testing.T) {
	_, err := Parse(json.RawMessage(legacyFixture), "aviationstack")
	ne := requireNormalizationError(t, err)
	assert.Contains(t, ne.Reason, "unknown provider")
}

func TestParse_Detection(t *testing.T) {
	in, err := Parse(json.RawMessage(legacyFixture), "")
	require.NoError(t, err)
	assert.IsType(t, LegacyFlight{}, in)

	in, err = Parse(json.RawMessage(twoSegmentOffer), "")
	require.NoError(t, err)
	assert.IsType(t, AmadeusOffer{}, in)

	in, err = Parse(json.RawMessage(`{"rawOffer": {}, "departure": {"iata": "MAA"}}`), "")
	require.NoError(t, err)
	assert.IsType(t, AmadeusOffer{}, in, "rawOffer wins over nested legacy-looking records")
}

func TestNormalize_NilInput(t *testing.T) {
	_, err := Normalize(nil)
	requireNormalizationError(t, err)
}

package flight

import (
	"bytes"
	"encoding/json"

	"github.com/iliyamo/flight-booking/internal/amadeus"
	"github.com/iliyamo/flight-booking/internal/model"
)

// defaultAirlineName labels Amadeus records, which carry carrier codes but
// no carrier names.
const defaultAirlineName = "Airline"

// Normalize converts a classified input into the canonical record.  It fails
// with *NormalizationError when either route endpoint is missing.
func Normalize(in Input) (model.NormalizedFlight, error) {
	var nf model.NormalizedFlight
	switch v := in.(type) {
	case LegacyFlight:
		nf = normalizeLegacy(v)
	case *LegacyFlight:
		nf = normalizeLegacy(*v)
	case AmadeusOffer:
		nf = normalizeOffer(v)
	case *AmadeusOffer:
		nf = normalizeOffer(*v)
	case nil:
		return model.NormalizedFlight{}, fail("", "flight is required")
	default:
		return model.NormalizedFlight{}, fail(in.Provider(), "unsupported flight input %T", in)
	}
	if nf.DepIata == "" || nf.ArrIata == "" {
		return model.NormalizedFlight{}, fail(nf.Provider, "missing route")
	}
	return nf, nil
}

// ParseAndNormalize is Parse followed by Normalize.
func ParseAndNormalize(raw json.RawMessage, declared model.Provider) (model.NormalizedFlight, error) {
	in, err := Parse(raw, declared)
	if err != nil {
		return model.NormalizedFlight{}, err
	}
	return Normalize(in)
}

func normalizeLegacy(lf LegacyFlight) model.NormalizedFlight {
	raw := lf.payload
	if len(bytes.TrimSpace(lf.RawPayload)) > 0 && !bytes.Equal(bytes.TrimSpace(lf.RawPayload), []byte("null")) {
		raw = lf.RawPayload
	}
	return model.NormalizedFlight{
		Provider:     model.ProviderLegacy,
		FlightIata:   lf.Flight.Iata,
		FlightIcao:   lf.Flight.Icao,
		FlightNumber: lf.Flight.Number.String(),
		AirlineName:  lf.Airline.Name,
		AirlineIata:  lf.Airline.Iata,
		DepIata:      lf.Departure.Iata,
		ArrIata:      lf.Arrival.Iata,
		DepAirport:   lf.Departure.Airport,
		ArrAirport:   lf.Arrival.Airport,
		DepScheduled: lf.Departure.Scheduled,
		ArrScheduled: lf.Arrival.Scheduled,
		Status:       firstNonEmpty(lf.FlightStatus, lf.Status),
		Raw:          raw,
	}
}

// normalizeOffer reads the route from the outbound itinerary: departure from
// its first segment, arrival from its last.  Intermediate stops only survive
// in Raw.
func normalizeOffer(ao AmadeusOffer) model.NormalizedFlight {
	o, ov := ao.Offer, ao.Overrides

	var first, last amadeus.Segment
	if len(o.Itineraries) > 0 {
		if segs := o.Itineraries[0].Segments; len(segs) > 0 {
			first, last = segs[0], segs[len(segs)-1]
		}
	}

	var validating string
	if len(o.ValidatingAirlineCodes) > 0 {
		validating = o.ValidatingAirlineCodes[0]
	}
	airline := firstNonEmpty(ov.AirlineIata, validating, first.CarrierCode)

	var segmentFlight string
	if first.CarrierCode != "" && first.Number != "" {
		segmentFlight = first.CarrierCode + first.Number.String()
	}

	dep := firstNonEmpty(ov.DepIata, first.Departure.Code())
	arr := firstNonEmpty(ov.ArrIata, last.Arrival.Code())

	nf := model.NormalizedFlight{
		Provider:     model.ProviderAmadeusOffer,
		FlightIata:   firstNonEmpty(ov.FlightIata, segmentFlight),
		FlightNumber: firstNonEmpty(ov.FlightNumber, first.Number.String()),
		AirlineName:  firstNonEmpty(airline, defaultAirlineName),
		AirlineIata:  airline,
		DepIata:      dep,
		ArrIata:      arr,
		DepAirport:   dep,
		ArrAirport:   arr,
		DepScheduled: firstNonEmpty(ov.DepScheduled, first.Departure.At),
		ArrScheduled: firstNonEmpty(ov.ArrScheduled, last.Arrival.At),
		Status:       model.OfferStatus,
		OfferID:      o.ID,
		Raw:          o.Raw,
	}
	if o.Price.Total != "" || o.Price.Currency != "" {
		nf.Price = &model.OfferPrice{
			Currency: o.Price.Currency,
			Total:    o.Price.Total,
			Base:     o.Price.Base,
		}
	}
	return nf
}

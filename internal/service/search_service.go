package service

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/iliyamo/flight-booking/internal/amadeus"
	"github.com/iliyamo/flight-booking/internal/apperr"
	"github.com/iliyamo/flight-booking/internal/flight"
	"github.com/iliyamo/flight-booking/internal/logger"
	"github.com/iliyamo/flight-booking/internal/metrics"
	"github.com/iliyamo/flight-booking/internal/model"
	"github.com/iliyamo/flight-booking/internal/search"
)

// OfferSource is the upstream offer search; *amadeus.Client satisfies it.
type OfferSource interface {
	SearchOffers(ctx context.Context, params url.Values) ([]amadeus.Offer, error)
}

// ScheduleSource is the upstream schedule lookup; *amadeus.Client
// satisfies it.
type ScheduleSource interface {
	ScheduleFlights(ctx context.Context, carrierCode, flightNumber, date string) (*amadeus.Schedule, error)
}

// SearchResult is the cached search response.
type SearchResult struct {
	FromCache bool                     `json:"fromCache"`
	Results   []model.NormalizedFlight `json:"results"`
}

// SearchService is the read-through cache in front of the offer search.
type SearchService struct {
	offers    OfferSource
	schedules ScheduleSource
	store     search.Store
	ttl       time.Duration
	currency  string
	metrics   *metrics.Metrics
	log       logger.Logger
}

func NewSearchService(offers OfferSource, schedules ScheduleSource, store search.Store, ttl time.Duration,
	currency string, m *metrics.Metrics, log logger.Logger) *SearchService {
	if ttl <= 0 {
		ttl = search.DefaultTTL
	}
	return &SearchService{
		offers:    offers,
		schedules: schedules,
		store:     store,
		ttl:       ttl,
		currency:  currency,
		metrics:   m,
		log:       log,
	}
}

// Search answers from the store while the fingerprint is fresh.  On a miss
// it calls the upstream exactly once, normalizes the offers and stores
// them, empty result sets included.  Store failures degrade to a miss and
// never fail the request.
func (s *SearchService) Search(ctx context.Context, in search.QueryInput) (SearchResult, error) {
	q, err := s.query(in)
	if err != nil {
		return SearchResult{}, err
	}
	key := q.Fingerprint()

	cached, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.log.Warn("search cache read failed", "key", key, "error", err)
	}
	if ok {
		s.metrics.SearchCacheHits.Inc()
		return SearchResult{FromCache: true, Results: orEmpty(cached)}, nil
	}
	s.metrics.SearchCacheMisses.Inc()

	results, err := s.fetch(ctx, q)
	if err != nil {
		return SearchResult{}, err
	}
	if err := s.store.Put(ctx, key, results, s.ttl); err != nil {
		s.log.Warn("search cache write failed", "key", key, "error", err)
	}
	return SearchResult{FromCache: false, Results: results}, nil
}

// Offers runs an uncached offer search.
func (s *SearchService) Offers(ctx context.Context, in search.QueryInput) ([]model.NormalizedFlight, error) {
	q, err := s.query(in)
	if err != nil {
		return nil, err
	}
	return s.fetch(ctx, q)
}

var (
	carrierPattern = regexp.MustCompile(`^[A-Z0-9]{2,3}$`)
	numberPattern  = regexp.MustCompile(`^\d{1,4}$`)
)

// FlightStatus returns the schedule records of one flight on one date.
func (s *SearchService) FlightStatus(ctx context.Context, carrierCode, flightNumber, date string) ([]json.RawMessage, error) {
	carrierCode = strings.ToUpper(strings.TrimSpace(carrierCode))
	flightNumber = strings.TrimSpace(flightNumber)
	date = strings.TrimSpace(date)
	if carrierCode == "" || flightNumber == "" || date == "" {
		return nil, apperr.Invalid("carrierCode, flightNumber and date are required")
	}
	if !carrierPattern.MatchString(carrierCode) || !numberPattern.MatchString(flightNumber) {
		return nil, apperr.Invalid("invalid flight designator %s%s", carrierCode, flightNumber)
	}
	if len(date) > 10 {
		date = date[:10]
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, apperr.Invalid("date must be YYYY-MM-DD")
	}
	sched, err := s.schedules.ScheduleFlights(ctx, carrierCode, flightNumber, date)
	if err != nil {
		return nil, err
	}
	return sched.Data, nil
}

func (s *SearchService) query(in search.QueryInput) (search.Query, error) {
	if strings.TrimSpace(in.Currency) == "" {
		in.Currency = s.currency
	}
	return search.NewQuery(in)
}

func (s *SearchService) fetch(ctx context.Context, q search.Query) ([]model.NormalizedFlight, error) {
	offers, err := s.offers.SearchOffers(ctx, q.Values())
	if err != nil {
		s.metrics.ErrorsCount.WithLabelValues("search").Inc()
		return nil, err
	}
	out := make([]model.NormalizedFlight, 0, len(offers))
	for _, o := range offers {
		nf, err := flight.Normalize(flight.FromOffer(o))
		if err != nil {
			s.log.Warn("dropping offer that cannot be normalized", "offer_id", o.ID, "error", err)
			continue
		}
		out = append(out, nf)
	}
	return out, nil
}

func orEmpty(v []model.NormalizedFlight) []model.NormalizedFlight {
	if v == nil {
		return []model.NormalizedFlight{}
	}
	return v
}

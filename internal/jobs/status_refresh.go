// Package jobs holds background work that runs beside the HTTP server.
package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/iliyamo/flight-booking/internal/amadeus"
	"github.com/iliyamo/flight-booking/internal/flight"
	"github.com/iliyamo/flight-booking/internal/logger"
	"github.com/iliyamo/flight-booking/internal/metrics"
	"github.com/iliyamo/flight-booking/internal/model"
)

const (
	DefaultStatusInterval = 10 * time.Minute
	DefaultStatusBatch    = 50
)

// TrackerStore is satisfied by *repository.TrackerRepo.
type TrackerStore interface {
	ListDue(ctx context.Context, limit int) ([]model.FlightStatusTracker, error)
	UpdateStatus(ctx context.Context, id uint64, status string, payload json.RawMessage, checkedAt time.Time) error
	Touch(ctx context.Context, id uint64, checkedAt time.Time) error
}

// ScheduleSource is satisfied by *amadeus.Client.
type ScheduleSource interface {
	ScheduleFlights(ctx context.Context, carrierCode, flightNumber, date string) (*amadeus.Schedule, error)
}

// RunSummary counts the outcome of one pass.
type RunSummary struct {
	Loaded  int
	Updated int
	Skipped int
	Failed  int
}

// StatusRefresher re-fetches flight status for tracked bookings on a fixed
// interval.
type StatusRefresher struct {
	trackers  TrackerStore
	schedules ScheduleSource
	interval  time.Duration
	batch     int
	now       func() time.Time
	metrics   *metrics.Metrics
	log       logger.Logger
}

func NewStatusRefresher(trackers TrackerStore, schedules ScheduleSource, interval time.Duration, batch int,
	m *metrics.Metrics, log logger.Logger) *StatusRefresher {
	if interval <= 0 {
		interval = DefaultStatusInterval
	}
	if batch <= 0 {
		batch = DefaultStatusBatch
	}
	return &StatusRefresher{
		trackers:  trackers,
		schedules: schedules,
		interval:  interval,
		batch:     batch,
		now:       time.Now,
		metrics:   m,
		log:       log.With("job", "status_refresh"),
	}
}

// Start runs a pass every interval until ctx is cancelled.  A failed pass
// is logged and the schedule continues.
func (j *StatusRefresher) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	j.log.Info("status refresh started", "interval", j.interval.String(), "batch", j.batch)

	for {
		select {
		case <-ctx.Done():
			j.log.Info("status refresh stopped")
			return
		case <-ticker.C:
			sum, err := j.RunOnce(ctx)
			if err != nil {
				j.log.Error("status refresh run failed", "error", err)
				continue
			}
			j.log.Info("status refresh run finished",
				"loaded", sum.Loaded, "updated", sum.Updated, "skipped", sum.Skipped, "failed", sum.Failed)
		}
	}
}

// RunOnce refreshes up to one batch of trackers, least recently checked
// first.  Trackers whose designator cannot be parsed are skipped; a failure
// on one tracker does not stop the others.  Skipped and failed trackers are
// still stamped as checked so they move to the back of the queue.
func (j *StatusRefresher) RunOnce(ctx context.Context) (RunSummary, error) {
	var sum RunSummary
	list, err := j.trackers.ListDue(ctx, j.batch)
	if err != nil {
		j.metrics.StatusRefreshRuns.WithLabelValues("error").Inc()
		return sum, err
	}
	sum.Loaded = len(list)

	for _, t := range list {
		if ctx.Err() != nil {
			break
		}
		switch j.refresh(ctx, t) {
		case outcomeUpdated:
			sum.Updated++
		case outcomeSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
	}
	j.metrics.StatusRefreshRuns.WithLabelValues("ok").Inc()
	return sum, ctx.Err()
}

type outcome int

const (
	outcomeUpdated outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (j *StatusRefresher) refresh(ctx context.Context, t model.FlightStatusTracker) outcome {
	carrier, number, ok := flight.ParseDesignator(t.FlightIata)
	if !ok {
		j.log.Debug("tracker skipped: unparsable designator", "tracker_id", t.ID, "flight", t.FlightIata)
		j.touch(ctx, t)
		return outcomeSkipped
	}

	date := t.ScheduledDepartureDate
	if date == "" {
		date = j.now().UTC().Format(time.DateOnly)
		j.log.Warn("tracker has no scheduled departure date, querying today",
			"tracker_id", t.ID, "booking_id", t.BookingID, "date", date)
	}

	sched, err := j.schedules.ScheduleFlights(ctx, carrier, number, date)
	if err != nil {
		j.metrics.ErrorsCount.WithLabelValues("status_refresh").Inc()
		j.log.Warn("status lookup failed", "tracker_id", t.ID, "flight", t.FlightIata, "date", date, "error", err)
		j.touch(ctx, t)
		return outcomeFailed
	}

	if err := j.trackers.UpdateStatus(ctx, t.ID, sched.StatusSummary(), sched.Raw, j.now().UTC()); err != nil {
		j.metrics.ErrorsCount.WithLabelValues("status_refresh").Inc()
		j.log.Error("tracker update failed", "tracker_id", t.ID, "error", err)
		j.touch(ctx, t)
		return outcomeFailed
	}
	j.metrics.StatusRefreshed.Inc()
	return outcomeUpdated
}

// touch advances last_checked_at without changing status or payload.
func (j *StatusRefresher) touch(ctx context.Context, t model.FlightStatusTracker) {
	if err := j.trackers.Touch(ctx, t.ID, j.now().UTC()); err != nil {
		j.log.Error("tracker touch failed", "tracker_id", t.ID, "error", err)
	}
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-booking/internal/amadeus"
	"github.com/iliyamo/flight-booking/internal/logger"
	"github.com/iliyamo/flight-booking/internal/metrics"
	"github.com/iliyamo/flight-booking/internal/model"
)

type update struct {
	id      uint64
	status  string
	payload string
	at      time.Time
}

type fakeTrackers struct {
	mu      sync.Mutex
	due     []model.FlightStatusTracker
	limit   int
	listErr error
	failIDs map[uint64]bool
	updates []update
	touched []uint64
}

func (f *fakeTrackers) ListDue(_ context.Context, limit int) ([]model.FlightStatusTracker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = limit
	return f.due, f.listErr
}

func (f *fakeTrackers) UpdateStatus(_ context.Context, id uint64, status string, payload json.RawMessage, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[id] {
		return errors.New("lock wait timeout")
	}
	f.updates = append(f.updates, update{id: id, status: status, payload: string(payload), at: at})
	return nil
}

func (f *fakeTrackers) Touch(_ context.Context, id uint64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, id)
	return nil
}

type call struct{ carrier, number, date string }

type fakeSchedules struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]bool
}

func (f *fakeSchedules) ScheduleFlights(_ context.Context, carrier, number, date string) (*amadeus.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{carrier, number, date})
	if f.fail[carrier+number] {
		return nil, &amadeus.UpstreamError{StatusCode: 500, Detail: "upstream down"}
	}
	body := `{"data":[{"flightPoints":[{"departure":{"timings":[{"qualifier":"STD"}]}}]}]}`
	return &amadeus.Schedule{
		Data: []json.RawMessage{json.RawMessage(`{"flightPoints":[{"departure":{"timings":[{"qualifier":"STD"}]}}]}`)},
		Raw:  json.RawMessage(body),
	}, nil
}

var fixedNow = time.Date(2026, 2, 5, 6, 0, 0, 0, time.UTC)

func newJob(tr TrackerStore, sc ScheduleSource, m *metrics.Metrics) *StatusRefresher {
	j := NewStatusRefresher(tr, sc, 0, 0, m, logger.NewNop())
	j.now = func() time.Time { return fixedNow }
	return j
}

func TestRunOnce_UpdatesParsableTrackers(t *testing.T) {
	tr := &fakeTrackers{due: []model.FlightStatusTracker{
		{ID: 1, FlightIata: "AI202", ScheduledDepartureDate: "2026-02-11"},
		{ID: 2, FlightIata: "not-a-flight"},
		{ID: 3, FlightIata: "6E2134"},
	}}
	sc := &fakeSchedules{}
	m := metrics.NewNop()
	j := newJob(tr, sc, m)

	sum, err := j.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Loaded: 3, Updated: 2, Skipped: 1}, sum)
	assert.Equal(t, DefaultStatusBatch, tr.limit)

	require.Len(t, sc.calls, 2)
	assert.Equal(t, call{"AI", "202", "2026-02-11"}, sc.calls[0])
	assert.Equal(t, call{"6E", "2134", "2026-02-05"}, sc.calls[1])

	require.Len(t, tr.updates, 2)
	assert.Equal(t, []uint64{2}, tr.touched)
	assert.Equal(t, "STD", tr.updates[0].status)
	assert.Equal(t, fixedNow, tr.updates[0].at)
	assert.Contains(t, tr.updates[0].payload, "flightPoints")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.StatusRefreshed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StatusRefreshRuns.WithLabelValues("ok")))
}

func TestRunOnce_IsolatesFailures(t *testing.T) {
	tr := &fakeTrackers{
		due: []model.FlightStatusTracker{
			{ID: 1, FlightIata: "AI202", ScheduledDepartureDate: "2026-02-11"},
			{ID: 2, FlightIata: "UK955", ScheduledDepartureDate: "2026-02-11"},
			{ID: 3, FlightIata: "QP1100", ScheduledDepartureDate: "2026-02-11"},
		},
		failIDs: map[uint64]bool{3: true},
	}
	sc := &fakeSchedules{fail: map[string]bool{"AI202": true}}
	j := newJob(tr, sc, metrics.NewNop())

	sum, err := j.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Loaded: 3, Updated: 1, Failed: 2}, sum)
	require.Len(t, tr.updates, 1)
	assert.Equal(t, uint64(2), tr.updates[0].id)
	assert.ElementsMatch(t, []uint64{1, 3}, tr.touched)
}

func TestRunOnce_ListFailure(t *testing.T) {
	tr := &fakeTrackers{listErr: errors.New("db gone")}
	m := metrics.NewNop()
	j := newJob(tr, &fakeSchedules{}, m)

	_, err := j.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StatusRefreshRuns.WithLabelValues("error")))
}

func TestStart_RunsOnTickAndStops(t *testing.T) {
	tr := &fakeTrackers{due: []model.FlightStatusTracker{{ID: 1, FlightIata: "AI202", ScheduledDepartureDate: "2026-02-11"}}}
	sc := &fakeSchedules{}
	j := NewStatusRefresher(tr, sc, 10*time.Millisecond, 5, metrics.NewNop(), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return len(tr.updates) >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	tr.mu.Lock()
	assert.Equal(t, 5, tr.limit)
	tr.mu.Unlock()
}

// queueTrackers orders rows like TrackerRepo.ListDue: last_checked_at, then id.
type queueTrackers struct {
	rows map[uint64]*model.FlightStatusTracker
}

func (q *queueTrackers) ListDue(_ context.Context, limit int) ([]model.FlightStatusTracker, error) {
	all := make([]model.FlightStatusTracker, 0, len(q.rows))
	for _, r := range q.rows {
		all = append(all, *r)
	}
	sort.Slice(all, func(i, k int) bool {
		if !all[i].LastCheckedAt.Equal(all[k].LastCheckedAt) {
			return all[i].LastCheckedAt.Before(all[k].LastCheckedAt)
		}
		return all[i].ID < all[k].ID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (q *queueTrackers) UpdateStatus(_ context.Context, id uint64, status string, payload json.RawMessage, at time.Time) error {
	r := q.rows[id]
	r.LastStatus, r.LastPayload, r.LastCheckedAt = status, payload, at
	return nil
}

func (q *queueTrackers) Touch(_ context.Context, id uint64, at time.Time) error {
	q.rows[id].LastCheckedAt = at
	return nil
}

func TestRunOnce_UnparsableTrackersDoNotBlockQueue(t *testing.T) {
	t0 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	q := &queueTrackers{rows: map[uint64]*model.FlightStatusTracker{}}
	for id := uint64(1); id <= DefaultStatusBatch; id++ {
		q.rows[id] = &model.FlightStatusTracker{ID: id, LastCheckedAt: t0}
	}
	valid := uint64(DefaultStatusBatch + 1)
	q.rows[valid] = &model.FlightStatusTracker{
		ID: valid, FlightIata: "AI202", ScheduledDepartureDate: "2026-02-11", LastCheckedAt: t0.Add(time.Second),
	}

	sc := &fakeSchedules{}
	j := NewStatusRefresher(q, sc, 0, 0, metrics.NewNop(), logger.NewNop())
	now := fixedNow
	j.now = func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}

	first, err := j.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Loaded: DefaultStatusBatch, Skipped: DefaultStatusBatch}, first)

	second, err := j.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Updated)
	assert.Equal(t, "STD", q.rows[valid].LastStatus)
	assert.Equal(t, []call{{"AI", "202", "2026-02-11"}}, sc.calls)
}

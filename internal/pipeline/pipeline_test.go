package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
	"github.com/couchcryptid/quake-feed-service/internal/pipeline"
)

const (
	testEndpoint = "http://feed.test/query"
	testInterval = time.Minute
	waitFor      = 2 * time.Second
	tick         = 5 * time.Millisecond
)

// --- mocks ---

type mockFetcher struct {
	mu      sync.Mutex
	batches []domain.Batch // served in order, last one repeats
	calls   atomic.Int64
}

func (m *mockFetcher) FetchBatch(_ context.Context, endpoint string) domain.Batch {
	i := int(m.calls.Add(1) - 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.batches[min(i, len(m.batches)-1)]
	b.Endpoint = endpoint
	return b
}

type mockLoader struct {
	mu      sync.Mutex
	batches []domain.Batch
	err     error
}

func (m *mockLoader) LoadBatch(_ context.Context, batch domain.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, batch)
	return m.err
}

func (m *mockLoader) loaded() []domain.Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Batch(nil), m.batches...)
}

// --- helpers ---

func okBatch(n int) domain.Batch {
	quakes := make([]domain.Earthquake, n)
	for i := range quakes {
		quakes[i] = domain.NewEarthquake(5+float64(i)/10, "10km NE of Example City", int64(1500000000000+i), "http://example.com/")
	}
	return domain.Batch{Earthquakes: quakes, Outcome: domain.OutcomeOK}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	p       *pipeline.Pipeline
	fetcher *mockFetcher
	loader  *mockLoader
	clock   *clockwork.FakeClock
	metrics *observability.Metrics
	cancel  context.CancelFunc
	errCh   chan error
}

func newHarness(batches ...domain.Batch) *harness {
	h := &harness{
		fetcher: &mockFetcher{batches: batches},
		loader:  &mockLoader{},
		clock:   clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)),
		metrics: observability.NewMetricsForTesting(),
		errCh:   make(chan error, 1),
	}
	h.p = pipeline.New(h.fetcher, h.loader, testEndpoint, testInterval, h.clock, discardLogger(), h.metrics)
	return h
}

func (h *harness) start(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.errCh <- h.p.Run(ctx) }()
	t.Cleanup(cancel)
	return ctx
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.errCh:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("pipeline did not stop")
	}
}

func (h *harness) waitForCalls(t *testing.T, n int64) {
	t.Helper()
	require.Eventually(t, func() bool { return h.fetcher.calls.Load() >= n }, waitFor, tick)
}

// --- tests ---

func TestPipeline_Run_InitialPollPublishes(t *testing.T) {
	h := newHarness(okBatch(2))
	h.start(t)

	require.Eventually(t, func() bool { return len(h.loader.loaded()) == 1 }, waitFor, tick)

	latest, ok := h.p.Latest()
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeOK, latest.Outcome)
	assert.Equal(t, testEndpoint, latest.Endpoint)
	assert.Len(t, latest.Earthquakes, 2)
	assert.Equal(t, h.clock.Now(), latest.FetchedAt)
	require.NoError(t, h.p.CheckReadiness(context.Background()))

	assert.Equal(t, latest, h.loader.loaded()[0])
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.PollerRunning), 0)

	h.stop(t)

	assert.InDelta(t, 0, testutil.ToFloat64(h.metrics.PollerRunning), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.BatchOutcomes.WithLabelValues("ok")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(h.metrics.LastBatchSize), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(h.metrics.RecordsPublished), 0)
}

func TestPipeline_Run_TickTriggersPoll(t *testing.T) {
	h := newHarness(okBatch(1), okBatch(3))
	ctx := h.start(t)

	h.waitForCalls(t, 1)
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
	h.clock.Advance(testInterval)

	h.waitForCalls(t, 2)
	require.Eventually(t, func() bool {
		latest, _ := h.p.Latest()
		return len(latest.Earthquakes) == 3
	}, waitFor, tick)

	h.stop(t)
	assert.Len(t, h.loader.loaded(), 2)
}

func TestPipeline_Run_NoPollBeforeInterval(t *testing.T) {
	h := newHarness(okBatch(1))
	ctx := h.start(t)

	h.waitForCalls(t, 1)
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
	h.clock.Advance(testInterval - time.Second)

	assert.Never(t, func() bool { return h.fetcher.calls.Load() > 1 }, 100*time.Millisecond, tick)
	h.stop(t)
}

func TestPipeline_Refresh(t *testing.T) {
	h := newHarness(okBatch(1), okBatch(4))
	h.start(t)

	h.waitForCalls(t, 1)
	h.p.Refresh()
	h.waitForCalls(t, 2)

	require.Eventually(t, func() bool {
		latest, _ := h.p.Latest()
		return len(latest.Earthquakes) == 4
	}, waitFor, tick)
	h.stop(t)
}

func TestPipeline_Refresh_Coalesces(t *testing.T) {
	h := newHarness(okBatch(1))

	// Queued before the worker starts: one initial poll plus one refresh.
	h.p.Refresh()
	h.p.Refresh()
	h.p.Refresh()
	h.start(t)

	h.waitForCalls(t, 2)
	assert.Never(t, func() bool { return h.fetcher.calls.Load() > 2 }, 100*time.Millisecond, tick)
	h.stop(t)
}

func TestPipeline_FailedBatchIsNotReady(t *testing.T) {
	h := newHarness(domain.Batch{Outcome: domain.OutcomeFailed}, okBatch(1))
	h.start(t)

	require.Eventually(t, func() bool {
		_, ok := h.p.Latest()
		return ok
	}, waitFor, tick)

	latest, _ := h.p.Latest()
	assert.Equal(t, domain.OutcomeFailed, latest.Outcome)
	require.Error(t, h.p.CheckReadiness(context.Background()))
	assert.Empty(t, h.loader.loaded())

	h.p.Refresh()
	require.Eventually(t, func() bool { return h.p.CheckReadiness(context.Background()) == nil }, waitFor, tick)

	h.stop(t)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.BatchOutcomes.WithLabelValues("failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.BatchOutcomes.WithLabelValues("ok")), 0)
}

func TestPipeline_EmptyBatchIsReadyButNotPublished(t *testing.T) {
	h := newHarness(domain.Batch{Outcome: domain.OutcomeEmpty})
	h.start(t)

	require.Eventually(t, func() bool { return h.p.CheckReadiness(context.Background()) == nil }, waitFor, tick)
	h.stop(t)

	assert.Empty(t, h.loader.loaded())
	latest, ok := h.p.Latest()
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeEmpty, latest.Outcome)
}

func TestPipeline_PartialBatchIsPublished(t *testing.T) {
	partial := okBatch(1)
	partial.Outcome = domain.OutcomeFailed
	h := newHarness(partial)
	h.start(t)

	require.Eventually(t, func() bool { return len(h.loader.loaded()) == 1 }, waitFor, tick)
	h.stop(t)

	require.Error(t, h.p.CheckReadiness(context.Background()))
}

func TestPipeline_LoaderErrorIsCounted(t *testing.T) {
	h := newHarness(okBatch(2))
	h.loader.err = errors.New("broker unavailable")
	h.start(t)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.PublishErrors) == 1
	}, waitFor, tick)
	h.stop(t)

	_, ok := h.p.Latest()
	assert.True(t, ok)
	assert.InDelta(t, 0, testutil.ToFloat64(h.metrics.RecordsPublished), 0)
}

func TestPipeline_Run_ContextCancelled(t *testing.T) {
	h := newHarness(okBatch(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.p.Run(ctx))

	_, ok := h.p.Latest()
	assert.False(t, ok)
	assert.Empty(t, h.loader.loaded())
}

func TestPipeline_NilLoaderAndClock(t *testing.T) {
	fetcher := &mockFetcher{batches: []domain.Batch{okBatch(1)}}
	p := pipeline.New(fetcher, nil, testEndpoint, time.Hour, nil, discardLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := p.Latest()
		return ok
	}, waitFor, tick)

	cancel()
	require.NoError(t, <-errCh)
}

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
)

// BatchFetcher runs one fetch-and-parse pass against the endpoint.
type BatchFetcher interface {
	FetchBatch(ctx context.Context, endpoint string) domain.Batch
}

// BatchLoader publishes a freshly fetched batch downstream.
type BatchLoader interface {
	LoadBatch(ctx context.Context, batch domain.Batch) error
}

// Pipeline polls the feed on a fixed interval with a single worker and keeps
// the latest batch for readers.
type Pipeline struct {
	fetcher  BatchFetcher
	loader   BatchLoader
	endpoint string
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	latest  atomic.Pointer[domain.Batch]
	ready   atomic.Bool
	refresh chan struct{}
}

// New creates a Pipeline. A nil loader discards batches; a nil clock uses
// real time.
func New(f BatchFetcher, l BatchLoader, endpoint string, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if l == nil {
		l = NopLoader{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		fetcher:  f,
		loader:   l,
		endpoint: endpoint,
		interval: interval,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		refresh:  make(chan struct{}, 1),
	}
}

// CheckReadiness returns nil once a poll has completed without failing.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no earthquake feed has been fetched successfully yet")
	}
	return nil
}

// Latest returns the most recent batch, failed or not.
func (p *Pipeline) Latest() (domain.Batch, bool) {
	b := p.latest.Load()
	if b == nil {
		return domain.Batch{}, false
	}
	return *b, true
}

// Refresh asks the worker for an immediate poll. Requests made while a poll
// is pending or running collapse into one.
func (p *Pipeline) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Run polls once immediately, then on every tick and refresh request until
// the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("poller started", "endpoint", p.endpoint, "interval", p.interval)
	p.metrics.PollerRunning.Set(1)
	defer p.metrics.PollerRunning.Set(0)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.poll(ctx)
		case <-p.refresh:
			p.poll(ctx)
		}
	}
}

// poll runs one fetch, swaps the snapshot and hands non-empty batches to the loader.
func (p *Pipeline) poll(ctx context.Context) {
	logger := p.logger.With("run_id", uuid.NewString())
	start := p.clock.Now()

	batch := p.fetcher.FetchBatch(ctx, p.endpoint)
	if ctx.Err() != nil {
		return
	}
	batch.FetchedAt = p.clock.Now()

	p.latest.Store(&batch)
	p.metrics.BatchOutcomes.WithLabelValues(string(batch.Outcome)).Inc()
	p.metrics.LastBatchSize.Set(float64(len(batch.Earthquakes)))
	if batch.Outcome != domain.OutcomeFailed {
		p.ready.Store(true)
	}

	logger.Info("poll complete",
		"outcome", batch.Outcome,
		"count", len(batch.Earthquakes),
		"duration", p.clock.Since(start),
	)

	if len(batch.Earthquakes) == 0 {
		return
	}

	if err := p.loader.LoadBatch(ctx, batch); err != nil {
		logger.Error("publish batch failed", "error", err, "batch_size", len(batch.Earthquakes))
		p.metrics.PublishErrors.Inc()
		return
	}
	p.metrics.RecordsPublished.Add(float64(len(batch.Earthquakes)))
}

// NopLoader discards batches. Used when no sink is configured.
type NopLoader struct{}

func (NopLoader) LoadBatch(context.Context, domain.Batch) error { return nil }

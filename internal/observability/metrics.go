package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the feed poller.
type Metrics struct {
	// USGS request metrics.
	FetchRequests *prometheus.CounterVec // labels: outcome={success,malformed_endpoint,network_error,http_error}
	FetchDuration prometheus.Histogram

	// Parse metrics.
	RecordsParsed prometheus.Counter
	ParseErrors   prometheus.Counter

	// Poller metrics.
	BatchOutcomes *prometheus.CounterVec // labels: outcome={ok,empty,failed}
	LastBatchSize prometheus.Gauge
	PollerRunning prometheus.Gauge

	// Publishing metrics.
	RecordsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "fetch_requests_total",
			Help:      "USGS feed requests by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_feed",
			Name:      "fetch_duration_seconds",
			Help:      "USGS feed request duration including body read.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "records_parsed_total",
			Help:      "Total earthquake records extracted from feed responses.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "parse_errors_total",
			Help:      "Feed responses that could not be fully parsed.",
		}),
		BatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "batches_total",
			Help:      "Poll results by outcome.",
		}, []string{"outcome"}),
		LastBatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_feed",
			Name:      "last_batch_size",
			Help:      "Number of records in the most recent batch.",
		}),
		PollerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_feed",
			Name:      "poller_running",
			Help:      "1 when the poller is active, 0 when shut down.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "records_published_total",
			Help:      "Total records written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_feed",
			Name:      "publish_errors_total",
			Help:      "Batches that failed to publish.",
		}),
	}

	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.RecordsParsed,
		m.ParseErrors,
		m.BatchOutcomes,
		m.LastBatchSize,
		m.PollerRunning,
		m.RecordsPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FetchRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "quake_feed", Name: "fetch_requests_total"}, []string{"outcome"}),
		FetchDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "quake_feed", Name: "fetch_duration_seconds"}),
		RecordsParsed:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_feed", Name: "records_parsed_total"}),
		ParseErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_feed", Name: "parse_errors_total"}),
		BatchOutcomes:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "quake_feed", Name: "batches_total"}, []string{"outcome"}),
		LastBatchSize:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "quake_feed", Name: "last_batch_size"}),
		PollerRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "quake_feed", Name: "poller_running"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_feed", Name: "records_published_total"}),
		PublishErrors:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_feed", Name: "publish_errors_total"}),
	}
}

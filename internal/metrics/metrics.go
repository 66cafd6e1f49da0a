package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/five82/nudge/internal/syncer"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "nudge").
	Namespace string

	// Subsystem is the metrics subsystem (default: "syncer").
	Subsystem string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for save latency.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry receives the metrics.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the save latency buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "nudge",
		Subsystem: "syncer",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector records coordinator activity. It implements syncer.Observer.
//
// Metrics:
//   - nudge_syncer_saves_scheduled_total{mode}
//   - nudge_syncer_saves_started_total
//   - nudge_syncer_saves_finished_total{outcome}
//   - nudge_syncer_save_duration_seconds{outcome}
//   - nudge_syncer_stale_results_total
//   - nudge_syncer_saves_in_flight
//   - nudge_syncer_gate_verdicts_total{capability,verdict,stale}
type Collector struct {
	scheduled *prometheus.CounterVec
	started   prometheus.Counter
	finished  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	stale     prometheus.Counter
	inFlight  prometheus.Gauge
	verdicts  *prometheus.CounterVec
}

var _ syncer.Observer = (*Collector)(nil)

// New registers the coordinator metrics and returns a Collector. Registering
// twice against the same registry panics, as with promauto.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if len(config.Buckets) == 0 {
		config.Buckets = prometheus.DefBuckets
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		scheduled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "saves_scheduled_total",
			Help:        "Saves scheduled by edit mode",
			ConstLabels: config.ConstLabels,
		}, []string{"mode"}),

		started: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "saves_started_total",
			Help:        "Persist attempts sent to the remote store",
			ConstLabels: config.ConstLabels,
		}),

		finished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "saves_finished_total",
			Help:        "Persist results applied to state by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "save_duration_seconds",
			Help:        "Round trip time of applied persist attempts",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"outcome"}),

		stale: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stale_results_total",
			Help:        "Persist results discarded because a newer revision exists",
			ConstLabels: config.ConstLabels,
		}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "saves_in_flight",
			Help:        "Persist attempts awaiting a result",
			ConstLabels: config.ConstLabels,
		}),

		verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "gate_verdicts_total",
			Help:        "Permission gate results by capability and verdict",
			ConstLabels: config.ConstLabels,
		}, []string{"capability", "verdict", "stale"}),
	}
}

func (c *Collector) Scheduled(_ syncer.Revision, mode syncer.Mode) {
	c.scheduled.WithLabelValues(mode.String()).Inc()
}

func (c *Collector) PersistStarted(syncer.Revision) {
	c.started.Inc()
	c.inFlight.Inc()
}

func (c *Collector) PersistFinished(_ syncer.Revision, outcome syncer.Outcome, elapsed time.Duration) {
	c.inFlight.Dec()
	c.finished.WithLabelValues(outcome.String()).Inc()
	c.duration.WithLabelValues(outcome.String()).Observe(elapsed.Seconds())
}

func (c *Collector) StaleDiscarded(syncer.Revision) {
	c.inFlight.Dec()
	c.stale.Inc()
}

func (c *Collector) GateResolved(capability syncer.Capability, verdict syncer.Verdict, stale bool) {
	label := "false"
	if stale {
		label = "true"
	}
	c.verdicts.WithLabelValues(string(capability), verdict.String(), label).Inc()
}

// Package metrics exports reactive engine activity as Prometheus metrics.
//
// Install the collector on the runtime and expose the registry:
//
//	collector := metrics.New(metrics.WithNamespace("myapp"))
//	sig.Configure(sig.WithInstrument(collector))
//
//	http.Handle("/metrics", promhttp.Handler())
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/AnatoleLucet/sig/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the Prometheus collector.
type Config struct {
	// Namespace is the metrics namespace (default: "sig").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// Stats feeds the live node gauges.
	// Default: sig.RuntimeStats
	Stats func() sig.Stats
}

type Option func(*Config)

func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func WithStats(stats func() sig.Stats) Option {
	return func(c *Config) {
		c.Stats = stats
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "sig",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
		Stats:     sig.RuntimeStats,
	}
}

// Collector is a sig.Instrument recording engine events.
type Collector struct {
	signalWrites       prometheus.Counter
	computedEvaluation *prometheus.CounterVec
	effectRuns         prometheus.Counter
	effectDuration     prometheus.Histogram
	flushes            prometheus.Counter
	flushDuration      prometheus.Histogram
	flushEffects       prometheus.Histogram
	reactiveErrors     *prometheus.CounterVec
	resourceLoads      *prometheus.CounterVec
	resourceDuration   *prometheus.HistogramVec
}

var _ sig.Instrument = (*Collector)(nil)

// New registers the engine metrics with the configured registry.
//
// Metrics collected:
//   - sig_signal_writes_total: writes that changed a signal
//   - sig_computed_evaluations_total: computed evaluations by whether the value changed
//   - sig_effect_runs_total, sig_effect_duration_seconds
//   - sig_flushes_total, sig_flush_duration_seconds, sig_flush_effects
//   - sig_reactive_errors_total: cycles and reentrancy aborts
//   - sig_resource_loads_total: resource loads by resource and result (ok, error, stale)
//   - sig_resource_load_duration_seconds
//   - sig_live_signals, sig_live_computeds, sig_live_effects, sig_pending_effects
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	c := &Collector{
		signalWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "signal_writes_total",
			Help:        "Total number of signal writes that changed a value",
			ConstLabels: config.ConstLabels,
		}),

		computedEvaluation: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "computed_evaluations_total",
			Help:        "Total number of computed evaluations",
			ConstLabels: config.ConstLabels,
		}, []string{"changed"}),

		effectRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect runs",
			ConstLabels: config.ConstLabels,
		}),

		effectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_duration_seconds",
			Help:        "Effect run duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of effect queue flushes",
			ConstLabels: config.ConstLabels,
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Flush duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		flushEffects: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_effects",
			Help:        "Number of effects run per flush",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),

		reactiveErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reactive_errors_total",
			Help:        "Total number of engine errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		resourceLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "resource_loads_total",
			Help:        "Total number of finished resource loads",
			ConstLabels: config.ConstLabels,
		}, []string{"resource", "result"}),

		resourceDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "resource_load_duration_seconds",
			Help:        "Resource load duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"resource"}),
	}

	stats := config.Stats
	gauge := func(name, help string, value func(sig.Stats) int) {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, func() float64 { return float64(value(stats())) })
	}
	gauge("live_signals", "Number of live signals", func(s sig.Stats) int { return s.Signals })
	gauge("live_computeds", "Number of live computeds", func(s sig.Stats) int { return s.Computeds })
	gauge("live_effects", "Number of live effects", func(s sig.Stats) int { return s.Effects })
	gauge("pending_effects", "Number of effects waiting for a flush", func(s sig.Stats) int { return s.Pending })

	return c
}

func (c *Collector) SignalWritten(string) {
	c.signalWrites.Inc()
}

func (c *Collector) ComputedEvaluated(_ string, changed bool) {
	if changed {
		c.computedEvaluation.WithLabelValues("true").Inc()
	} else {
		c.computedEvaluation.WithLabelValues("false").Inc()
	}
}

func (c *Collector) EffectRan(_ string, elapsed time.Duration) {
	c.effectRuns.Inc()
	c.effectDuration.Observe(elapsed.Seconds())
}

func (c *Collector) Flushed(effects int, elapsed time.Duration) {
	c.flushes.Inc()
	c.flushDuration.Observe(elapsed.Seconds())
	c.flushEffects.Observe(float64(effects))
}

func (c *Collector) ReactiveError(err error) {
	c.reactiveErrors.WithLabelValues(categorizeError(err)).Inc()
}

type loadStartKey struct{}

func (c *Collector) ResourceLoadStarted(ctx context.Context, _ string) context.Context {
	return context.WithValue(ctx, loadStartKey{}, time.Now())
}

func (c *Collector) ResourceLoadFinished(ctx context.Context, name string, err error) {
	result := "ok"
	switch {
	case errors.Is(err, sig.ErrStaleResource):
		result = "stale"
	case err != nil:
		result = "error"
	}
	c.resourceLoads.WithLabelValues(name, result).Inc()

	if start, ok := ctx.Value(loadStartKey{}).(time.Time); ok {
		c.resourceDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

// categorizeError keeps the error label to a fixed set of values.
func categorizeError(err error) string {
	var (
		cycle *sig.CycleError
		limit *sig.ReentrancyLimitError
	)

	switch {
	case errors.As(err, &cycle):
		return "cycle"
	case errors.As(err, &limit):
		return "reentrancy"
	default:
		return "other"
	}
}

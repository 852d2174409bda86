package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AnatoleLucet/sig/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}
	return byName
}

func labelsOf(m *dto.Metric) map[string]string {
	labels := make(map[string]string, len(m.GetLabel()))
	for _, l := range m.GetLabel() {
		labels[l.GetName()] = l.GetValue()
	}
	return labels
}

// counter returns the value of the counter in family name whose labels include want.
func counter(t *testing.T, families map[string]*dto.MetricFamily, name string, want map[string]string) float64 {
	t.Helper()

	f, ok := families[name]
	require.True(t, ok, "metric %s not gathered", name)

next:
	for _, m := range f.GetMetric() {
		labels := labelsOf(m)
		for k, v := range want {
			if labels[k] != v {
				continue next
			}
		}
		return m.GetCounter().GetValue()
	}

	return 0
}

func gauge(t *testing.T, families map[string]*dto.MetricFamily, name string) float64 {
	t.Helper()

	f, ok := families[name]
	require.True(t, ok, "metric %s not gathered", name)
	require.Len(t, f.GetMetric(), 1)

	return f.GetMetric()[0].GetGauge().GetValue()
}

func TestCollector(t *testing.T) {
	t.Run("records engine events", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := New(WithRegistry(reg))

		sig.Configure(sig.WithInstrument(c))
		t.Cleanup(func() { sig.Configure(sig.WithInstrument()) })

		count := sig.NewSignal(1)
		positive := sig.NewComputed(func() bool { return count.Read() > 0 })
		dispose := sig.NewEffect(func() { positive.Read() })
		defer dispose()

		count.Write(2)
		count.Write(-1)

		families := gather(t, reg)
		assert.Equal(t, 2.0, counter(t, families, "sig_signal_writes_total", nil))
		assert.Equal(t, 2.0, counter(t, families, "sig_computed_evaluations_total", map[string]string{"changed": "true"}))
		assert.Equal(t, 1.0, counter(t, families, "sig_computed_evaluations_total", map[string]string{"changed": "false"}))
		assert.Equal(t, 2.0, counter(t, families, "sig_effect_runs_total", nil))
		assert.Equal(t, 2.0, counter(t, families, "sig_flushes_total", nil))
	})

	t.Run("classifies errors", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := New(WithRegistry(reg), WithNamespace("app"))

		c.ReactiveError(&sig.CycleError{Node: "a"})
		c.ReactiveError(&sig.ReentrancyLimitError{Node: "b", Limit: 1})
		c.ReactiveError(errors.New("something else"))

		families := gather(t, reg)
		assert.Equal(t, 1.0, counter(t, families, "app_reactive_errors_total", map[string]string{"type": "cycle"}))
		assert.Equal(t, 1.0, counter(t, families, "app_reactive_errors_total", map[string]string{"type": "reentrancy"}))
		assert.Equal(t, 1.0, counter(t, families, "app_reactive_errors_total", map[string]string{"type": "other"}))
	})

	t.Run("resource loads", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := New(WithRegistry(reg))

		ctx := c.ResourceLoadStarted(context.Background(), "user")
		c.ResourceLoadFinished(ctx, "user", nil)
		c.ResourceLoadFinished(ctx, "user", errors.New("boom"))
		c.ResourceLoadFinished(ctx, "user", sig.ErrStaleResource)

		families := gather(t, reg)
		for _, result := range []string{"ok", "error", "stale"} {
			assert.Equal(t, 1.0, counter(t, families, "sig_resource_loads_total", map[string]string{"resource": "user", "result": result}), result)
		}

		hist := families["sig_resource_load_duration_seconds"].GetMetric()[0].GetHistogram()
		assert.Equal(t, uint64(3), hist.GetSampleCount())
	})

	t.Run("gauges read the stats", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		New(WithRegistry(reg), WithStats(func() sig.Stats {
			return sig.Stats{Signals: 3, Computeds: 2, Effects: 1, Pending: 4}
		}))

		families := gather(t, reg)
		assert.Equal(t, 3.0, gauge(t, families, "sig_live_signals"))
		assert.Equal(t, 2.0, gauge(t, families, "sig_live_computeds"))
		assert.Equal(t, 1.0, gauge(t, families, "sig_live_effects"))
		assert.Equal(t, 4.0, gauge(t, families, "sig_pending_effects"))
	})

	t.Run("flush histogram", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := New(WithRegistry(reg))

		c.Flushed(3, time.Millisecond)

		families := gather(t, reg)
		hist := families["sig_flush_effects"].GetMetric()[0].GetHistogram()
		assert.Equal(t, uint64(1), hist.GetSampleCount())
		assert.Equal(t, 3.0, hist.GetSampleSum())
	})
}

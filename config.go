package sig

import (
	"log/slog"

	"github.com/AnatoleLucet/sig/v2/internal"
)

// DefaultMaxEffectReruns is how many times one effect may run in a single flush
// before the flush is aborted with a ReentrancyLimitError.
const DefaultMaxEffectReruns = internal.DefaultMaxEffectReruns

// Instrument receives engine events, see the metrics and tracing packages.
// Its methods are called with the runtime locked and must not touch signals.
type Instrument = internal.Instrument

// NopInstrument ignores every event. Embed it to implement part of Instrument.
type NopInstrument = internal.NopInstrument

type Stats = internal.Stats

// ConfigOption changes the runtime configuration.
type ConfigOption func(*internal.Config)

// WithLogger sets the logger used for stale resource results, dropped panics and aborted
// flushes. nil selects slog.Default().
func WithLogger(logger *slog.Logger) ConfigOption {
	return func(c *internal.Config) { c.Logger = logger }
}

// WithMaxEffectReruns bounds how many times an effect may run in one flush. n <= 0 selects
// DefaultMaxEffectReruns.
func WithMaxEffectReruns(n int) ConfigOption {
	return func(c *internal.Config) { c.MaxEffectReruns = n }
}

// WithInstrument installs the instruments, replacing any previous ones.
func WithInstrument(list ...Instrument) ConfigOption {
	return func(c *internal.Config) { c.Instrument = internal.Instruments(list...) }
}

// Configure applies opts on top of the current configuration.
func Configure(opts ...ConfigOption) {
	r := internal.GetRuntime()

	r.Do(func() {
		cfg := r.Config()
		for _, opt := range opts {
			opt(&cfg)
		}
		r.Configure(cfg)
	})
}

// Instruments combines several instruments into one.
func Instruments(list ...Instrument) Instrument {
	return internal.Instruments(list...)
}

// RuntimeStats reports the number of live nodes and pending effects.
func RuntimeStats() Stats {
	return internal.GetRuntime().Stats()
}

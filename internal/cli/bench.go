package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/AnatoleLucet/sig/v2"
	"github.com/spf13/cobra"
)

// BenchResult summarizes one bench run.
type BenchResult struct {
	Signals    int
	Computeds  int
	Effects    int
	Writes     int
	Batch      int
	EffectRuns int
	Elapsed    time.Duration
}

// NewBenchCommand creates the bench command.
func NewBenchCommand(rootOpts *RootOptions) *cobra.Command {
	var flags BenchConfig

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure propagation through a synthetic graph",
		Long: `Build a graph of signals, one computed per pair of signals and effects
reading the computeds, then apply writes in batches and report how many effect
runs they caused and how long it took.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config.Bench

			f := cmd.Flags()
			if f.Changed("signals") {
				cfg.Signals = flags.Signals
			}
			if f.Changed("effects") {
				cfg.Effects = flags.Effects
			}
			if f.Changed("writes") {
				cfg.Writes = flags.Writes
			}
			if f.Changed("batch") {
				cfg.Batch = flags.Batch
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			rootOpts.Logger.Debug("starting bench", "signals", cfg.Signals, "effects", cfg.Effects, "writes", cfg.Writes)
			result := runBench(cfg)
			printBench(cmd.OutOrStdout(), result)

			return nil
		},
	}

	defaults := DefaultConfig().Bench
	cmd.Flags().IntVar(&flags.Signals, "signals", defaults.Signals, "number of signals")
	cmd.Flags().IntVar(&flags.Effects, "effects", defaults.Effects, "number of effects")
	cmd.Flags().IntVar(&flags.Writes, "writes", defaults.Writes, "number of signal writes")
	cmd.Flags().IntVar(&flags.Batch, "batch", defaults.Batch, "writes per batch")

	return cmd
}

func runBench(cfg BenchConfig) BenchResult {
	result := BenchResult{
		Signals: cfg.Signals,
		Effects: cfg.Effects,
		Writes:  cfg.Writes,
		Batch:   cfg.Batch,
	}

	owner := sig.NewOwner()
	defer owner.Dispose()

	var signals []*sig.Signal[int]
	owner.Run(func() error {
		signals = make([]*sig.Signal[int], cfg.Signals)
		for i := range signals {
			signals[i] = sig.NewSignal(0)
		}

		computeds := make([]*sig.Computed[int], cfg.Signals/2)
		for i := range computeds {
			left, right := signals[2*i], signals[2*i+1]
			computeds[i] = sig.NewComputed(func() int { return left.Read() + right.Read() })
		}
		result.Computeds = len(computeds)

		for i := range cfg.Effects {
			c := computeds[i%len(computeds)]
			sig.NewEffect(func() {
				c.Read()
				result.EffectRuns++
			})
		}

		return nil
	})

	// creation runs are not part of the measurement
	result.EffectRuns = 0

	start := time.Now()
	for written := 0; written < cfg.Writes; {
		sig.NewBatch(func() {
			for j := 0; j < cfg.Batch && written < cfg.Writes; j++ {
				signals[written%len(signals)].Update(func(v int) int { return v + 1 })
				written++
			}
		})
	}
	result.Elapsed = time.Since(start)

	return result
}

func printBench(w io.Writer, r BenchResult) {
	fmt.Fprintf(w, "graph:       %d signals, %d computeds, %d effects\n", r.Signals, r.Computeds, r.Effects)
	fmt.Fprintf(w, "writes:      %d in batches of %d\n", r.Writes, r.Batch)
	fmt.Fprintf(w, "effect runs: %d\n", r.EffectRuns)
	fmt.Fprintf(w, "elapsed:     %s\n", r.Elapsed)

	if secs := r.Elapsed.Seconds(); secs > 0 {
		fmt.Fprintf(w, "throughput:  %.0f writes/s\n", float64(r.Writes)/secs)
	}
}

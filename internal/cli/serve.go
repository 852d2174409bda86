package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AnatoleLucet/sig/v2"
	"github.com/AnatoleLucet/sig/v2/metrics"
	"github.com/AnatoleLucet/sig/v2/tracing"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type ServeOptions struct {
	Addr     string
	Interval time.Duration
	Duration time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a ticking simulation and expose its metrics",
		Long: `Run a small reactive graph driven by a ticker and serve Prometheus
metrics about the engine on /metrics, runtime stats on /stats and a health
check on /healthz.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				opts.Addr = rootOpts.Config.Metrics.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if opts.Duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.Duration)
				defer cancel()
			}

			return runServe(ctx, opts, rootOpts.Logger)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", DefaultConfig().Metrics.Addr, "listen address")
	cmd.Flags().DurationVar(&opts.Interval, "interval", time.Second, "time between ticks")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 runs until interrupted)")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	sig.Configure(sig.WithInstrument(metrics.New(metrics.WithRegistry(reg)), tracing.New()))
	defer sig.Configure(sig.WithInstrument())

	sim := newSimulation(logger)
	defer sim.dispose()

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           newRouter(reg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(ln)
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			logger.Info("shutting down")
			return server.Shutdown(shutdownCtx)

		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err

		case <-ticker.C:
			sim.tick()
		}
	}
}

func newRouter(reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Warn("failed to write response", "path", r.URL.Path, "error", err)
		}
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sig.RuntimeStats()); err != nil {
			logger.Warn("failed to write response", "path", r.URL.Path, "error", err)
		}
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return r
}

// simulation is the graph served by serve: a ticking signal, computeds derived from it,
// effects logging them and a resource refetched on every tick.
type simulation struct {
	owner *sig.Owner
	ticks *sig.Signal[int]
	res   *sig.Resource[int, int]
}

func newSimulation(logger *slog.Logger) *simulation {
	s := &simulation{owner: sig.NewOwner()}

	s.owner.Run(func() error {
		s.ticks = sig.NewSignal(0, sig.WithName[int]("ticks"))

		minute := sig.NewComputed(func() int { return s.ticks.Read() / 60 }, sig.WithName[int]("minute"))
		even := sig.NewComputed(func() bool { return s.ticks.Read()%2 == 0 }, sig.WithName[bool]("even"))

		sig.NewRenderEffect(func() {
			logger.Debug("tick", "n", s.ticks.Read(), "even", even.Read())
		}, sig.WithEffectName("log-tick"))

		sig.NewEffect(func() {
			logger.Info("minute", "n", minute.Read())
		}, sig.WithEffectName("log-minute"))

		s.res = sig.NewResourceWithSource(s.ticks.Read, func(ctx context.Context, n int) (int, error) {
			select {
			case <-time.After(10 * time.Millisecond):
				return n * n, nil
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}, sig.WithResourceName[int]("square"))

		return nil
	})

	return s
}

func (s *simulation) tick() {
	s.ticks.Update(func(n int) int { return n + 1 })
}

func (s *simulation) dispose() {
	s.res.Dispose()
	s.owner.Dispose()
}

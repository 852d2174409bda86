package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/AnatoleLucet/sig/v2"
	"github.com/spf13/cobra"
)

type scenario struct {
	name string
	run  func(w io.Writer)

	// waits on resource loads, which cannot commit while an owner is running
	waits bool
}

var scenarios = []scenario{
	{name: "end-to-end", run: demoEndToEnd},
	{name: "glitch-free", run: demoGlitchFree},
	{name: "memoization", run: demoMemoization},
	{name: "dynamic-dependencies", run: demoDynamicDependencies},
	{name: "untrack", run: demoUntrack},
	{name: "resource-race", run: demoResourceRace, waits: true},
	{name: "cycle", run: demoCycle},
	{name: "reentrancy", run: demoReentrancy},
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo [scenario...]",
		Short: "Walk through the engine guarantees",
		Long: `Run small reactive graphs that show each guarantee of the engine and
print what their effects observed. Without arguments every scenario runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.OutOrStdout(), rootOpts.Logger, args)
		},
	}

	return cmd
}

func runDemo(w io.Writer, logger *slog.Logger, names []string) error {
	selected := scenarios
	if len(names) > 0 {
		selected = nil
		for _, name := range names {
			s, ok := findScenario(name)
			if !ok {
				return fmt.Errorf("unknown scenario %q", name)
			}
			selected = append(selected, s)
		}
	}

	for i, s := range selected {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s\n", s.name)
		logger.Debug("running scenario", "scenario", s.name)

		if s.waits {
			s.run(w)
			continue
		}

		// nodes of a scenario are released before the next one starts
		owner := sig.NewOwner()
		owner.Run(func() error {
			s.run(w)
			return nil
		})
		owner.Dispose()
	}

	return nil
}

func findScenario(name string) (scenario, bool) {
	for _, s := range scenarios {
		if s.name == name {
			return s, true
		}
	}
	return scenario{}, false
}

func demoEndToEnd(w io.Writer) {
	c := sig.NewSignal(0)
	d := sig.NewComputed(func() int { return c.Read() * 2 })

	log := []int{}
	sig.NewEffect(func() {
		log = append(log, d.Read())
	})

	c.Write(3)
	fmt.Fprintf(w, "log = %v\n", log)
}

func demoGlitchFree(w io.Writer) {
	a := sig.NewSignal(0)
	b := sig.NewSignal(0)
	sum := sig.NewComputed(func() int { return a.Read() + b.Read() })

	runs := 0
	sig.NewEffect(func() {
		runs++
		fmt.Fprintf(w, "effect: a=%d b=%d sum=%d\n", a.Read(), b.Read(), sum.Read())
	})

	fmt.Fprintln(w, "batch: a=1 b=2")
	sig.NewBatch(func() {
		a.Write(1)
		b.Write(2)
	})
	fmt.Fprintf(w, "runs = %d\n", runs)
}

func demoMemoization(w io.Writer) {
	count := sig.NewSignal(1)
	parity := sig.NewComputed(func() string {
		if count.Read()%2 == 0 {
			return "even"
		}
		return "odd"
	})

	sig.NewEffect(func() {
		fmt.Fprintf(w, "effect: %s\n", parity.Read())
	})

	for _, v := range []int{3, 5, 6} {
		fmt.Fprintf(w, "write %d\n", v)
		count.Write(v)
	}
}

func demoDynamicDependencies(w io.Writer) {
	useA := sig.NewSignal(true)
	a := sig.NewSignal("a")
	b := sig.NewSignal("b")
	pick := sig.NewComputed(func() string {
		if useA.Read() {
			return a.Read()
		}
		return b.Read()
	})

	sig.NewEffect(func() {
		fmt.Fprintf(w, "effect: %s\n", pick.Read())
	})

	fmt.Fprintln(w, "switch to b")
	useA.Write(false)
	fmt.Fprintln(w, "write a")
	a.Write("a2")
	fmt.Fprintln(w, "write b")
	b.Write("b2")
}

func demoUntrack(w io.Writer) {
	count := sig.NewSignal(0)
	other := sig.NewSignal(0)

	sig.NewEffect(func() {
		c := sig.Untrack(count.Read)
		fmt.Fprintf(w, "effect: count=%d other=%d\n", c, other.Read())
	})

	fmt.Fprintln(w, "write count")
	count.Write(1)
	fmt.Fprintln(w, "write other")
	other.Write(1)
}

func demoResourceRace(w io.Writer) {
	releaseFirst := make(chan struct{})

	user := sig.NewResource(func(_ context.Context, id int) (string, error) {
		if id == 1 {
			<-releaseFirst
		}
		return fmt.Sprintf("user %d", id), nil
	}, sig.WithInitial("nobody"), sig.WithResourceName[string]("user"))

	fmt.Fprintln(w, "load 1 (slow)")
	first := user.Load(context.Background(), 1)
	fmt.Fprintln(w, "load 2")
	<-user.Load(context.Background(), 2)
	fmt.Fprintf(w, "data = %s, loading = %t\n", user.Data(), user.Loading())

	close(releaseFirst)
	<-first
	fmt.Fprintf(w, "load 1 finished, data = %s\n", user.Data())
}

func demoCycle(w io.Writer) {
	var b *sig.Computed[int]
	a := sig.NewComputed(func() int { return b.Read() + 1 }, sig.WithName[int]("a"))
	b = sig.NewComputed(func() int { return a.Read() + 1 }, sig.WithName[int]("b"))

	fmt.Fprintf(w, "read a: %v\n", recoverError(func() { a.Read() }))
}

func demoReentrancy(w io.Writer) {
	count := sig.NewSignal(0)

	err := recoverError(func() {
		sig.NewEffect(func() {
			count.Write(count.Read() + 1)
		}, sig.WithEffectName("feedback"))
	})

	var limit *sig.ReentrancyLimitError
	if errors.As(err, &limit) {
		fmt.Fprintf(w, "aborted: %v\n", err)
	}
}

func recoverError(fn func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			if e, ok := v.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("panic: %v", v)
		}
	}()

	fn()
	return nil
}

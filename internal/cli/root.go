package cli

import (
	"log/slog"

	"github.com/AnatoleLucet/sig/v2"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath      string
	LogLevel        string
	MaxEffectReruns int

	// resolved by the root command before any subcommand runs
	Config Config
	Logger *slog.Logger
}

// NewRootCommand creates the root command for the sig CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sig",
		Short: "sig - fine-grained reactive state",
		Long: `Run and measure the sig reactive engine.

Signals hold values, computeds derive memoized values from them, and effects
re-run whenever something they read changes.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().IntVar(&opts.MaxEffectReruns, "max-effect-reruns", 0, "runs allowed per effect in one flush")

	cmd.AddCommand(NewDemoCommand(opts))
	cmd.AddCommand(NewBenchCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// resolve loads the config file, applies flag overrides and configures the runtime.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg := DefaultConfig()
	if o.ConfigPath != "" {
		loaded, err := LoadConfig(o.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.LogLevel
	}
	if flags.Changed("max-effect-reruns") {
		cfg.MaxEffectReruns = o.MaxEffectReruns
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := parseLevel(cfg.LogLevel)
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	o.Config = cfg

	sig.Configure(
		sig.WithLogger(o.Logger),
		sig.WithMaxEffectReruns(cfg.MaxEffectReruns),
	)

	return nil
}

// Package cli is the command line of the CIF3 connector.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stateforward/go-contract/pkg/cif3"
	"github.com/stateforward/go-contract/pkg/connector"
	"github.com/stateforward/go-contract/pkg/data"
	"github.com/stateforward/go-contract/pkg/telemetry"
)

// Version is set at build time.
var Version = "dev"

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitIO      = 2
)

type options struct {
	config  string
	inputs  []string
	outputs []string
	export  bool
	urgent  string
	require string
	level   string
	trace   string
}

type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer
}

func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	opts := &options{}
	app.root = &cobra.Command{
		Use:   "cif3connector -i <file.data>... [-o <composition.cif> <orchestration.cif>] [-a]",
		Short: "Translate contract automata into CIF3 plants",
		Long: `cif3connector composes principal contract automata, synthesizes their
orchestration and writes both as CIF3 plant specifications.

Several inputs are principals: lazy transitions are encoded and the
principals are composed under strong agreement. A single input is taken
as an already composed automaton.

Examples:
  cif3connector -i Dealer.data Player.data Player.data
  cif3connector -i Composed.data -o Comp.cif Orch.cif -a`,
		Version:       Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, opts, args)
		},
	}

	flags := app.root.Flags()
	flags.StringVarP(&opts.config, "config", "c", "", "Path to a yaml configuration file")
	flags.StringSliceVarP(&opts.inputs, "input", "i", nil, "Principal automata ("+data.Extension+")")
	flags.StringSliceVarP(&opts.outputs, "output", "o", nil, "Composition and orchestration plant files ("+cif3.Extension+")")
	flags.BoolVarP(&opts.export, "export", "a", false, "Also export the automata in the "+data.Extension+" format")
	flags.StringVar(&opts.urgent, "urgent", "", "Urgent transition policy: controllable, suppressed or undeclared")
	flags.StringVar(&opts.require, "requirement", "", "Agreement kept by the orchestration: strong or weak")
	flags.StringVar(&opts.level, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&opts.trace, "trace", "", "Trace exporter: none or stdout")
	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the command line with args instead of os.Args.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// ExitCode maps the error of a run to the process exit status.
func ExitCode(err error) int {
	var ioErr *connector.IOError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ioErr):
		return ExitIO
	}
	return ExitFailure
}

// configure merges the configuration file, flags and positional
// arguments, in increasing precedence. Positional .data files join the
// inputs and positional .cif files the outputs, so "-i a.data b.data
// -o c.cif o.cif" reads as expected.
func (a *App) configure(cmd *cobra.Command, opts *options, args []string) (connector.Config, error) {
	cfg := connector.DefaultConfig()
	if opts.config != "" {
		loaded, err := connector.LoadConfig(opts.config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	inputs, outputs := opts.inputs, opts.outputs
	for _, arg := range args {
		switch filepath.Ext(arg) {
		case data.Extension:
			inputs = append(inputs, arg)
		case cif3.Extension:
			outputs = append(outputs, arg)
		default:
			return cfg, fmt.Errorf("unexpected argument %q", arg)
		}
	}
	if len(inputs) > 0 {
		cfg.Inputs = inputs
	}
	switch len(outputs) {
	case 0:
	case 1:
		cfg.Composition = outputs[0]
	case 2:
		cfg.Composition, cfg.Orchestration = outputs[0], outputs[1]
	default:
		return cfg, fmt.Errorf("expected at most two outputs, got %d", len(outputs))
	}

	if cmd.Flags().Changed("export") {
		cfg.ExportAutomata = opts.export
	}
	if opts.urgent != "" {
		cfg.UrgentPolicy = opts.urgent
	}
	if opts.require != "" {
		cfg.Requirement = opts.require
	}
	if opts.level != "" {
		cfg.LogLevel = opts.level
	}
	if opts.trace != "" {
		cfg.Trace = opts.trace
	}
	return cfg, nil
}

func (a *App) run(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := a.configure(cmd, opts, args)
	if err != nil {
		return err
	}
	if len(cfg.Inputs) == 0 {
		return cmd.Usage()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	provider, err := telemetry.NewProvider(telemetry.Exporter(cfg.Trace), a.stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(context.WithoutCancel(cmd.Context())); err != nil {
			logger.Warn("trace shutdown", "error", err)
		}
	}()

	c, err := connector.New(cfg, connector.WithLogger(logger), connector.WithTracerProvider(provider))
	if err != nil {
		return err
	}
	result, err := c.Run(cmd.Context())
	if err != nil {
		return err
	}
	for _, file := range result.Files {
		fmt.Fprintln(a.stdout, file)
	}
	return nil
}

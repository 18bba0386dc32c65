// Package connector runs a translation: principals are loaded, encoded and
// composed, and the composition and its orchestration are written as CIF3
// plants.
package connector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stateforward/go-contract"
	"github.com/stateforward/go-contract/pkg/cif3"
	"github.com/stateforward/go-contract/pkg/compose"
	"github.com/stateforward/go-contract/pkg/data"
	"github.com/stateforward/go-contract/pkg/lazy"
	"github.com/stateforward/go-contract/pkg/mpc"
	"github.com/stateforward/go-contract/pkg/requirement"
	"github.com/stateforward/go-contract/pkg/sink"
	"github.com/stateforward/go-contract/pkg/telemetry"
)

var (
	ErrNoInputs     = errors.New("no input automata")
	ErrLazyComposed = errors.New("composed automaton has lazy transitions")
)

// IOError reports a failed read or write. It is the only failure the
// command line maps to its own exit code.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (err *IOError) Error() string {
	return err.Op + " " + err.Path + ": " + err.Err.Error()
}

func (err *IOError) Unwrap() error {
	return err.Err
}

type Composer interface {
	Compose(ctx context.Context, automata []*contract.Automaton, prune requirement.Requirement) (*contract.Automaton, error)
}

type ComposerFunc func(ctx context.Context, automata []*contract.Automaton, prune requirement.Requirement) (*contract.Automaton, error)

func (f ComposerFunc) Compose(ctx context.Context, automata []*contract.Automaton, prune requirement.Requirement) (*contract.Automaton, error) {
	return f(ctx, automata, prune)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, a *contract.Automaton, req requirement.Requirement) (*contract.Automaton, error)
}

type SynthesizerFunc func(ctx context.Context, a *contract.Automaton, req requirement.Requirement) (*contract.Automaton, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, a *contract.Automaton, req requirement.Requirement) (*contract.Automaton, error) {
	return f(ctx, a, req)
}

type Option func(*Connector)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Connector) { c.logger = logger }
}

func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *Connector) { c.tracer = telemetry.Tracer(provider) }
}

func WithComposer(composer Composer) Option {
	return func(c *Connector) { c.composer = composer }
}

func WithSynthesizer(synthesizer Synthesizer) Option {
	return func(c *Connector) { c.synthesizer = synthesizer }
}

// WithForbidden gives every composed state satisfying forbidden a forced
// escape into a sink before synthesis.
func WithForbidden(forbidden sink.Predicate, maybeOptions ...sink.Option) Option {
	return func(c *Connector) {
		c.forbidden = forbidden
		c.sinkOptions = maybeOptions
	}
}

type Connector struct {
	config      Config
	urgent      cif3.UrgentPolicy
	requirement requirement.Requirement
	logger      *slog.Logger
	tracer      trace.Tracer
	composer    Composer
	synthesizer Synthesizer
	forbidden   sink.Predicate
	sinkOptions []sink.Option
}

// Result is what a run produced.
type Result struct {
	RunID         string
	Composition   *contract.Automaton
	Orchestration *contract.Automaton
	// Files are the paths written, in order.
	Files []string
}

// New checks cfg and returns a connector for it.
func New(cfg Config, maybeOptions ...Option) (*Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	urgent, err := cif3.ParseUrgentPolicy(cfg.UrgentPolicy)
	if err != nil {
		return nil, err
	}
	req, err := requirement.Parse(cfg.Requirement)
	if err != nil {
		return nil, err
	}
	c := &Connector{
		config:      cfg,
		urgent:      urgent,
		requirement: req,
		logger:      slog.Default(),
		tracer:      telemetry.Tracer(nil),
		composer:    ComposerFunc(compose.Compose),
		synthesizer: SynthesizerFunc(mpc.Synthesize),
	}
	for _, option := range maybeOptions {
		option(c)
	}
	return c, nil
}

// Run performs the translation. A single input is taken as an already
// composed automaton; several inputs are principals. The first failure
// ends the run; files written before it stay in place, each complete.
func (c *Connector) Run(ctx context.Context) (result *Result, err error) {
	runID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	result = &Result{RunID: runID.String()}
	logger := c.logger.With("run", result.RunID)
	ctx, span := telemetry.Start(ctx, c.tracer, "run",
		attribute.String("run.id", result.RunID),
		attribute.Int("run.inputs", len(c.config.Inputs)),
	)
	defer func() { telemetry.End(span, err) }()

	logger.Info("translation started", "inputs", c.config.Inputs)
	composition, err := c.composition(ctx, logger)
	if err != nil {
		return result, err
	}
	result.Composition = composition
	if err := c.write(ctx, logger, result, c.config.Composition, composition); err != nil {
		return result, err
	}

	orchestration, err := c.synthesize(ctx, composition)
	if err != nil {
		return result, err
	}
	logger.Info("orchestration synthesized", "states", len(orchestration.States()), "transitions", orchestration.Len())
	result.Orchestration = orchestration
	if err := c.write(ctx, logger, result, c.config.Orchestration, orchestration); err != nil {
		return result, err
	}
	logger.Info("translation finished", "files", result.Files)
	return result, nil
}

func (c *Connector) composition(ctx context.Context, logger *slog.Logger) (*contract.Automaton, error) {
	principals := make([]*contract.Automaton, 0, len(c.config.Inputs))
	for _, path := range c.config.Inputs {
		a, err := c.load(ctx, path)
		if err != nil {
			return nil, err
		}
		logger.Debug("automaton loaded", "file", path, "rank", a.Rank(), "states", len(a.States()), "transitions", a.Len())
		principals = append(principals, a)
	}

	if len(principals) == 1 {
		if principals[0].HasLazy() {
			return nil, fmt.Errorf("%s: %w", c.config.Inputs[0], ErrLazyComposed)
		}
		logger.Info("single input taken as composed", "file", c.config.Inputs[0])
		return c.escape(ctx, logger, principals[0])
	}

	composed, err := c.compose(ctx, principals)
	if err != nil {
		return nil, err
	}
	logger.Info("principals composed", "principals", len(principals), "states", len(composed.States()), "transitions", composed.Len())
	return c.escape(ctx, logger, composed)
}

func (c *Connector) compose(ctx context.Context, principals []*contract.Automaton) (composed *contract.Automaton, err error) {
	ctx, span := telemetry.Start(ctx, c.tracer, "compose")
	defer func() { telemetry.End(span, err) }()

	encoded, err := lazy.EncodePrincipals(ctx, principals)
	if err != nil {
		return nil, err
	}
	composed, err = c.composer.Compose(ctx, encoded, requirement.Not(c.requirement))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(telemetry.Automaton("composition", composed)...)
	return composed, nil
}

func (c *Connector) escape(ctx context.Context, logger *slog.Logger, a *contract.Automaton) (*contract.Automaton, error) {
	if c.forbidden == nil {
		return a, nil
	}
	ctx, span := telemetry.Start(ctx, c.tracer, "escape")
	escaped, err := sink.AddEscapes(ctx, a, c.forbidden, c.sinkOptions...)
	telemetry.End(span, err)
	if err != nil {
		return nil, err
	}
	logger.Info("bad states escaped", "escapes", escaped.Len()-a.Len())
	return escaped, nil
}

func (c *Connector) synthesize(ctx context.Context, a *contract.Automaton) (*contract.Automaton, error) {
	ctx, span := telemetry.Start(ctx, c.tracer, "synthesize", telemetry.Automaton("composition", a)...)
	orchestration, err := c.synthesizer.Synthesize(ctx, a, c.requirement)
	telemetry.End(span, err)
	return orchestration, err
}

func (c *Connector) load(ctx context.Context, path string) (*contract.Automaton, error) {
	_, span := telemetry.Start(ctx, c.tracer, "load", attribute.String("file", path))
	a, err := data.Load(path)
	if err != nil {
		err = ioError("load", path, err)
	}
	telemetry.End(span, err)
	return a, err
}

// write renders a to path and, when exporting, saves it next to it in the
// native format.
func (c *Connector) write(ctx context.Context, logger *slog.Logger, result *Result, path string, a *contract.Automaton) (err error) {
	_, span := telemetry.Start(ctx, c.tracer, "write", attribute.String("file", path))
	defer func() { telemetry.End(span, err) }()

	if err := writePlant(path, a, cif3.WithUrgentPolicy(c.urgent)); err != nil {
		return ioError("write", path, err)
	}
	result.Files = append(result.Files, path)
	logger.Info("plant written", "file", path)

	if !c.config.ExportAutomata {
		return nil
	}
	if a.Rank() == 0 {
		logger.Warn("empty automaton not exported", "file", path)
		return nil
	}
	native := exported(path)
	if err := data.Save(a, native); err != nil {
		return ioError("export", native, err)
	}
	result.Files = append(result.Files, native)
	logger.Info("automaton exported", "file", native)
	return nil
}

func writePlant(path string, a *contract.Automaton, maybeOptions ...cif3.Option) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return err
	}
	defer pending.Cleanup()
	if err := cif3.Generate(pending, a, maybeOptions...); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}

// ioError wraps filesystem failures in an IOError and passes everything
// else through with its location.
func ioError(op, path string, err error) error {
	var pathErr *fs.PathError
	var linkErr *os.LinkError
	if errors.As(err, &pathErr) || errors.As(err, &linkErr) {
		return &IOError{Op: op, Path: path, Err: err}
	}
	return fmt.Errorf("%s %s: %w", op, path, err)
}

// Package telemetry wires tracing for translation runs.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/stateforward/go-contract"
)

// Name is the instrumentation scope of every tracer handed out here.
const Name = "github.com/stateforward/go-contract"

type Exporter string

const (
	ExporterNone   Exporter = "none"
	ExporterStdout Exporter = "stdout"
)

// Provider owns a tracer provider and whatever must be flushed when the
// process is done with it.
type Provider struct {
	trace.TracerProvider
	shutdown func(context.Context) error
}

// NewProvider returns a no-op provider for ExporterNone (or ""), and a
// synchronous provider writing pretty-printed spans to w for
// ExporterStdout.
func NewProvider(exporter Exporter, w io.Writer) (*Provider, error) {
	switch exporter {
	case "", ExporterNone:
		return &Provider{TracerProvider: noop.NewTracerProvider(), shutdown: func(context.Context) error { return nil }}, nil
	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exp),
			sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", "cif3connector"))),
		)
		return &Provider{TracerProvider: tp, shutdown: tp.Shutdown}, nil
	}
	return nil, fmt.Errorf("unknown trace exporter %q", exporter)
}

func (provider *Provider) Shutdown(ctx context.Context) error {
	return provider.shutdown(ctx)
}

// Tracer returns the package tracer of provider, or of the global
// provider when provider is nil.
func Tracer(provider trace.TracerProvider) trace.Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return provider.Tracer(Name)
}

// Start opens the span of one translation stage.
func Start(ctx context.Context, tracer trace.Tracer, stage string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "translate."+stage, trace.WithAttributes(attributes...))
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Automaton describes the size of a under prefix.
func Automaton(prefix string, a *contract.Automaton) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(prefix+".rank", a.Rank()),
		attribute.Int(prefix+".states", len(a.States())),
		attribute.Int(prefix+".transitions", a.Len()),
	}
}

// Package telemetry sets up the sideseat server's own OTel tracer provider,
// distinct from the OTLP trace/log/metric payloads the server ingests from
// other applications. This is self-instrumentation of the ingest pipeline
// itself, adapted from the teacher's own tracer-provider bootstrap (which
// wired a stdout exporter alongside a Braintrust-bound OTLP exporter) down
// to the stdout exporter alone, since sideseat has no upstream Braintrust
// endpoint to export to.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracerName identifies spans emitted by the ingest pipeline in the
// process's own tracer provider.
const TracerName = "github.com/sideseat/sideseat/ingest"

// NewTracerProvider builds a TracerProvider that batches spans to stdout
// and installs it as the global provider. enabled controls whether a real
// exporter is wired up or a no-op provider is returned instead: self-tracing
// is opt-in (spec's ambient stack doesn't mandate it), so callers that don't
// ask for it pay no export cost.
func NewTracerProvider(enabled bool) (*sdktrace.TracerProvider, error) {
	if !enabled {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Shutdown flushes and stops tp, swallowing a nil tp for callers that never
// built one.
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

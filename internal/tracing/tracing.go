// Package tracing wires OpenTelemetry into the routing core. Spans are
// always emitted through the global tracer; the OTLP exporter is compiled
// in only with -tags otel, so default builds pay a no-op.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/clawroute/internal/config"
)

const tracerName = "github.com/nextlevelbuilder/clawroute"

// Tracer returns the module tracer from the installed provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// Init installs the trace exporter when telemetry is enabled and the binary
// was built with the otel tag. Returns a shutdown func to flush spans.
func Init(ctx context.Context, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	return initExporter(ctx, cfg)
}

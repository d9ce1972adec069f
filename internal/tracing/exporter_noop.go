//go:build !otel

package tracing

import (
	"context"

	"github.com/nextlevelbuilder/clawroute/internal/config"
)

// Default builds carry no exporter; spans go to the no-op global provider.
func initExporter(_ context.Context, _ config.TelemetryConfig) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// Package observability provides the metrics and tracing hooks used by the
// projection pipeline together with expvar, Prometheus and JSON-lines
// implementations.
package observability

import (
	"context"
	"time"

	"vdypcore/pkg/domain"
)

// Operation names reported by the projection pipeline.
const (
	OpFipStart          = "stage_fip_start"
	OpVriStart          = "stage_vri_start"
	OpAdjust            = "stage_adjust"
	OpForward           = "stage_forward"
	OpBack              = "stage_back"
	OpPolygonProjection = "polygon_projection"
)

// StageOperation returns the operation name for a component run.
func StageOperation(c domain.Component) string {
	switch c {
	case domain.ComponentFipStart:
		return OpFipStart
	case domain.ComponentVriStart:
		return OpVriStart
	case domain.ComponentAdjust:
		return OpAdjust
	case domain.ComponentForward:
		return OpForward
	case domain.ComponentBack:
		return OpBack
	default:
		return "stage_" + string(c)
	}
}

// MetricsRecorder receives one observation per completed operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer opens spans around operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is closed exactly once with the operation's error, if any.
type TraceSpan interface {
	End(err error)
}

// NoopMetrics discards observations.
type NoopMetrics struct{}

// Observe implements MetricsRecorder.
func (NoopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// NoopTracer opens spans that record nothing.
type NoopTracer struct{}

// Start implements Tracer.
func (NoopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

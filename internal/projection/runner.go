package projection

import (
	"context"

	"vdypcore/pkg/domain"
)

// Job carries what a component run needs for one projection type.
type Job struct {
	Polygon *domain.Polygon
	Layer   domain.Layer
	// Folder is <executionFolder>/<projection type>.
	Folder string
	// FirstYear and TargetYear bound Forward and Back runs.
	FirstYear  int
	TargetYear int
	// CompatibilityOverride names a legacy compatibility variable file fed to
	// Forward and Back.
	CompatibilityOverride string
}

// ComponentRunner executes one growth-model component. It returns nil on
// success and never touches the projection ledger.
type ComponentRunner interface {
	Run(ctx context.Context, component domain.Component, job Job) *StageFailure
}

// RunnerFunc adapts a function to ComponentRunner.
type RunnerFunc func(ctx context.Context, component domain.Component, job Job) *StageFailure

// Run implements ComponentRunner.
func (f RunnerFunc) Run(ctx context.Context, component domain.Component, job Job) *StageFailure {
	return f(ctx, component, job)
}

// Package projection drives the growth stages of one polygon: Initial
// (with the FIP to VRI retry), Adjust, Forward and Back for every
// projection type, and records each outcome in an append-only ledger.
package projection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	blobcore "vdypcore/internal/blob/core"
	"vdypcore/internal/growth"
	"vdypcore/internal/observability"
	"vdypcore/internal/yield"
	"vdypcore/pkg/domain"
)

// Params are the run parameters of a polygon projection.
type Params struct {
	StartYear int
	EndYear   int
	Forward   bool
	Back      bool
	// WorkRoot holds one execution folder per run; empty means os.TempDir().
	WorkRoot string
	// Cleanup defaults to CleanupImmediate.
	Cleanup        CleanupStrategy
	RetentionDelay time.Duration
	// CompatibilityOverride is an optional legacy compatibility variable
	// file used by Forward and Back instead of computed variables.
	CompatibilityOverride string
}

// Result is the outcome of Context.Run.
type Result struct {
	RunID  string
	Record domain.RunRecord
	Tables []yield.Table
}

// Context owns the projection of one polygon. It is used once: Run, then
// Close.
type Context struct {
	polygon *domain.Polygon
	params  Params
	runner  ComponentRunner
	state   *State
	runID   string

	logger  Logger
	metrics observability.MetricsRecorder
	tracer  observability.Tracer
	archive Archive
	runs    domain.RunStore
	cleaner *Cleaner
	now     func() time.Time

	ran     bool
	closed  bool
	cleanup *CleanupHandle
}

// NewContext validates the polygon and the parameters and prepares a run.
func NewContext(p *domain.Polygon, params Params, runner ComponentRunner, opts ...Option) (*Context, error) {
	if p == nil {
		return nil, errors.New("projection: polygon required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if runner == nil {
		return nil, errors.New("projection: runner required")
	}
	if params.StartYear > params.EndYear {
		return nil, fmt.Errorf("projection: start year %d after end year %d", params.StartYear, params.EndYear)
	}
	if params.WorkRoot == "" {
		params.WorkRoot = os.TempDir()
	}
	if params.Cleanup == "" {
		params.Cleanup = CleanupImmediate
	}
	if params.RetentionDelay <= 0 {
		params.RetentionDelay = DefaultRetentionDelay
	}
	c := &Context{
		polygon: p,
		params:  params,
		runner:  runner,
		state:   NewState(p.ID),
		runID:   uuid.NewString(),
		logger:  noopLogger{},
		metrics: observability.NoopMetrics{},
		tracer:  observability.NoopTracer{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.params.Cleanup == CleanupDelayed && c.cleaner == nil {
		return nil, errors.New("projection: delayed cleanup requires a cleaner")
	}
	return c, nil
}

// RunID returns the id naming the execution folder and the run record.
func (c *Context) RunID() string {
	return c.runID
}

// State returns the projection ledger.
func (c *Context) State() *State {
	return c.state
}

// Run projects every layer of the polygon. Stage failures are recorded in
// the ledger and reported as messages; the returned error is reserved for
// ledger invariant violations, cancellation and infrastructure failures.
func (c *Context) Run(ctx context.Context) (res Result, err error) {
	ctx, span := c.tracer.Start(ctx, observability.OpPolygonProjection)
	started := c.now()
	defer func() {
		c.metrics.Observe(ctx, observability.OpPolygonProjection, err == nil, c.now().Sub(started))
		span.End(err)
	}()
	if c.ran {
		return Result{}, invariant("Run", "polygon %s already run", c.polygon.ID)
	}
	c.ran = true

	folder := filepath.Join(c.params.WorkRoot, c.runID)
	if err := os.MkdirAll(folder, 0o750); err != nil {
		return Result{}, fmt.Errorf("create execution folder: %w", err)
	}
	if err := c.state.SetExecutionFolder(folder); err != nil {
		return Result{}, err
	}
	if err := c.state.SetProjectionRange(c.params.StartYear, c.params.EndYear); err != nil {
		return Result{}, err
	}
	c.logger.Info("polygon projection started", "polygon", c.polygon.ID, "run", c.runID,
		"start", c.params.StartYear, "end", c.params.EndYear)

	types := c.polygon.ProjectionTypes()
	for _, t := range types {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		layer, _ := c.polygon.Layer(t)
		if err := c.projectType(ctx, t, *layer); err != nil {
			return Result{}, err
		}
	}

	res.RunID = c.runID
	for _, t := range types {
		table, err := c.buildTable(t)
		if err != nil {
			return Result{}, err
		}
		res.Tables = append(res.Tables, table)
	}
	res.Record = c.record(res.Tables, started)
	if c.archive != nil {
		keys, err := c.archiveRun(ctx, res.Tables)
		if err != nil {
			return Result{}, err
		}
		res.Record.ArtifactKeys = keys
	}
	if c.runs != nil {
		if err := c.runs.SaveRun(ctx, res.Record); err != nil {
			return Result{}, fmt.Errorf("save run record: %w", err)
		}
	}
	c.logger.Info("polygon projection finished", "polygon", c.polygon.ID, "run", c.runID,
		"projected", res.Record.Projected, "messages", len(res.Record.Messages))
	return res, nil
}

func (c *Context) typeFolder(t domain.ProjectionType) string {
	return filepath.Join(c.state.ExecutionFolder(), t.Dir())
}

// projectType runs the stages of one projection type, stopping at the first
// failure.
func (c *Context) projectType(ctx context.Context, t domain.ProjectionType, layer domain.Layer) error {
	start, end, err := c.narrowRange(t, layer)
	if err != nil {
		return err
	}
	job := Job{
		Polygon:               c.polygon,
		Layer:                 layer,
		Folder:                c.typeFolder(t),
		CompatibilityOverride: c.params.CompatibilityOverride,
	}

	failure, err := c.runInitial(ctx, t, job)
	if err != nil || failure != nil {
		return err
	}
	if failed, err := c.runStage(ctx, domain.ComponentAdjust, t, job); failed || err != nil {
		return err
	}

	reference := c.polygon.ReferenceYear
	back := c.params.Back && start < reference
	if c.params.Forward && end >= reference {
		job.FirstYear = start
		if back || start > reference {
			job.FirstYear = max(start, reference)
		}
		job.TargetYear = end
		if failed, err := c.runStage(ctx, domain.ComponentForward, t, job); failed || err != nil {
			return err
		}
	}
	if back {
		job.FirstYear = reference - 1
		job.TargetYear = start
		if _, err := c.runStage(ctx, domain.ComponentBack, t, job); err != nil {
			return err
		}
	}
	return nil
}

// narrowRange limits the range of t to the years its leading species has
// been established.
func (c *Context) narrowRange(t domain.ProjectionType, layer domain.Layer) (int, int, error) {
	start, end, err := c.state.ProjectionRange(t)
	if err != nil {
		return 0, 0, err
	}
	lead, ok := layer.LeadingSpecies()
	if !ok || lead.TotalAge <= 0 {
		return start, end, nil
	}
	established := int(math.Floor(float64(c.polygon.ReferenceYear)-lead.TotalAge)) + 1
	if established <= start {
		return start, end, nil
	}
	start = min(established, end)
	c.logger.Debug("projection range narrowed", "polygon", c.polygon.ID, "type", t, "start", start)
	return start, end, c.state.UpdateProjectionRange(t, start, end)
}

// runStage runs a single-component stage and records its outcome.
func (c *Context) runStage(ctx context.Context, component domain.Component, t domain.ProjectionType, job Job) (bool, error) {
	failure := c.runComponent(ctx, component, job)
	if err := c.state.SetProcessingResults(component.Stage(), t, failure); err != nil {
		return false, err
	}
	return failure != nil, nil
}

func (c *Context) runComponent(ctx context.Context, component domain.Component, job Job) *StageFailure {
	op := observability.StageOperation(component)
	ctx, span := c.tracer.Start(ctx, op)
	started := c.now()
	c.logger.Debug("stage started", "polygon", c.polygon.ID, "type", job.Layer.Type, "component", component)

	failure := c.runner.Run(ctx, component, job)

	elapsed := c.now().Sub(started)
	c.metrics.Observe(ctx, op, failure == nil, elapsed)
	if failure == nil {
		span.End(nil)
		c.logger.Info("stage finished", "polygon", c.polygon.ID, "type", job.Layer.Type,
			"component", component, "duration", elapsed)
		return nil
	}
	span.End(failure)
	c.logger.Warn("stage failed", "polygon", c.polygon.ID, "type", job.Layer.Type,
		"component", component, "code", int(failure.Code), "error", failure.Error(), "duration", elapsed)
	return failure
}

func (c *Context) buildTable(t domain.ProjectionType) (yield.Table, error) {
	start, end, err := c.state.ProjectionRange(t)
	if err != nil {
		return yield.Table{}, err
	}
	table, err := yield.Build(c.state, t, c.typeFolder(t), yield.Years{Start: start, End: end, Reference: c.polygon.ReferenceYear})
	if err != nil {
		return table, fmt.Errorf("build %s yield table: %w", t, err)
	}
	for _, stage := range []domain.ProjectionStage{domain.StageBack, domain.StageForward} {
		if year, ok := table.FirstYear(stage); ok {
			if err := c.state.SetFirstYearYieldLinesValid(stage, t, year); err != nil {
				return table, err
			}
		}
	}
	return table, nil
}

func (c *Context) record(tables []yield.Table, started time.Time) domain.RunRecord {
	rec := domain.RunRecord{
		RunID:       c.runID,
		PolygonID:   c.polygon.ID,
		FeatureID:   c.polygon.FeatureID,
		Projected:   c.state.PolygonWasProjected(),
		StartedAt:   started.UTC(),
		CompletedAt: c.now().UTC(),
	}
	for _, table := range tables {
		rec.Messages = append(rec.Messages, table.Messages...)
		rec.Layers = append(rec.Layers, c.layerSummary(table))
	}
	return rec
}

func (c *Context) layerSummary(table yield.Table) domain.LayerSummary {
	t := table.Type
	summary := domain.LayerSummary{Type: t, YieldRows: len(table.Rows)}
	summary.StartYear, summary.EndYear, _ = c.state.ProjectionRange(t)
	summary.GrowthModel, _ = c.state.GrowthModel(t)
	summary.ProcessingMode, _ = c.state.ProcessingMode(t)
	if len(table.Rows) > 0 {
		first := table.Rows[0].Year
		summary.FirstYieldYear = &first
	}
	for _, a := range c.state.Attempts(t) {
		summary.InitialAttempts = append(summary.InitialAttempts, a.Component)
	}
	for _, stage := range domain.AllProjectionStages() {
		s := domain.StageSummary{Stage: stage, Status: domain.StageNotRun}
		failure, err := c.state.ProcessingResults(stage, t)
		switch {
		case err != nil:
		case failure == nil:
			s.Status = domain.StageSucceeded
		default:
			s.Status = domain.StageFailed
			s.Component = failure.Component
			s.ReturnCode = int(failure.Code)
			s.Error = failure.Error()
		}
		if s.Status == domain.StageSucceeded {
			s.Component = stageComponent(stage, summary.GrowthModel)
		}
		summary.Stages = append(summary.Stages, s)
	}
	return summary
}

func stageComponent(stage domain.ProjectionStage, model domain.GrowthModel) domain.Component {
	switch stage {
	case domain.StageInitial:
		return model.Component()
	case domain.StageAdjust:
		return domain.ComponentAdjust
	case domain.StageForward:
		return domain.ComponentForward
	default:
		return domain.ComponentBack
	}
}

// archiveRun stores the yield tables and the control files of the run under
// runs/<run id>/<polygon id>/ and returns the keys written.
func (c *Context) archiveRun(ctx context.Context, tables []yield.Table) ([]string, error) {
	prefix := path.Join("runs", c.runID, c.polygon.ID)
	var keys []string
	put := func(key string, data []byte, contentType string) error {
		_, err := c.archive.Put(ctx, key, bytes.NewReader(data), blobcore.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"polygon": c.polygon.ID, "run": c.runID},
		})
		if err != nil {
			return fmt.Errorf("archive %s: %w", key, err)
		}
		keys = append(keys, key)
		return nil
	}
	for _, table := range tables {
		data, err := json.MarshalIndent(table, "", "  ")
		if err != nil {
			return keys, err
		}
		if err := put(path.Join(prefix, table.Type.Dir(), "yield.json"), data, "application/json"); err != nil {
			return keys, err
		}
		for _, component := range []domain.Component{domain.ComponentFipStart, domain.ComponentVriStart, domain.ComponentForward, domain.ComponentBack} {
			name := growth.ControlFileName(component)
			data, err := os.ReadFile(filepath.Join(c.typeFolder(table.Type), name)) // #nosec G304 -- inside the execution folder
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return keys, err
			}
			if err := put(path.Join(prefix, table.Type.Dir(), name), data, "text/plain"); err != nil {
				return keys, err
			}
		}
	}
	return keys, nil
}

// CleanupHandle returns the pending deletion scheduled by Close, if any.
func (c *Context) CleanupHandle() *CleanupHandle {
	return c.cleanup
}

// Close releases the execution folder according to the cleanup strategy.
// Deletion failures are logged, never returned.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	folder := c.state.ExecutionFolder()
	if folder == "" {
		return nil
	}
	switch c.params.Cleanup {
	case CleanupNone:
		c.logger.Debug("execution folder kept", "dir", folder)
	case CleanupDelayed:
		c.cleanup = c.cleaner.Schedule(folder, c.params.RetentionDelay)
		c.logger.Debug("execution folder cleanup scheduled", "dir", folder, "deadline", c.cleanup.Deadline())
	default:
		if err := os.RemoveAll(folder); err != nil {
			c.logger.Warn("execution folder cleanup failed", "dir", folder, "error", err)
		}
	}
	return nil
}

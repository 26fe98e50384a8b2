package projection

import (
	"context"

	"vdypcore/internal/growth"
	"vdypcore/pkg/domain"
)

// Attempt is one run of an Initial-stage component.
type Attempt struct {
	Component domain.Component  `json:"component"`
	Code      growth.ReturnCode `json:"code"`
	Error     string            `json:"error,omitempty"`
}

// Succeeded reports whether the attempt initialized the layer.
func (a Attempt) Succeeded() bool {
	return a.Code == growth.CodeOK && a.Error == ""
}

// RecordAttempt appends to the Initial-stage attempt log of t.
func (s *State) RecordAttempt(t domain.ProjectionType, a Attempt) {
	s.attempts[t] = append(s.attempts[t], a)
}

// Attempts returns the Initial-stage attempt log of t in order.
func (s *State) Attempts(t domain.ProjectionType) []Attempt {
	return append([]Attempt(nil), s.attempts[t]...)
}

// runInitial runs the Initial stage of t. The inventory standard selects
// the first algorithm; a FIP-start failure with a retry-eligible code
// switches the layer to VRI-start and re-attempts once. The outcome is
// recorded exactly once.
func (c *Context) runInitial(ctx context.Context, t domain.ProjectionType, job Job) (*StageFailure, error) {
	model := c.polygon.Standard.InitialGrowthModel()
	modelToken, err := c.state.SetGrowthModel(t, model)
	if err != nil {
		return nil, err
	}
	modeToken, err := c.state.SetProcessingMode(t, model.DefaultMode())
	if err != nil {
		return nil, err
	}

	failure := c.attempt(ctx, t, model.Component(), job)
	if failure.RetryEligible() {
		c.logger.Info("retrying initial stage with VRI-start",
			"polygon", c.polygon.ID, "type", t, "code", int(failure.Code), "reason", failure.Code.String())
		if err := c.state.ModifyGrowthModel(modelToken, domain.GrowthModelVRI); err != nil {
			return nil, err
		}
		if err := c.state.ModifyProcessingMode(modeToken, domain.ModeVriStartRetry); err != nil {
			return nil, err
		}
		failure = c.attempt(ctx, t, domain.ComponentVriStart, job)
	}
	if err := c.state.SetProcessingResults(domain.StageInitial, t, failure); err != nil {
		return nil, err
	}
	return failure, nil
}

func (c *Context) attempt(ctx context.Context, t domain.ProjectionType, component domain.Component, job Job) *StageFailure {
	failure := c.runComponent(ctx, component, job)
	a := Attempt{Component: component}
	if failure != nil {
		a.Code = failure.Code
		a.Error = failure.Error()
	}
	c.state.RecordAttempt(t, a)
	return failure
}

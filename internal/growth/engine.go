package growth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Engine runs the growth routines. Each call reads the control file at
// controlFile, resolves its inputs and outputs relative to the control file
// directory and returns the routine's return code. A non-nil error reports
// a failure to read or write files and always comes with CodeIOFailure.
type Engine interface {
	FipStart(ctx context.Context, controlFile string) (ReturnCode, error)
	VriStart(ctx context.Context, controlFile string) (ReturnCode, error)
	Forward(ctx context.Context, controlFile string) (ReturnCode, error)
	Back(ctx context.Context, controlFile string) (ReturnCode, error)
}

// ModelEngine is the built-in Engine.
type ModelEngine struct {
	overrides     map[string]SpeciesParams
	minimumHeight float64
}

// EngineOption configures a ModelEngine.
type EngineOption func(*ModelEngine)

// WithSpeciesParams replaces the coefficients used for a genus.
func WithSpeciesParams(genus string, p SpeciesParams) EngineOption {
	return func(e *ModelEngine) {
		e.overrides[strings.ToUpper(genus)] = p
	}
}

// WithMinimumHeight sets the leading species height FIP-start requires.
func WithMinimumHeight(h float64) EngineOption {
	return func(e *ModelEngine) {
		if h > 0 {
			e.minimumHeight = h
		}
	}
}

// DefaultMinimumHeight is the FIP-start minimum leading height in metres.
const DefaultMinimumHeight = 5.0

// NewEngine constructs the built-in model.
func NewEngine(opts ...EngineOption) *ModelEngine {
	e := &ModelEngine{
		overrides:     make(map[string]SpeciesParams),
		minimumHeight: DefaultMinimumHeight,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *ModelEngine) params(genus string) SpeciesParams {
	if p, ok := e.overrides[strings.ToUpper(genus)]; ok {
		return p
	}
	return DefaultSpeciesParams(genus)
}

func loadControl(controlFile string) (Control, error) {
	data, err := os.ReadFile(controlFile) // #nosec G304 -- control files are written by the runner
	if err != nil {
		return Control{}, fmt.Errorf("read control file: %w", err)
	}
	ctl, err := ParseControl(data, filepath.Dir(controlFile))
	if err != nil {
		return Control{}, fmt.Errorf("parse control file %s: %w", controlFile, err)
	}
	return ctl, nil
}

func ioFailure(err error) (ReturnCode, error) {
	return CodeIOFailure, err
}

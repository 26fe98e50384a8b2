package projection

import (
	"errors"
	"fmt"

	"vdypcore/pkg/domain"
)

// ErrInvariant is wrapped by every ledger guard violation.
var ErrInvariant = errors.New("projection state invariant violated")

// InvariantError reports a breach of the projection state contract: a
// second write to a write-once slot, a read before the write, or a modify
// without a prior set. It is a programming error and aborts the polygon.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvariant, e.Op, e.Detail)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

func invariant(op, format string, args ...any) error {
	return &InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)}
}

// GrowthModelToken proves that a growth model was set for a projection
// type. Only SetGrowthModel creates one.
type GrowthModelToken struct {
	state *State
	typ   domain.ProjectionType
}

// ProcessingModeToken proves that a processing mode was set for a
// projection type. Only SetProcessingMode creates one.
type ProcessingModeToken struct {
	state *State
	typ   domain.ProjectionType
}

type yearRange struct {
	start, end int
}

type stageKey struct {
	stage domain.ProjectionStage
	typ   domain.ProjectionType
}

// State is the append-only ledger of one polygon's projection. It is owned
// by a single Context and is not safe for concurrent use.
type State struct {
	polygonID       string
	rangeSet        bool
	ranges          map[domain.ProjectionType]yearRange
	growthModels    map[domain.ProjectionType]domain.GrowthModel
	modes           map[domain.ProjectionType]domain.ProcessingMode
	results         map[stageKey]*StageFailure
	firstYieldYears map[stageKey]int
	attempts        map[domain.ProjectionType][]Attempt
	executionFolder string
}

// NewState returns an empty ledger for the polygon.
func NewState(polygonID string) *State {
	return &State{
		polygonID:       polygonID,
		ranges:          make(map[domain.ProjectionType]yearRange),
		growthModels:    make(map[domain.ProjectionType]domain.GrowthModel),
		modes:           make(map[domain.ProjectionType]domain.ProcessingMode),
		results:         make(map[stageKey]*StageFailure),
		firstYieldYears: make(map[stageKey]int),
		attempts:        make(map[domain.ProjectionType][]Attempt),
	}
}

// PolygonID returns the id of the polygon the ledger belongs to.
func (s *State) PolygonID() string {
	return s.polygonID
}

// SetProjectionRange sets the year range of every projection type. It may
// be called once.
func (s *State) SetProjectionRange(start, end int) error {
	if s.rangeSet {
		return invariant("SetProjectionRange", "range already set")
	}
	if start > end {
		return invariant("SetProjectionRange", "start %d after end %d", start, end)
	}
	for _, t := range domain.AllProjectionTypes() {
		s.ranges[t] = yearRange{start: start, end: end}
	}
	s.rangeSet = true
	return nil
}

// UpdateProjectionRange replaces the range of one projection type after
// SetProjectionRange.
func (s *State) UpdateProjectionRange(t domain.ProjectionType, start, end int) error {
	if !s.rangeSet {
		return invariant("UpdateProjectionRange", "range of %s not initialized", t)
	}
	if !t.Valid() {
		return invariant("UpdateProjectionRange", "unknown projection type %q", t)
	}
	if start > end {
		return invariant("UpdateProjectionRange", "start %d after end %d", start, end)
	}
	s.ranges[t] = yearRange{start: start, end: end}
	return nil
}

// ProjectionRange returns the year range of a projection type.
func (s *State) ProjectionRange(t domain.ProjectionType) (start, end int, err error) {
	r, ok := s.ranges[t]
	if !ok {
		return 0, 0, invariant("ProjectionRange", "range of %s not initialized", t)
	}
	return r.start, r.end, nil
}

// SetGrowthModel records the first growth model chosen for t.
func (s *State) SetGrowthModel(t domain.ProjectionType, m domain.GrowthModel) (GrowthModelToken, error) {
	if prev, ok := s.growthModels[t]; ok {
		return GrowthModelToken{}, invariant("SetGrowthModel", "growth model of %s already set to %s", t, prev)
	}
	s.growthModels[t] = m
	return GrowthModelToken{state: s, typ: t}, nil
}

// ModifyGrowthModel replaces the growth model recorded with the token.
func (s *State) ModifyGrowthModel(tok GrowthModelToken, m domain.GrowthModel) error {
	if tok.state != s {
		return invariant("ModifyGrowthModel", "token was not issued by this state")
	}
	if _, ok := s.growthModels[tok.typ]; !ok {
		return invariant("ModifyGrowthModel", "growth model of %s not set", tok.typ)
	}
	s.growthModels[tok.typ] = m
	return nil
}

// GrowthModel returns the growth model of t, if set.
func (s *State) GrowthModel(t domain.ProjectionType) (domain.GrowthModel, bool) {
	m, ok := s.growthModels[t]
	return m, ok
}

// SetProcessingMode records the first processing mode chosen for t.
func (s *State) SetProcessingMode(t domain.ProjectionType, m domain.ProcessingMode) (ProcessingModeToken, error) {
	if prev, ok := s.modes[t]; ok {
		return ProcessingModeToken{}, invariant("SetProcessingMode", "processing mode of %s already set to %s", t, prev)
	}
	s.modes[t] = m
	return ProcessingModeToken{state: s, typ: t}, nil
}

// ModifyProcessingMode replaces the processing mode recorded with the token.
func (s *State) ModifyProcessingMode(tok ProcessingModeToken, m domain.ProcessingMode) error {
	if tok.state != s {
		return invariant("ModifyProcessingMode", "token was not issued by this state")
	}
	if _, ok := s.modes[tok.typ]; !ok {
		return invariant("ModifyProcessingMode", "processing mode of %s not set", tok.typ)
	}
	s.modes[tok.typ] = m
	return nil
}

// ProcessingMode returns the processing mode of t, if set.
func (s *State) ProcessingMode(t domain.ProjectionType) (domain.ProcessingMode, bool) {
	m, ok := s.modes[t]
	return m, ok
}

// SetProcessingResults records the outcome of a stage for t. A nil failure
// records success. Each (stage, type) pair is written once.
func (s *State) SetProcessingResults(stage domain.ProjectionStage, t domain.ProjectionType, failure *StageFailure) error {
	key := stageKey{stage: stage, typ: t}
	if _, ok := s.results[key]; ok {
		return invariant("SetProcessingResults", "results of %s/%s already recorded", stage, t)
	}
	s.results[key] = failure
	return nil
}

// ProcessingResults returns the recorded outcome of a stage for t. A nil
// failure means the stage succeeded.
func (s *State) ProcessingResults(stage domain.ProjectionStage, t domain.ProjectionType) (*StageFailure, error) {
	failure, ok := s.results[stageKey{stage: stage, typ: t}]
	if !ok {
		return nil, invariant("ProcessingResults", "results of %s/%s not recorded", stage, t)
	}
	return failure, nil
}

// DidRunProjectionStage reports whether stage succeeded for any type.
func (s *State) DidRunProjectionStage(stage domain.ProjectionStage) bool {
	for _, t := range domain.AllProjectionTypes() {
		if s.DidRunProjectionStageFor(stage, t) {
			return true
		}
	}
	return false
}

// DidRunProjectionStageFor reports whether stage succeeded for t.
func (s *State) DidRunProjectionStageFor(stage domain.ProjectionStage, t domain.ProjectionType) bool {
	failure, ok := s.results[stageKey{stage: stage, typ: t}]
	return ok && failure == nil
}

// PolygonWasProjected reports whether Forward or Back succeeded for any type.
func (s *State) PolygonWasProjected() bool {
	return s.DidRunProjectionStage(domain.StageForward) || s.DidRunProjectionStage(domain.StageBack)
}

// NotProjectedReason describes the first failed stage of t, or returns ""
// when no stage of t failed.
func (s *State) NotProjectedReason(t domain.ProjectionType) string {
	for _, stage := range domain.AllProjectionStages() {
		if failure, ok := s.results[stageKey{stage: stage, typ: t}]; ok && failure != nil {
			return fmt.Sprintf("%s stage failed: %s", stage, failure.Error())
		}
	}
	return ""
}

// SetFirstYearYieldLinesValid records the first year of valid yield lines
// produced by stage for t. It may be written once per pair.
func (s *State) SetFirstYearYieldLinesValid(stage domain.ProjectionStage, t domain.ProjectionType, year int) error {
	key := stageKey{stage: stage, typ: t}
	if _, ok := s.firstYieldYears[key]; ok {
		return invariant("SetFirstYearYieldLinesValid", "first yield year of %s/%s already set", stage, t)
	}
	s.firstYieldYears[key] = year
	return nil
}

// FirstYearYieldLinesValid returns the recorded first valid yield year.
func (s *State) FirstYearYieldLinesValid(stage domain.ProjectionStage, t domain.ProjectionType) (int, bool) {
	year, ok := s.firstYieldYears[stageKey{stage: stage, typ: t}]
	return year, ok
}

// SetExecutionFolder records the polygon's working directory once.
func (s *State) SetExecutionFolder(dir string) error {
	if s.executionFolder != "" {
		return invariant("SetExecutionFolder", "execution folder already set to %s", s.executionFolder)
	}
	if dir == "" {
		return invariant("SetExecutionFolder", "empty execution folder")
	}
	s.executionFolder = dir
	return nil
}

// ExecutionFolder returns the working directory, or "" before it is set.
func (s *State) ExecutionFolder() string {
	return s.executionFolder
}

package domain

import (
	"context"
	"errors"
	"time"
)

// StageStatus is the recorded outcome of a stage for one projection type.
type StageStatus string

const (
	StageNotRun    StageStatus = "not_run"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
)

// StageSummary is the persisted form of one stage outcome.
type StageSummary struct {
	Stage      ProjectionStage `json:"stage"`
	Status     StageStatus     `json:"status"`
	Component  Component       `json:"component,omitempty"`
	ReturnCode int             `json:"return_code,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// LayerSummary captures the projection of one projection type.
type LayerSummary struct {
	Type            ProjectionType `json:"type"`
	GrowthModel     GrowthModel    `json:"growth_model,omitempty"`
	ProcessingMode  ProcessingMode `json:"processing_mode,omitempty"`
	StartYear       int            `json:"start_year"`
	EndYear         int            `json:"end_year"`
	Stages          []StageSummary `json:"stages"`
	FirstYieldYear  *int           `json:"first_yield_year,omitempty"`
	YieldRows       int            `json:"yield_rows"`
	InitialAttempts []Component    `json:"initial_attempts,omitempty"`
}

// RunRecord is the ledger entry persisted after a polygon projection.
type RunRecord struct {
	RunID        string         `json:"run_id"`
	PolygonID    string         `json:"polygon_id"`
	FeatureID    int64          `json:"feature_id"`
	Projected    bool           `json:"projected"`
	Layers       []LayerSummary `json:"layers"`
	Messages     []string       `json:"messages,omitempty"`
	ArtifactKeys []string       `json:"artifact_keys,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  time.Time      `json:"completed_at"`
}

// ErrRunNotFound is returned when a run record does not exist.
var ErrRunNotFound = errors.New("run record not found")

// RunStore persists projection run records.
type RunStore interface {
	SaveRun(ctx context.Context, record RunRecord) error
	GetRun(ctx context.Context, runID string) (RunRecord, error)
	ListRunsByPolygon(ctx context.Context, polygonID string) ([]RunRecord, error)
	Close() error
}

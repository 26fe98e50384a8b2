// Package domain defines the identity types, enumerations and input
// description of a polygon projection shared by the vdypcore packages.
package domain

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ProjectionType identifies the role of a layer that is projected independently
// of the other layers of its polygon.
type ProjectionType string

// Projection types in the order a polygon is processed.
const (
	// ProjectionPrimary is the main canopy layer.
	ProjectionPrimary ProjectionType = "PRIMARY"
	// ProjectionVeteran is the overstory of older trees left from a previous stand.
	ProjectionVeteran      ProjectionType = "VETERAN"
	ProjectionResidual     ProjectionType = "RESIDUAL"
	ProjectionRegeneration ProjectionType = "REGENERATION"
	// ProjectionDead holds stems killed by a disturbance.
	ProjectionDead ProjectionType = "DEAD"
)

var projectionTypes = []ProjectionType{
	ProjectionPrimary,
	ProjectionVeteran,
	ProjectionResidual,
	ProjectionRegeneration,
	ProjectionDead,
}

// AllProjectionTypes returns every projection type in processing order.
func AllProjectionTypes() []ProjectionType {
	return append([]ProjectionType(nil), projectionTypes...)
}

// Valid reports whether t is a known projection type.
func (t ProjectionType) Valid() bool {
	for _, known := range projectionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Dir returns the working sub-directory name used for the projection type.
func (t ProjectionType) Dir() string {
	return strings.ToLower(string(t))
}

// ParseProjectionType converts a case-insensitive name into a ProjectionType.
// Unknown names produce an error suggesting the closest known type.
func ParseProjectionType(s string) (ProjectionType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, t := range projectionTypes {
		if string(t) == name {
			return t, nil
		}
	}
	names := make([]string, len(projectionTypes))
	for i, t := range projectionTypes {
		names[i] = string(t)
	}
	return "", unknownNameError("projection type", s, names)
}

// ProjectionStage is a step of the per-polygon projection pipeline.
type ProjectionStage string

// Pipeline stages in execution order.
const (
	StageInitial ProjectionStage = "initial"
	StageAdjust  ProjectionStage = "adjust"
	StageForward ProjectionStage = "forward"
	StageBack    ProjectionStage = "back"
)

// AllProjectionStages returns the stages in execution order.
func AllProjectionStages() []ProjectionStage {
	return []ProjectionStage{StageInitial, StageAdjust, StageForward, StageBack}
}

// Component is a concrete growth-model operation. The Initial stage is
// served by exactly one of FIP-start or VRI-start.
type Component string

// Components known to the stage runner.
const (
	ComponentFipStart Component = "fip_start"
	ComponentVriStart Component = "vri_start"
	ComponentAdjust   Component = "adjust"
	ComponentForward  Component = "forward"
	ComponentBack     Component = "back"
)

// Stage returns the pipeline stage the component implements.
func (c Component) Stage() ProjectionStage {
	switch c {
	case ComponentFipStart, ComponentVriStart:
		return StageInitial
	case ComponentAdjust:
		return StageAdjust
	case ComponentForward:
		return StageForward
	case ComponentBack:
		return StageBack
	default:
		return ""
	}
}

// GrowthModel names the initialization algorithm used for a projection type.
type GrowthModel string

const (
	GrowthModelFIP GrowthModel = "FIP"
	GrowthModelVRI GrowthModel = "VRI"
)

// Component returns the Initial-stage component implementing the model.
func (m GrowthModel) Component() Component {
	if m == GrowthModelFIP {
		return ComponentFipStart
	}
	return ComponentVriStart
}

// ProcessingMode selects the variant of the initialization algorithm.
type ProcessingMode string

// DefaultMode returns the processing mode a model starts with.
func (m GrowthModel) DefaultMode() ProcessingMode {
	if m == GrowthModelFIP {
		return ModeFipStartDefault
	}
	return ModeVriStartDefault
}

const (
	ModeFipStartDefault ProcessingMode = "fip_start_default"
	ModeVriStartDefault ProcessingMode = "vri_start_default"
	// ModeVriStartRetry marks VRI-start runs entered through the FIP retry.
	ModeVriStartRetry ProcessingMode = "vri_start_retry"
)

// InventoryStandard is the inventory standard of the input polygon.
type InventoryStandard string

const (
	StandardFIP InventoryStandard = "F"
	StandardVRI InventoryStandard = "V"
	// StandardInventory is the older "I" standard; it is initialized like VRI.
	StandardInventory InventoryStandard = "I"
)

// InitialGrowthModel returns the model attempted first for the standard.
func (s InventoryStandard) InitialGrowthModel() GrowthModel {
	if s == StandardFIP {
		return GrowthModelFIP
	}
	return GrowthModelVRI
}

func unknownNameError(kind, given string, known []string) error {
	best := ""
	bestDist := -1
	upper := strings.ToUpper(strings.TrimSpace(given))
	for _, name := range known {
		d := levenshtein.ComputeDistance(upper, strings.ToUpper(name))
		if bestDist < 0 || d < bestDist {
			best, bestDist = name, d
		}
	}
	if best != "" && bestDist <= 3 {
		return fmt.Errorf("unknown %s %q (did you mean %s?)", kind, given, best)
	}
	return fmt.Errorf("unknown %s %q", kind, given)
}

package utilization

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned when a compatibility variable is requested for
// a class or variable combination that has no value.
var ErrInvalidQuery = errors.New("invalid compatibility variable query")

// LoreyLayer selects which Lorey height compatibility variable applies.
type LoreyLayer int

const (
	LoreyPrimary LoreyLayer = iota
	LoreyOther
)

// CompatibilityVariables are the multipliers that adjust model predictions
// so they agree with inventory observations at the reference age. A value is
// immutable once built.
type CompatibilityVariables struct {
	volume    [4][4]float64 // merchantable class, variant WholeStem..CloseUtilizationNetDecayWaste
	basalArea [4]float64    // merchantable class
	qmd       [4]float64
	lorey     [2]float64
	small     [4]float64 // by Variable
	layer     LoreyLayer
}

// NewCompatibilityVariables returns variables that leave predictions
// unchanged: every multiplier is 1.0.
func NewCompatibilityVariables() CompatibilityVariables {
	var cv CompatibilityVariables
	for i := range cv.volume {
		for j := range cv.volume[i] {
			cv.volume[i][j] = 1
		}
	}
	for i := range cv.basalArea {
		cv.basalArea[i] = 1
		cv.qmd[i] = 1
	}
	cv.lorey = [2]float64{1, 1}
	cv.small = [4]float64{1, 1, 1, 1}
	return cv
}

// Value returns the basal area or QMD multiplier for the small class or one
// of the merchantable classes. The small class reads the same storage as
// SmallValue.
func (cv CompatibilityVariables) Value(c Class, v Variable) (float64, error) {
	if c != ClassSmall && !c.IsMerchantable() {
		return 0, fmt.Errorf("%w: class %s", ErrInvalidQuery, c)
	}
	switch v {
	case BasalArea, QuadMeanDiameter:
	default:
		return 0, fmt.Errorf("%w: variable %s by class", ErrInvalidQuery, v)
	}
	if c == ClassSmall {
		return cv.small[v], nil
	}
	if v == BasalArea {
		return cv.basalArea[c-1], nil
	}
	return cv.qmd[c-1], nil
}

// SmallValue returns the small-class multiplier for any of the four
// variables.
func (cv CompatibilityVariables) SmallValue(v Variable) (float64, error) {
	if v < BasalArea || v > WholeStemVolume {
		return 0, fmt.Errorf("%w: small variable %s", ErrInvalidQuery, v)
	}
	return cv.small[v], nil
}

// VolumeValue returns the volume multiplier of a merchantable class. The
// breakage variant has no compatibility variable.
func (cv CompatibilityVariables) VolumeValue(c Class, v VolumeVariant) (float64, error) {
	if !c.IsMerchantable() {
		return 0, fmt.Errorf("%w: volume for class %s", ErrInvalidQuery, c)
	}
	if v < WholeStem || v > CloseUtilizationNetDecayWaste {
		return 0, fmt.Errorf("%w: volume variant %s", ErrInvalidQuery, v)
	}
	return cv.volume[c-1][v], nil
}

// LoreyHeight returns the Lorey height multiplier for the layer.
func (cv CompatibilityVariables) LoreyHeight(which LoreyLayer) float64 {
	if which == LoreyOther {
		return cv.lorey[1]
	}
	return cv.lorey[0]
}

// ComputeCompatibilityVariables derives the multipliers as the ratio of
// observed to predicted values per slot. A zero prediction yields 1.0.
func ComputeCompatibilityVariables(observed, predicted Quantities, which LoreyLayer) CompatibilityVariables {
	cv := NewCompatibilityVariables()
	cv.layer = which
	for i, c := range MerchantableClasses {
		for v := WholeStem; v <= CloseUtilizationNetDecayWaste; v++ {
			cv.volume[i][v] = ratio(observed.Volume[v][c], predicted.Volume[v][c])
		}
		cv.basalArea[i] = ratio(observed.BasalArea[c], predicted.BasalArea[c])
		cv.qmd[i] = ratio(observed.QuadMeanDiameter[c], predicted.QuadMeanDiameter[c])
	}
	cv.lorey[which] = ratio(observed.LoreyHeight[ClassAll], predicted.LoreyHeight[ClassAll])
	cv.small[BasalArea] = ratio(observed.BasalArea[ClassSmall], predicted.BasalArea[ClassSmall])
	cv.small[QuadMeanDiameter] = ratio(observed.QuadMeanDiameter[ClassSmall], predicted.QuadMeanDiameter[ClassSmall])
	cv.small[LoreyHeight] = ratio(observed.LoreyHeight[ClassSmall], predicted.LoreyHeight[ClassSmall])
	cv.small[WholeStemVolume] = ratio(observed.Volume[WholeStem][ClassSmall], predicted.Volume[WholeStem][ClassSmall])
	return cv
}

// ForLayer returns a copy whose Apply uses the given Lorey height variable.
func (cv CompatibilityVariables) ForLayer(which LoreyLayer) CompatibilityVariables {
	cv.layer = which
	return cv
}

// Apply returns predicted adjusted by the multipliers. Stems are re-derived
// from the adjusted basal area and QMD, and the All slot is reconciled.
func (cv CompatibilityVariables) Apply(predicted Quantities) Quantities {
	out := predicted
	lh := cv.LoreyHeight(cv.layer)
	for i, c := range MerchantableClasses {
		out.BasalArea[c] *= cv.basalArea[i]
		out.QuadMeanDiameter[c] *= cv.qmd[i]
		out.TreesPerHectare[c] = TreesPerHectare(out.BasalArea[c], out.QuadMeanDiameter[c])
		out.LoreyHeight[c] *= lh
		for v := WholeStem; v <= CloseUtilizationNetDecayWaste; v++ {
			out.Volume[v][c] *= cv.volume[i][v]
		}
		// breakage follows the net decay and waste adjustment
		out.Volume[CloseUtilizationNetDecayWasteBreakage][c] *= cv.volume[i][CloseUtilizationNetDecayWaste]
	}
	out.BasalArea[ClassSmall] *= cv.small[BasalArea]
	out.QuadMeanDiameter[ClassSmall] *= cv.small[QuadMeanDiameter]
	out.TreesPerHectare[ClassSmall] = TreesPerHectare(out.BasalArea[ClassSmall], out.QuadMeanDiameter[ClassSmall])
	out.LoreyHeight[ClassSmall] *= cv.small[LoreyHeight]
	out.Volume[WholeStem][ClassSmall] *= cv.small[WholeStemVolume]
	out.Reconcile()
	return out
}

func ratio(observed, predicted float64) float64 {
	if predicted == 0 {
		return 1
	}
	return observed / predicted
}

package utilization

import (
	"fmt"
	"math"
)

// Variable is a stand quantity carried per utilization class.
type Variable int

const (
	BasalArea Variable = iota
	QuadMeanDiameter
	LoreyHeight
	WholeStemVolume
)

func (v Variable) String() string {
	switch v {
	case BasalArea:
		return "basal_area"
	case QuadMeanDiameter:
		return "quad_mean_diameter"
	case LoreyHeight:
		return "lorey_height"
	case WholeStemVolume:
		return "whole_stem_volume"
	default:
		return fmt.Sprintf("Variable(%d)", int(v))
	}
}

// VolumeVariant selects one of the volume measures. Each variant removes one
// more loss component than the previous one.
type VolumeVariant int

const (
	WholeStem VolumeVariant = iota
	CloseUtilization
	CloseUtilizationNetDecay
	CloseUtilizationNetDecayWaste
	CloseUtilizationNetDecayWasteBreakage
)

// VolumeVariantCount is the number of volume variants carried by Quantities.
const VolumeVariantCount = 5

// VolumeVariants lists the variants in loss order.
var VolumeVariants = [VolumeVariantCount]VolumeVariant{
	WholeStem,
	CloseUtilization,
	CloseUtilizationNetDecay,
	CloseUtilizationNetDecayWaste,
	CloseUtilizationNetDecayWasteBreakage,
}

func (v VolumeVariant) String() string {
	switch v {
	case WholeStem:
		return "whole_stem"
	case CloseUtilization:
		return "close_utilization"
	case CloseUtilizationNetDecay:
		return "cu_net_decay"
	case CloseUtilizationNetDecayWaste:
		return "cu_net_decay_waste"
	case CloseUtilizationNetDecayWasteBreakage:
		return "cu_net_decay_waste_breakage"
	default:
		return fmt.Sprintf("VolumeVariant(%d)", int(v))
	}
}

// basal area in m2 of one stem of diameter d cm is treeBasalAreaFactor*d*d.
const treeBasalAreaFactor = math.Pi / 40000

// QMDFromBasalArea returns the quadratic mean diameter (cm) for a basal area
// (m2/ha) and stem count (stems/ha). Zero stems give zero.
func QMDFromBasalArea(basalArea, treesPerHectare float64) float64 {
	if treesPerHectare <= 0 || basalArea <= 0 {
		return 0
	}
	return math.Sqrt(basalArea / treesPerHectare / treeBasalAreaFactor)
}

// TreesPerHectare returns the stem count implied by basal area and QMD.
func TreesPerHectare(basalArea, qmd float64) float64 {
	if qmd <= 0 || basalArea <= 0 {
		return 0
	}
	return basalArea / (treeBasalAreaFactor * qmd * qmd)
}

// Quantities is the per-class state of a species or a layer.
type Quantities struct {
	BasalArea        Vector
	TreesPerHectare  Vector
	QuadMeanDiameter Vector
	LoreyHeight      Vector
	Volume           [VolumeVariantCount]Vector
}

// VolumeOf returns the vector of one volume variant.
func (q *Quantities) VolumeOf(v VolumeVariant) *Vector {
	return &q.Volume[v]
}

// Reconcile recomputes the All slot from the merchantable classes: sums for
// basal area, stems and volumes, QMD from the summed basal area and stems,
// and a basal-area weighted Lorey height.
func (q *Quantities) Reconcile() {
	weighted := 0.0
	for _, c := range MerchantableClasses {
		weighted += q.LoreyHeight[c] * q.BasalArea[c]
	}
	q.BasalArea.SetAllFromMerchantable()
	q.TreesPerHectare.SetAllFromMerchantable()
	for i := range q.Volume {
		q.Volume[i].SetAllFromMerchantable()
	}
	q.QuadMeanDiameter[ClassAll] = QMDFromBasalArea(q.BasalArea[ClassAll], q.TreesPerHectare[ClassAll])
	if q.BasalArea[ClassAll] > 0 {
		q.LoreyHeight[ClassAll] = weighted / q.BasalArea[ClassAll]
	}
}

// Add folds o into q class by class. Lorey heights are averaged by basal
// area and QMD is re-derived from the combined basal area and stems.
func (q *Quantities) Add(o Quantities) {
	for _, c := range AllClasses {
		ba := q.BasalArea[c] + o.BasalArea[c]
		if ba > 0 {
			q.LoreyHeight[c] = (q.LoreyHeight[c]*q.BasalArea[c] + o.LoreyHeight[c]*o.BasalArea[c]) / ba
		}
		q.BasalArea[c] = ba
		q.TreesPerHectare[c] += o.TreesPerHectare[c]
		q.QuadMeanDiameter[c] = QMDFromBasalArea(q.BasalArea[c], q.TreesPerHectare[c])
		for i := range q.Volume {
			q.Volume[i][c] += o.Volume[i][c]
		}
	}
}

// Scale multiplies the additive quantities by f, leaving diameters and
// heights untouched.
func (q *Quantities) Scale(f float64) {
	q.BasalArea.Scale(f)
	q.TreesPerHectare.Scale(f)
	for i := range q.Volume {
		q.Volume[i].Scale(f)
	}
}

// ClassValues are the quantities of a single utilization class.
type ClassValues struct {
	BasalArea        float64
	TreesPerHectare  float64
	QuadMeanDiameter float64
	LoreyHeight      float64
	Volume           [VolumeVariantCount]float64
}

// At returns the values of class c.
func (q *Quantities) At(c Class) ClassValues {
	cv := ClassValues{
		BasalArea:        q.BasalArea[c],
		TreesPerHectare:  q.TreesPerHectare[c],
		QuadMeanDiameter: q.QuadMeanDiameter[c],
		LoreyHeight:      q.LoreyHeight[c],
	}
	for i := range q.Volume {
		cv.Volume[i] = q.Volume[i][c]
	}
	return cv
}

// SetAt stores the values of class c.
func (q *Quantities) SetAt(c Class, v ClassValues) {
	q.BasalArea[c] = v.BasalArea
	q.TreesPerHectare[c] = v.TreesPerHectare
	q.QuadMeanDiameter[c] = v.QuadMeanDiameter
	q.LoreyHeight[c] = v.LoreyHeight
	for i := range q.Volume {
		q.Volume[i][c] = v.Volume[i]
	}
}

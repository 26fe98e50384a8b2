package utilization

import (
	"errors"
	"math"
)

// StandTotals are the stand-level values split across classes by Breakdown.
// BasalArea and TreesPerHectare include the small class.
type StandTotals struct {
	BasalArea       float64
	TreesPerHectare float64
	LoreyHeight     float64
	WholeStemVolume float64
}

// BreakdownParams configure the diameter distribution and the volume loss
// chain of a species. Shape is the Weibull shape parameter and
// CloseUtilizationRatio the close-utilization share of whole-stem volume per
// merchantable class, in MerchantableClasses order.
type BreakdownParams struct {
	Shape                 float64
	CloseUtilizationRatio [4]float64
	Decay                 float64
	Waste                 float64
	Breakage              float64
}

// DefaultBreakdownParams are used when a species carries no specific values.
var DefaultBreakdownParams = BreakdownParams{
	Shape:                 3.2,
	CloseUtilizationRatio: [4]float64{0.25, 0.80, 0.88, 0.92},
	Decay:                 0.06,
	Waste:                 0.02,
	Breakage:              0.05,
}

// ErrInvalidBreakdown reports totals or parameters Breakdown cannot use.
var ErrInvalidBreakdown = errors.New("invalid utilization breakdown input")

const simpsonSteps = 64

// Breakdown splits stand totals into utilization classes. Stems follow a
// Weibull diameter distribution whose quadratic mean matches the totals;
// basal area and whole-stem volume are allotted by each class's share of
// the second moment. The All slot holds the merchantable sum.
func Breakdown(total StandTotals, params BreakdownParams) (Quantities, error) {
	var q Quantities
	if total.BasalArea < 0 || total.TreesPerHectare < 0 || params.Shape <= 0 {
		return q, ErrInvalidBreakdown
	}
	if total.BasalArea == 0 || total.TreesPerHectare == 0 {
		return q, nil
	}
	qmd := QMDFromBasalArea(total.BasalArea, total.TreesPerHectare)
	k := params.Shape
	scale := qmd / math.Sqrt(math.Gamma(1+2/k))

	cdf := func(d float64) float64 {
		return 1 - math.Exp(-math.Pow(d/scale, k))
	}
	// d^2 weighted density normalised by the second moment
	second := func(d float64) float64 {
		if d <= 0 {
			return 0
		}
		z := d / scale
		pdf := k / scale * math.Pow(z, k-1) * math.Exp(-math.Pow(z, k))
		return d * d * pdf / (qmd * qmd)
	}

	bounds := []float64{0, 7.5, 12.5, 17.5, 22.5}
	classes := []Class{ClassSmall, ClassU75To125, ClassU125To175, ClassU175To225, ClassOver225}
	stemShare := make([]float64, len(classes))
	areaShare := make([]float64, len(classes))
	stemRest, areaRest := 1.0, 1.0
	for i := 0; i < len(classes)-1; i++ {
		lo, hi := bounds[i], bounds[i+1]
		stemShare[i] = cdf(hi) - cdf(lo)
		areaShare[i] = simpson(second, lo, hi, simpsonSteps)
		stemRest -= stemShare[i]
		areaRest -= areaShare[i]
	}
	stemShare[len(classes)-1] = math.Max(stemRest, 0)
	areaShare[len(classes)-1] = math.Max(areaRest, 0)

	for i, c := range classes {
		ba := total.BasalArea * areaShare[i]
		tph := total.TreesPerHectare * stemShare[i]
		q.BasalArea[c] = ba
		q.TreesPerHectare[c] = tph
		q.QuadMeanDiameter[c] = QMDFromBasalArea(ba, tph)
		if ba > 0 {
			q.LoreyHeight[c] = total.LoreyHeight
		}
		q.Volume[WholeStem][c] = total.WholeStemVolume * areaShare[i]
	}
	for i, c := range MerchantableClasses {
		ws := q.Volume[WholeStem][c]
		cu := ws * params.CloseUtilizationRatio[i]
		cud := cu * (1 - params.Decay)
		cudw := cud * (1 - params.Waste)
		q.Volume[CloseUtilization][c] = cu
		q.Volume[CloseUtilizationNetDecay][c] = cud
		q.Volume[CloseUtilizationNetDecayWaste][c] = cudw
		q.Volume[CloseUtilizationNetDecayWasteBreakage][c] = cudw * (1 - params.Breakage)
	}
	q.Reconcile()
	return q, nil
}

func simpson(f func(float64) float64, a, b float64, n int) float64 {
	if n%2 == 1 {
		n++
	}
	h := (b - a) / float64(n)
	sum := f(a) + f(b)
	for i := 1; i < n; i++ {
		x := a + float64(i)*h
		if i%2 == 1 {
			sum += 4 * f(x)
		} else {
			sum += 2 * f(x)
		}
	}
	return sum * h / 3
}

package growth

import (
	"math"

	"vdypcore/internal/siteindex"
	"vdypcore/internal/utilization"
)

// loreyHeightRatio relates Lorey height to dominant height above breast
// height.
const loreyHeightRatio = 0.92

// prediction is the model output for one species at one age.
type prediction struct {
	quantities     utilization.Quantities
	dominantHeight float64
}

// predict evaluates the stand model for a species at a total age. Stands
// that have not reached breast height carry no utilization quantities.
func (e *ModelEngine) predict(sp SpeciesState, totalAge float64) (prediction, error) {
	bh := totalAge - sp.YearsToBreastHeight
	if bh <= 0 {
		h := 0.0
		if sp.YearsToBreastHeight > 0 && totalAge > 0 {
			h = 1.3 * totalAge / sp.YearsToBreastHeight
		}
		return prediction{dominantHeight: h}, nil
	}
	hd, err := siteindex.HeightFromAge(sp.Curve, bh, siteindex.AgeBreast, sp.SiteIndex, sp.YearsToBreastHeight)
	if err != nil {
		return prediction{}, err
	}
	params := e.params(sp.Genus)
	share := sp.Percent / 100
	above := math.Max(hd-1.3, 0)
	totals := utilization.StandTotals{
		BasalArea:       share * params.MaxBasalArea * math.Pow(1-math.Exp(-params.BasalAreaRate*above), params.BasalAreaShape),
		TreesPerHectare: share * (params.MinimumStems + (params.InitialStems-params.MinimumStems)*math.Exp(-params.StemDecline*above)),
		LoreyHeight:     1.3 + loreyHeightRatio*above,
	}
	totals.WholeStemVolume = totals.BasalArea * totals.LoreyHeight * params.FormFactor
	q, err := utilization.Breakdown(totals, params.Breakdown)
	if err != nil {
		return prediction{}, err
	}
	return prediction{quantities: q, dominantHeight: hd}, nil
}

// standBasalArea is the basal area of all classes including small stems.
func standBasalArea(q utilization.Quantities) float64 {
	return q.BasalArea[utilization.ClassAll] + q.BasalArea[utilization.ClassSmall]
}

// standStems is the stem count of all classes including small stems.
func standStems(q utilization.Quantities) float64 {
	return q.TreesPerHectare[utilization.ClassAll] + q.TreesPerHectare[utilization.ClassSmall]
}

// minimumBasalArea is the smallest basal area accepted by FIP-start for a
// stand of the given leading height.
func minimumBasalArea(height float64) float64 {
	return 0.5 + 0.05*math.Max(height-5, 0)
}

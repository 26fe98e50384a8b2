package growth

import (
	"strings"

	"vdypcore/internal/utilization"
)

// SpeciesParams are the stand model coefficients of a genus group.
//
// Basal area follows MaxBasalArea*(1-exp(-BasalAreaRate*(H-1.3)))^BasalAreaShape
// and stems decline from InitialStems towards MinimumStems at StemDecline
// per metre of dominant height.
type SpeciesParams struct {
	MaxBasalArea   float64
	BasalAreaRate  float64
	BasalAreaShape float64
	InitialStems   float64
	MinimumStems   float64
	StemDecline    float64
	FormFactor     float64
	Breakdown      utilization.BreakdownParams
}

func breakdownWith(decay, waste, breakage float64) utilization.BreakdownParams {
	p := utilization.DefaultBreakdownParams
	p.Decay = decay
	p.Waste = waste
	p.Breakage = breakage
	return p
}

var genusGroupParams = map[string]SpeciesParams{
	"FD": {MaxBasalArea: 70, BasalAreaRate: 0.06, BasalAreaShape: 1.5, InitialStems: 3000, MinimumStems: 300, StemDecline: 0.07, FormFactor: 0.42, Breakdown: breakdownWith(0.05, 0.02, 0.04)},
	"H":  {MaxBasalArea: 80, BasalAreaRate: 0.05, BasalAreaShape: 1.4, InitialStems: 4000, MinimumStems: 400, StemDecline: 0.06, FormFactor: 0.40, Breakdown: breakdownWith(0.09, 0.03, 0.05)},
	"C":  {MaxBasalArea: 85, BasalAreaRate: 0.04, BasalAreaShape: 1.3, InitialStems: 3200, MinimumStems: 350, StemDecline: 0.05, FormFactor: 0.38, Breakdown: breakdownWith(0.12, 0.04, 0.06)},
	"PL": {MaxBasalArea: 45, BasalAreaRate: 0.09, BasalAreaShape: 1.6, InitialStems: 5000, MinimumStems: 600, StemDecline: 0.10, FormFactor: 0.45, Breakdown: breakdownWith(0.03, 0.01, 0.03)},
	"S":  {MaxBasalArea: 60, BasalAreaRate: 0.06, BasalAreaShape: 1.5, InitialStems: 3500, MinimumStems: 400, StemDecline: 0.07, FormFactor: 0.43, Breakdown: breakdownWith(0.06, 0.02, 0.04)},
	"B":  {MaxBasalArea: 65, BasalAreaRate: 0.05, BasalAreaShape: 1.5, InitialStems: 3800, MinimumStems: 450, StemDecline: 0.06, FormFactor: 0.41, Breakdown: breakdownWith(0.10, 0.03, 0.05)},
	"AT": {MaxBasalArea: 40, BasalAreaRate: 0.10, BasalAreaShape: 1.4, InitialStems: 6000, MinimumStems: 500, StemDecline: 0.12, FormFactor: 0.40, Breakdown: breakdownWith(0.08, 0.02, 0.05)},
}

// genusGroup maps genus codes onto the parameter groups.
func genusGroup(genus string) string {
	switch strings.ToUpper(genus) {
	case "F", "FD":
		return "FD"
	case "H", "HW", "HM":
		return "H"
	case "C", "CW", "Y", "YC":
		return "C"
	case "P", "PL", "PA", "PY":
		return "PL"
	case "S", "SW", "SE", "SX", "SB":
		return "S"
	case "B", "BA", "BL", "BG":
		return "B"
	case "AT", "AC", "EP", "D", "DR":
		return "AT"
	default:
		return "FD"
	}
}

// DefaultSpeciesParams returns the built-in coefficients for a genus.
func DefaultSpeciesParams(genus string) SpeciesParams {
	return genusGroupParams[genusGroup(genus)]
}

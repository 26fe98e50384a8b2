package growth

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	"vdypcore/internal/siteindex"
	"vdypcore/internal/utilization"
	"vdypcore/pkg/domain"
)

// crownClosureReference is the crown closure (percent) at which FIP-start
// takes the predicted basal area unchanged.
const crownClosureReference = 60.0

// minimumBreastHeightAge is the youngest leading species FIP-start accepts.
const minimumBreastHeightAge = 0.5

type startInput struct {
	ctl         Control
	inventory   Inventory
	species     []SpeciesState
	predictions []prediction
}

// prepare reads the inventory named by the control file and resolves every
// species. A non-OK code with a nil error is a data failure.
func (e *ModelEngine) prepare(ctx context.Context, controlFile string) (startInput, ReturnCode, error) {
	var in startInput
	if err := ctx.Err(); err != nil {
		return in, CodeIOFailure, err
	}
	ctl, err := loadControl(controlFile)
	if err != nil {
		return in, CodeIOFailure, err
	}
	in.ctl = ctl
	path, err := ctl.Path(TagInput1)
	if err != nil {
		return in, CodeIOFailure, err
	}
	f, err := os.Open(path) // #nosec G304 -- inventory file lives in the execution folder
	if err != nil {
		return in, CodeIOFailure, err
	}
	inv, err := ReadInventory(f)
	_ = f.Close()
	if err != nil {
		return in, CodeIOFailure, err
	}
	in.inventory = inv

	layer := inv.Layer
	if layer == nil {
		return in, CodeNoPrimaryLayer, nil
	}
	if len(layer.Species) == 0 {
		return in, CodeNoSpecies, nil
	}
	total := 0.0
	for _, sp := range layer.Species {
		total += sp.Percent
	}
	if math.Abs(total-100) > 1 {
		return in, CodeSpeciesPercentSum, nil
	}
	in.species = make([]SpeciesState, 0, len(layer.Species))
	for _, sp := range layer.SortedSpecies() {
		state, err := resolveSpecies(sp)
		if err != nil {
			return in, CodeSiteCurveFailure, nil
		}
		in.species = append(in.species, state)
	}
	in.predictions = make([]prediction, len(in.species))
	for i, sp := range in.species {
		p, err := e.predict(sp, sp.TotalAge)
		if err != nil {
			return in, CodeSiteCurveFailure, nil
		}
		in.predictions[i] = p
	}
	return in, CodeOK, nil
}

// resolveSpecies fills the site curve, site index, height and years to
// breast height of an inventory species.
func resolveSpecies(sp domain.Species) (SpeciesState, error) {
	state := SpeciesState{
		Genus:     sp.Genus,
		Percent:   sp.Percent,
		SiteIndex: sp.SiteIndex,
		TotalAge:  sp.TotalAge,
		Height:    sp.Height,
	}
	if sp.SiteCurve > 0 {
		state.Curve = siteindex.CurveID(sp.SiteCurve)
	} else {
		c, err := siteindex.DefaultCurve(sp.Genus)
		if err != nil {
			return state, err
		}
		state.Curve = c.ID
	}
	if sp.TotalAge <= 0 {
		return state, fmt.Errorf("species %s: total age required", sp.Genus)
	}

	if state.SiteIndex <= 0 {
		if state.Height <= 0 {
			return state, fmt.Errorf("species %s: site index or height required", sp.Genus)
		}
		// first pass uses breast-height years of a site index equal to the height
		y2bh, err := yearsToBreastHeight(state.Curve, sp.YearsToBreastHeight, math.Max(state.Height, 5))
		if err != nil {
			return state, err
		}
		si, err := siteindex.SiteIndexFromHeight(state.Curve, state.TotalAge-y2bh, siteindex.AgeBreast, state.Height, y2bh)
		if err != nil {
			return state, err
		}
		state.SiteIndex = si
	}
	y2bh, err := yearsToBreastHeight(state.Curve, sp.YearsToBreastHeight, state.SiteIndex)
	if err != nil {
		return state, err
	}
	state.YearsToBreastHeight = y2bh
	if state.Height <= 0 {
		bh := state.BreastHeightAge()
		if bh <= 0 {
			state.Height = 1.3 * state.TotalAge / y2bh
		} else {
			h, err := siteindex.HeightFromAge(state.Curve, bh, siteindex.AgeBreast, state.SiteIndex, y2bh)
			if err != nil {
				return state, err
			}
			state.Height = h
		}
	}
	return state, nil
}

func yearsToBreastHeight(curve siteindex.CurveID, given *float64, siteIndex float64) (float64, error) {
	if given != nil && *given > 0 {
		return *given, nil
	}
	return siteindex.YearsToBreastHeight(curve, siteIndex)
}

// FipStart initializes a layer described by a FIP inventory, where basal
// area is estimated from the model and scaled by crown closure.
func (e *ModelEngine) FipStart(ctx context.Context, controlFile string) (ReturnCode, error) {
	in, code, err := e.prepare(ctx, controlFile)
	if err != nil || code != CodeOK {
		return code, err
	}
	lead := in.species[0]
	if lead.Height < e.minimumHeight {
		return CodeHeightBelowMinimum, nil
	}
	if lead.BreastHeightAge() < minimumBreastHeightAge {
		return CodeBreastHeightAgeLow, nil
	}

	factor := in.inventory.Layer.CrownClosure / crownClosureReference
	predicted := 0.0
	for _, p := range in.predictions {
		predicted += standBasalArea(p.quantities)
	}
	estimated := predicted * factor
	if estimated <= 0.05 {
		return CodeBasalAreaTooLow, nil
	}
	if estimated < minimumBasalArea(lead.Height) {
		return CodeBasalAreaBelowMinimum, nil
	}

	observed := make(UtilizationState, len(in.species)+1)
	for i, sp := range in.species {
		q := in.predictions[i].quantities
		q.Scale(factor)
		q.Reconcile()
		observed[sp.Genus] = q
	}
	return e.writeStart(in, domain.GrowthModelFIP, observed)
}

// VriStart initializes a layer from VRI inventory values. Basal area and
// stems come from the inventory; whichever is absent is estimated from the
// model.
func (e *ModelEngine) VriStart(ctx context.Context, controlFile string) (ReturnCode, error) {
	in, code, err := e.prepare(ctx, controlFile)
	if err != nil || code != CodeOK {
		return code, err
	}
	layer := in.inventory.Layer

	predictedBA, predictedStems := 0.0, 0.0
	for _, p := range in.predictions {
		predictedBA += standBasalArea(p.quantities)
		predictedStems += standStems(p.quantities)
	}
	observedBA := predictedBA
	if layer.BasalArea != nil {
		observedBA = *layer.BasalArea
	} else if layer.CrownClosure > 0 {
		observedBA = predictedBA * layer.CrownClosure / crownClosureReference
	}
	observedStems := predictedStems
	if layer.TreesPerHectare != nil {
		observedStems = *layer.TreesPerHectare
	} else if predictedBA > 0 {
		observedStems = predictedStems * observedBA / predictedBA
	}

	observed := make(UtilizationState, len(in.species)+1)
	for i, sp := range in.species {
		p := in.predictions[i]
		share := sp.Percent / 100
		ba := observedBA * share
		totals := utilization.StandTotals{
			BasalArea:       ba,
			TreesPerHectare: observedStems * share,
			LoreyHeight:     p.quantities.LoreyHeight[utilization.ClassAll],
		}
		if predicted := standBasalArea(p.quantities); predicted > 0 {
			totals.WholeStemVolume = p.quantities.Volume[utilization.WholeStem][utilization.ClassAll] * ba / predicted
		}
		if totals.LoreyHeight == 0 {
			totals.LoreyHeight = 1.3 + loreyHeightRatio*math.Max(sp.Height-1.3, 0)
		}
		q, err := utilization.Breakdown(totals, e.params(sp.Genus).Breakdown)
		if err != nil {
			return CodeSiteCurveFailure, nil
		}
		observed[sp.Genus] = q
	}
	return e.writeStart(in, domain.GrowthModelVRI, observed)
}

func (e *ModelEngine) writeStart(in startInput, model domain.GrowthModel, observed UtilizationState) (ReturnCode, error) {
	var layerTotal utilization.Quantities
	genera := make([]string, 0, len(observed))
	for genus := range observed {
		genera = append(genera, genus)
	}
	sort.Strings(genera)
	for _, genus := range genera {
		layerTotal.Add(observed[genus])
	}
	layerTotal.Reconcile()
	observed[LayerGenus] = layerTotal

	state := State{
		Polygon: PolygonState{
			PolygonID:     in.inventory.PolygonID,
			Layer:         in.inventory.Layer.Type,
			ReferenceYear: in.inventory.ReferenceYear,
			GrowthModel:   model,
			BECZone:       in.inventory.BECZone,
		},
		Species:     in.species,
		Utilization: observed,
	}
	paths := make([]string, 0, 3)
	for _, tag := range []int{TagOutput1, TagOutput2, TagOutput3} {
		p, err := in.ctl.Path(tag)
		if err != nil {
			return ioFailure(err)
		}
		paths = append(paths, p)
	}
	if err := WriteState(state, paths[0], paths[1], paths[2]); err != nil {
		return ioFailure(err)
	}
	return CodeOK, nil
}

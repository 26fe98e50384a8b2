package growth

import (
	"context"
	"fmt"
	"os"

	"vdypcore/internal/utilization"
	"vdypcore/pkg/domain"
)

// Forward grows the adjusted layer state from the first year (tag 100) up
// to the target year (tag 101), writing one yield block per year.
func (e *ModelEngine) Forward(ctx context.Context, controlFile string) (ReturnCode, error) {
	return e.grow(ctx, controlFile, 1)
}

// Back projects the adjusted layer state from the first year (tag 100)
// down to the target year (tag 101).
func (e *ModelEngine) Back(ctx context.Context, controlFile string) (ReturnCode, error) {
	return e.grow(ctx, controlFile, -1)
}

func (e *ModelEngine) grow(ctx context.Context, controlFile string, direction int) (ReturnCode, error) {
	ctl, err := loadControl(controlFile)
	if err != nil {
		return ioFailure(err)
	}
	var paths [4]string
	for i, tag := range []int{TagInput1, TagInput2, TagInput3, TagOutput1} {
		if paths[i], err = ctl.Path(tag); err != nil {
			return ioFailure(err)
		}
	}
	first, err := ctl.Int(TagFirstYear)
	if err != nil {
		return ioFailure(err)
	}
	target, err := ctl.Int(TagTargetYear)
	if err != nil {
		return ioFailure(err)
	}
	if (target-first)*direction < 0 {
		return ioFailure(fmt.Errorf("target year %d is not reachable from %d", target, first))
	}
	state, err := ReadState(paths[0], paths[1], paths[2])
	if err != nil {
		return ioFailure(err)
	}
	cvs, code, err := e.compatibilityVariables(ctl, state)
	if err != nil || code != CodeOK {
		return code, err
	}

	out, err := os.Create(paths[3]) // #nosec G304 -- yield file lives in the execution folder
	if err != nil {
		return ioFailure(err)
	}
	yw := NewYieldWriter(out)
	for year := first; ; year += direction {
		if err := ctx.Err(); err != nil {
			_ = out.Close()
			return ioFailure(err)
		}
		code, err := e.growYear(yw, state, cvs, year)
		if err != nil || code != CodeOK {
			_ = out.Close()
			return code, err
		}
		if year == target {
			break
		}
	}
	if err := yw.Flush(); err != nil {
		_ = out.Close()
		return ioFailure(err)
	}
	if err := out.Close(); err != nil {
		return ioFailure(err)
	}
	return CodeOK, nil
}

// compatibilityVariables derives one set of variables per species for the
// growth period, or loads the legacy override shared by every species.
func (e *ModelEngine) compatibilityVariables(ctl Control, state State) (map[string]utilization.CompatibilityVariables, ReturnCode, error) {
	which := utilization.LoreyOther
	if state.Polygon.Layer == domain.ProjectionPrimary {
		which = utilization.LoreyPrimary
	}
	out := make(map[string]utilization.CompatibilityVariables, len(state.Species))
	if _, ok := ctl.Value(TagCompatibilityOverride); ok {
		path, err := ctl.Path(TagCompatibilityOverride)
		if err != nil {
			return nil, CodeIOFailure, err
		}
		f, err := os.Open(path) // #nosec G304 -- override file is copied into the execution folder
		if err != nil {
			return nil, CodeIOFailure, err
		}
		values, err := utilization.ReadLegacyArray(f)
		_ = f.Close()
		if err != nil {
			return nil, CodeIOFailure, err
		}
		cv, err := utilization.FromLegacyArray(values)
		if err != nil {
			return nil, CodeIOFailure, err
		}
		for _, sp := range state.Species {
			out[sp.Genus] = cv.ForLayer(which)
		}
		return out, CodeOK, nil
	}
	for _, sp := range state.Species {
		predicted, err := e.predict(sp, sp.TotalAge)
		if err != nil {
			return nil, CodeSiteCurveFailure, nil
		}
		out[sp.Genus] = utilization.ComputeCompatibilityVariables(state.Utilization[sp.Genus], predicted.quantities, which)
	}
	return out, CodeOK, nil
}

// growYear writes the species and layer records of one year. Species not
// yet established are left out; a year without any established species
// writes nothing.
func (e *ModelEngine) growYear(yw *YieldWriter, state State, cvs map[string]utilization.CompatibilityVariables, year int) (ReturnCode, error) {
	offset := float64(year - state.Polygon.ReferenceYear)
	var layer utilization.Quantities
	leadAge, leadHeight := 0.0, 0.0
	established := 0
	for _, sp := range state.Species {
		age := sp.TotalAge + offset
		if age <= 0 {
			continue
		}
		p, err := e.predict(sp, age)
		if err != nil {
			return CodeSiteCurveFailure, nil
		}
		q := cvs[sp.Genus].Apply(p.quantities)
		if established == 0 {
			leadAge, leadHeight = age, p.dominantHeight
		}
		established++
		for _, c := range utilization.AllClasses {
			if err := yw.Write(YieldRecord{Year: year, Genus: sp.Genus, Class: c, Age: age, DominantHeight: p.dominantHeight, Values: q.At(c)}); err != nil {
				return ioFailure(err)
			}
		}
		layer.Add(q)
	}
	if established == 0 {
		return CodeOK, nil
	}
	layer.Reconcile()
	for _, c := range utilization.AllClasses {
		if err := yw.Write(YieldRecord{Year: year, Genus: LayerGenus, Class: c, Age: leadAge, DominantHeight: leadHeight, Values: layer.At(c)}); err != nil {
			return ioFailure(err)
		}
	}
	return CodeOK, nil
}

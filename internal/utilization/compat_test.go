package utilization

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestNewCompatibilityVariablesDefaults(t *testing.T) {
	cv := NewCompatibilityVariables()
	for _, c := range []Class{ClassSmall, ClassU75To125, ClassU125To175, ClassU175To225, ClassOver225} {
		for _, v := range []Variable{BasalArea, QuadMeanDiameter} {
			got, err := cv.Value(c, v)
			if err != nil {
				t.Fatalf("value %s/%s: %v", c, v, err)
			}
			if got != 1 {
				t.Fatalf("value %s/%s: expected 1.0, got %v", c, v, got)
			}
		}
	}
	for _, c := range MerchantableClasses {
		for v := WholeStem; v <= CloseUtilizationNetDecayWaste; v++ {
			got, err := cv.VolumeValue(c, v)
			if err != nil || got != 1 {
				t.Fatalf("volume %s/%s: expected 1.0, got %v (%v)", c, v, got, err)
			}
		}
	}
	for v := BasalArea; v <= WholeStemVolume; v++ {
		got, err := cv.SmallValue(v)
		if err != nil || got != 1 {
			t.Fatalf("small %s: expected 1.0, got %v (%v)", v, got, err)
		}
	}
	if cv.LoreyHeight(LoreyPrimary) != 1 || cv.LoreyHeight(LoreyOther) != 1 {
		t.Fatalf("expected Lorey height defaults of 1.0")
	}
}

func TestCompatibilityVariableInvalidQueries(t *testing.T) {
	cv := NewCompatibilityVariables()
	cases := []struct {
		name string
		call func() error
	}{
		{"value all class", func() error { _, err := cv.Value(ClassAll, BasalArea); return err }},
		{"value lorey height", func() error { _, err := cv.Value(ClassU75To125, LoreyHeight); return err }},
		{"value whole stem", func() error { _, err := cv.Value(ClassSmall, WholeStemVolume); return err }},
		{"volume small", func() error { _, err := cv.VolumeValue(ClassSmall, WholeStem); return err }},
		{"volume all", func() error { _, err := cv.VolumeValue(ClassAll, CloseUtilization); return err }},
		{"volume breakage", func() error {
			_, err := cv.VolumeValue(ClassOver225, CloseUtilizationNetDecayWasteBreakage)
			return err
		}},
		{"small unknown", func() error { _, err := cv.SmallValue(Variable(9)); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			if !errors.Is(err, ErrInvalidQuery) {
				t.Fatalf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}

func TestComputeAndApplyReproducesObservation(t *testing.T) {
	predicted, err := Breakdown(StandTotals{BasalArea: 30, TreesPerHectare: 900, LoreyHeight: 20, WholeStemVolume: 250}, DefaultBreakdownParams)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	observed := predicted
	observed.BasalArea.Scale(1.1)
	observed.QuadMeanDiameter.Scale(1.05)
	for i := range observed.Volume {
		observed.Volume[i].Scale(0.9)
	}
	observed.LoreyHeight.Scale(1.2)
	for _, c := range append(MerchantableClasses[:], ClassSmall) {
		observed.TreesPerHectare[c] = TreesPerHectare(observed.BasalArea[c], observed.QuadMeanDiameter[c])
	}
	observed.Reconcile()

	cv := ComputeCompatibilityVariables(observed, predicted, LoreyPrimary)
	if got := cv.LoreyHeight(LoreyPrimary); math.Abs(got-1.2) > 1e-9 {
		t.Fatalf("expected primary Lorey multiplier 1.2, got %v", got)
	}
	if cv.LoreyHeight(LoreyOther) != 1 {
		t.Fatalf("other layer multiplier must stay 1.0")
	}
	adjusted := cv.Apply(predicted)
	for _, c := range MerchantableClasses {
		if math.Abs(adjusted.BasalArea[c]-observed.BasalArea[c]) > 1e-9 {
			t.Fatalf("basal area %s: expected %v, got %v", c, observed.BasalArea[c], adjusted.BasalArea[c])
		}
		if math.Abs(adjusted.Volume[CloseUtilization][c]-observed.Volume[CloseUtilization][c]) > 1e-9 {
			t.Fatalf("cu volume %s mismatch", c)
		}
		if math.Abs(adjusted.TreesPerHectare[c]-observed.TreesPerHectare[c]) > 1e-6 {
			t.Fatalf("tph %s: expected %v, got %v", c, observed.TreesPerHectare[c], adjusted.TreesPerHectare[c])
		}
	}
	if math.Abs(adjusted.BasalArea[ClassAll]-observed.BasalArea[ClassAll]) > 1e-9 {
		t.Fatalf("All slot not reconciled")
	}
}

func TestComputeCompatibilityVariablesZeroPrediction(t *testing.T) {
	var observed, predicted Quantities
	observed.BasalArea[ClassU75To125] = 4
	cv := ComputeCompatibilityVariables(observed, predicted, LoreyOther)
	got, err := cv.Value(ClassU75To125, BasalArea)
	if err != nil || got != 1 {
		t.Fatalf("expected 1.0 for zero prediction, got %v (%v)", got, err)
	}
}

func TestLegacyArrayLayout(t *testing.T) {
	values := make([]float64, LegacySlots)
	for i := range values {
		values[i] = float64(i + 1)
	}
	cv, err := FromLegacyArray(values)
	if err != nil {
		t.Fatalf("from legacy: %v", err)
	}
	if v, _ := cv.VolumeValue(ClassU175To225, CloseUtilization); v != 32 {
		t.Fatalf("volume slot 10*uc+v: expected 32, got %v", v)
	}
	if v, _ := cv.Value(ClassOver225, BasalArea); v != 54 {
		t.Fatalf("basal area slot: expected 54, got %v", v)
	}
	if v, _ := cv.Value(ClassU75To125, QuadMeanDiameter); v != 61 {
		t.Fatalf("qmd slot: expected 61, got %v", v)
	}
	if cv.LoreyHeight(LoreyPrimary) != 71 || cv.LoreyHeight(LoreyOther) != 72 {
		t.Fatalf("lorey slots wrong")
	}
	if v, _ := cv.SmallValue(WholeStemVolume); v != 94 {
		t.Fatalf("small wsv slot: expected 94, got %v", v)
	}
	if v, _ := cv.Value(ClassSmall, BasalArea); v != 91 {
		t.Fatalf("small basal area by class reads slot 91, got %v", v)
	}
	if v, _ := cv.Value(ClassSmall, QuadMeanDiameter); v != 92 {
		t.Fatalf("small qmd by class reads slot 92, got %v", v)
	}

	back := cv.LegacyArray()
	for slot := range legacyLayout {
		if back[slot-1] != values[slot-1] {
			t.Fatalf("slot %d: expected %v, got %v", slot, values[slot-1], back[slot-1])
		}
	}
	if back[0] != 1 || back[97] != 1 {
		t.Fatalf("unmapped slots should be 1.0, got %v and %v", back[0], back[97])
	}
}

func TestSmallClassValueSharesSmallStorage(t *testing.T) {
	values := NewCompatibilityVariables().LegacyArray()
	values[91+int(BasalArea)-1] = 0.5
	cv, err := FromLegacyArray(values)
	if err != nil {
		t.Fatalf("from legacy: %v", err)
	}
	byClass, err := cv.Value(ClassSmall, BasalArea)
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	small, err := cv.SmallValue(BasalArea)
	if err != nil {
		t.Fatalf("small value: %v", err)
	}
	if byClass != 0.5 || small != 0.5 {
		t.Fatalf("expected 0.5 from both accessors, got %v and %v", byClass, small)
	}

	var predicted Quantities
	predicted.BasalArea[ClassSmall] = 2
	predicted.QuadMeanDiameter[ClassSmall] = 6
	adjusted := cv.Apply(predicted)
	if adjusted.BasalArea[ClassSmall] != 1 {
		t.Fatalf("expected small basal area scaled to 1, got %v", adjusted.BasalArea[ClassSmall])
	}
}

func TestFromLegacyArrayNeutralValues(t *testing.T) {
	values := make([]float64, LegacySlots)
	for i := range values {
		values[i] = 1
	}
	cv, err := FromLegacyArray(values)
	if err != nil {
		t.Fatalf("from legacy: %v", err)
	}
	for _, c := range append([]Class{ClassSmall}, MerchantableClasses[:]...) {
		for _, v := range []Variable{BasalArea, QuadMeanDiameter} {
			got, err := cv.Value(c, v)
			if err != nil || got != 1 {
				t.Fatalf("value %s/%s: expected 1.0, got %v (%v)", c, v, got, err)
			}
		}
	}
	for v := BasalArea; v <= WholeStemVolume; v++ {
		if got, err := cv.SmallValue(v); err != nil || got != 1 {
			t.Fatalf("small %s: expected 1.0, got %v (%v)", v, got, err)
		}
	}
	for _, c := range MerchantableClasses {
		for v := WholeStem; v <= CloseUtilizationNetDecayWaste; v++ {
			if got, err := cv.VolumeValue(c, v); err != nil || got != 1 {
				t.Fatalf("volume %s/%s: expected 1.0, got %v (%v)", c, v, got, err)
			}
		}
	}
	if cv.LoreyHeight(LoreyPrimary) != 1 || cv.LoreyHeight(LoreyOther) != 1 {
		t.Fatalf("expected Lorey height 1.0")
	}
	for _, c := range []Class{ClassSmall, ClassAll} {
		if _, err := cv.VolumeValue(c, WholeStem); !errors.Is(err, ErrInvalidQuery) {
			t.Fatalf("volume for %s: expected ErrInvalidQuery, got %v", c, err)
		}
	}
	for i, v := range cv.LegacyArray() {
		if v != 1 {
			t.Fatalf("slot %d: expected 1.0, got %v", i+1, v)
		}
	}
}

func TestFromLegacyArrayRejectsWrongLength(t *testing.T) {
	if _, err := FromLegacyArray(make([]float64, 10)); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestReadWriteLegacyArray(t *testing.T) {
	values := NewCompatibilityVariables().LegacyArray()
	values[50] = 1.25
	var sb strings.Builder
	if err := WriteLegacyArray(&sb, values); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadLegacyArray(strings.NewReader("# override\n" + sb.String()))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got[50] != 1.25 || len(got) != LegacySlots {
		t.Fatalf("unexpected values %v", got)
	}
	if _, err := ReadLegacyArray(strings.NewReader("1 2 x")); err == nil {
		t.Fatalf("expected parse error")
	}
}

package domain

import (
	"strings"
	"testing"
)

func TestParseProjectionType(t *testing.T) {
	cases := []struct {
		in   string
		want ProjectionType
	}{
		{"primary", ProjectionPrimary},
		{" Veteran ", ProjectionVeteran},
		{"DEAD", ProjectionDead},
		{"regeneration", ProjectionRegeneration},
	}
	for _, tc := range cases {
		got, err := ParseProjectionType(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q: expected %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestParseProjectionTypeSuggestsNearest(t *testing.T) {
	_, err := ParseProjectionType("residuel")
	if err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if !strings.Contains(err.Error(), "did you mean RESIDUAL") {
		t.Fatalf("expected suggestion, got %v", err)
	}
	_, err = ParseProjectionType("understory-canopy")
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Fatalf("expected plain error for distant name, got %v", err)
	}
}

func TestAllProjectionTypesIsACopy(t *testing.T) {
	types := AllProjectionTypes()
	if len(types) != 5 || types[0] != ProjectionPrimary || types[4] != ProjectionDead {
		t.Fatalf("unexpected order: %v", types)
	}
	types[0] = "BROKEN"
	if AllProjectionTypes()[0] != ProjectionPrimary {
		t.Fatalf("caller mutation leaked into package state")
	}
}

func TestComponentStage(t *testing.T) {
	cases := map[Component]ProjectionStage{
		ComponentFipStart: StageInitial,
		ComponentVriStart: StageInitial,
		ComponentAdjust:   StageAdjust,
		ComponentForward:  StageForward,
		ComponentBack:     StageBack,
		Component("nope"): "",
	}
	for c, want := range cases {
		if got := c.Stage(); got != want {
			t.Fatalf("%s: expected %q, got %q", c, want, got)
		}
	}
}

func TestInitialGrowthModel(t *testing.T) {
	if StandardFIP.InitialGrowthModel() != GrowthModelFIP {
		t.Fatalf("F should start with FIP")
	}
	if StandardVRI.InitialGrowthModel() != GrowthModelVRI || StandardInventory.InitialGrowthModel() != GrowthModelVRI {
		t.Fatalf("V and I should start with VRI")
	}
	if GrowthModelFIP.Component() != ComponentFipStart || GrowthModelVRI.Component() != ComponentVriStart {
		t.Fatalf("growth model component mapping wrong")
	}
}

func TestProjectionTypeDir(t *testing.T) {
	if ProjectionRegeneration.Dir() != "regeneration" {
		t.Fatalf("unexpected dir %q", ProjectionRegeneration.Dir())
	}
}

package siteindex

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const (
	curveFDC   CurveID = 11
	curveHWC   CurveID = 31
	curveFDCGI CurveID = 95
)

func TestIterateMatchesClosedForm(t *testing.T) {
	c, err := Lookup(curveFDC)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	const si = 25.0
	heightAt := func(age float64) (float64, error) {
		if age < 0 {
			return 0, ErrNoAnswer
		}
		return c.height(age, si), nil
	}
	for _, age := range []float64{5, 18.6, 33.3, 60.2} {
		h := c.height(age, si)
		want, err := c.closedFormAge(h, si)
		if err != nil {
			t.Fatalf("closed form at %.1f: %v", age, err)
		}
		got, err := iterate(heightAt, h)
		if err != nil {
			t.Fatalf("iterate at %.1f: %v", age, err)
		}
		if math.Abs(got-want) > 0.01 {
			t.Fatalf("age %.1f: iterate %.4f, closed form %.4f", age, got, want)
		}
	}
}

func TestIterateNoAnswerAboveAsymptote(t *testing.T) {
	c, _ := Lookup(curveFDC)
	_, err := iterate(func(age float64) (float64, error) { return c.height(age, 25), nil }, 60)
	if !errors.Is(err, ErrNoAnswer) {
		t.Fatalf("expected no answer, got %v", err)
	}
	if got := LegacyResult(0, err); got != -4 {
		t.Fatalf("expected legacy -4, got %v", got)
	}
}

func TestIterateGivesUpAfterRepeatedFailures(t *testing.T) {
	calls := 0
	_, err := iterate(func(float64) (float64, error) {
		calls++
		return 0, errors.New("boom")
	}, 10)
	if !errors.Is(err, ErrNoAnswer) {
		t.Fatalf("expected no answer, got %v", err)
	}
	if calls != iterateMaxErrors {
		t.Fatalf("expected %d evaluations, got %d", iterateMaxErrors, calls)
	}
}

func TestAgeFromHeightBlendedRoundTrip(t *testing.T) {
	for _, age := range []float64{3, 10, 30, 90} {
		h, err := HeightFromAge(curveHWC, age, AgeBreast, 24, 0)
		if err != nil {
			t.Fatalf("height: %v", err)
		}
		got, err := AgeFromHeight(curveHWC, h, AgeBreast, 24, 0)
		if err != nil {
			t.Fatalf("age: %v", err)
		}
		back, _ := HeightFromAge(curveHWC, got, AgeBreast, 24, 0)
		if math.Abs(back-h) > iterateTolerance {
			t.Fatalf("age %.0f: recovered %.4f gives height %.4f, want %.4f", age, got, back, h)
		}
	}
}

func TestAgeFromHeightTotalAddsYearsToBreastHeight(t *testing.T) {
	y2bh, err := YearsToBreastHeight(curveFDC, 28)
	if err != nil {
		t.Fatalf("y2bh: %v", err)
	}
	h, err := HeightFromAge(curveFDC, 40+y2bh, AgeTotal, 28, y2bh)
	if err != nil {
		t.Fatalf("height: %v", err)
	}
	total, err := AgeFromHeight(curveFDC, h, AgeTotal, 28, y2bh)
	if err != nil {
		t.Fatalf("age: %v", err)
	}
	if math.Abs(total-(40+y2bh)) > 1e-6 {
		t.Fatalf("expected total age %.3f, got %.3f", 40+y2bh, total)
	}
	juvenile, err := HeightFromAge(curveFDC, y2bh/2, AgeTotal, 28, y2bh)
	if err != nil || math.Abs(juvenile-0.65) > 1e-9 {
		t.Fatalf("expected juvenile height 0.65, got %v (%v)", juvenile, err)
	}
}

func TestSiteIndexFromHeightInvertsHeightFromAge(t *testing.T) {
	for _, id := range []CurveID{curveFDC, curveHWC, 23, 41} {
		h, err := HeightFromAge(id, 35, AgeBreast, 21.5, 0)
		if err != nil {
			t.Fatalf("curve %d height: %v", id, err)
		}
		si, err := SiteIndexFromHeight(id, 35, AgeBreast, h, 0)
		if err != nil {
			t.Fatalf("curve %d site index: %v", id, err)
		}
		if math.Abs(si-21.5) > 1e-9 {
			t.Fatalf("curve %d: expected 21.5, got %v", id, si)
		}
	}
}

func TestGrowthInterceptScan(t *testing.T) {
	c, _ := Lookup(curveFDCGI)
	h := c.height(15, 20)
	age, err := AgeFromHeight(curveFDCGI, h, AgeBreast, 20, 0)
	if err != nil || age != 15 {
		t.Fatalf("expected age 15, got %v (%v)", age, err)
	}

	cases := []struct {
		name   string
		height float64
	}{
		{"closest age on upper boundary", 30},
		{"interior but too far from target", 1.6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := giIterate(c, tc.height, 20)
			if !errors.Is(err, ErrNoAnswer) {
				t.Fatalf("expected no answer, got %v", err)
			}
		})
	}
}

func TestGrowthInterceptRejectsTotalAge(t *testing.T) {
	_, err := AgeFromHeight(curveFDCGI, 10, AgeTotal, 20, 5)
	if !errors.Is(err, ErrGrowthInterceptTotalAge) {
		t.Fatalf("expected growth intercept total age error, got %v", err)
	}
	if code, ok := CodeOf(err); !ok || code != CodeGrowthInterceptTotalAge {
		t.Fatalf("expected code -9, got %v", code)
	}
	if _, err := HeightFromAge(curveFDCGI, 10, AgeTotal, 20, 5); !errors.Is(err, ErrGrowthInterceptTotalAge) {
		t.Fatalf("height from total age on growth intercept curve must fail, got %v", err)
	}
}

func TestSolverErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want *Error
	}{
		{"unknown curve", func() error { _, err := HeightFromAge(999, 10, AgeBreast, 20, 0); return err }(), ErrUnknownCurve},
		{"invalid age type", func() error { _, err := AgeFromHeight(curveFDC, 10, AgeType(7), 20, 0); return err }(), ErrInvalidAgeType},
		{"below breast height", func() error { _, err := AgeFromHeight(curveFDC, 1.0, AgeBreast, 20, 0); return err }(), ErrBelowBreastHeight},
		{"site index from short tree", func() error { _, err := SiteIndexFromHeight(curveFDC, 10, AgeBreast, 1.0, 0); return err }(), ErrBelowBreastHeight},
		{"closed form above asymptote", func() error { _, err := AgeFromHeight(curveFDC, 60, AgeBreast, 25, 0); return err }(), ErrNoAnswer},
		{"blended above asymptote", func() error { _, err := AgeFromHeight(curveHWC, 55, AgeBreast, 24, 0); return err }(), ErrNoAnswer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, tc.err)
			}
			if errors.Is(tc.err, ErrUnknownCurve) && tc.want != ErrUnknownCurve {
				t.Fatalf("codes must not match across sentinels")
			}
			if LegacyResult(1, tc.err) != float64(tc.want.Code) {
				t.Fatalf("legacy result mismatch for %v", tc.err)
			}
		})
	}
}

func TestCurveLookup(t *testing.T) {
	c, err := DefaultCurve("hw")
	if err != nil || c.ID != curveHWC {
		t.Fatalf("expected HWC for hemlock, got %+v (%v)", c, err)
	}
	if _, err := DefaultCurve("ZZ"); !errors.Is(err, ErrUnknownCurve) {
		t.Fatalf("expected unknown curve, got %v", err)
	}
	c, err = CurveByName("pli")
	if err != nil || c.ID != 23 {
		t.Fatalf("expected PLI, got %+v (%v)", c, err)
	}
	_, err = CurveByName("FDX")
	if err == nil || !strings.Contains(err.Error(), "did you mean") {
		t.Fatalf("expected suggestion, got %v", err)
	}
	list := Curves()
	for i := 1; i < len(list); i++ {
		if list[i-1].ID >= list[i].ID {
			t.Fatalf("curves not ordered")
		}
	}
	if _, err := ParseAgeType("breast"); err != nil {
		t.Fatalf("parse breast: %v", err)
	}
	if _, err := ParseAgeType("stump"); !errors.Is(err, ErrInvalidAgeType) {
		t.Fatalf("expected invalid age type, got %v", err)
	}
}

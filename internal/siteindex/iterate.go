package siteindex

import "math"

const (
	iterateStartAge  = 25.0
	iterateTolerance = 0.005
	iterateMinStep   = 1e-5
	iterateMaxErrors = 100
	iterateMaxAge    = 999.0

	giMinAge      = 1
	giMaxAge      = 99
	giMaxSIOffset = 1.0
)

// iterate searches for the breast-height age at which heightAt reaches
// target. The probe starts at iterateStartAge and moves by a step that is
// halved and reversed every time the probe crosses the target. A failed
// height evaluation retreats halfway towards the previous probe; failures
// are counted separately from crossings.
func iterate(heightAt func(age float64) (float64, error), target float64) (float64, error) {
	age := iterateStartAge
	step := age / 2
	failures := 0
	for {
		h, err := heightAt(age)
		if err != nil {
			failures++
			if failures >= iterateMaxErrors {
				return 0, newError(CodeNoAnswer, "iterate", "%d failed height evaluations", failures)
			}
			age -= step / 2
			step /= 2
			continue
		}
		if math.Abs(h-target) < iterateTolerance {
			return age, nil
		}
		if (h > target && step > 0) || (h < target && step < 0) {
			step = -step / 2
			if math.Abs(step) < iterateMinStep {
				return age, nil
			}
		}
		age += step
		if age > iterateMaxAge {
			return 0, newError(CodeNoAnswer, "iterate", "age exceeds %.0f", iterateMaxAge)
		}
	}
}

// giIterate scans integral breast-height ages for the one whose growth
// intercept site index is closest to siteIndex. The answer must lie strictly
// inside the scanned range and within giMaxSIOffset of the target.
func giIterate(c *Curve, height, siteIndex float64) (float64, error) {
	bestAge := 0
	bestDiff := math.Inf(1)
	for age := giMinAge; age <= giMaxAge; age++ {
		f := c.fraction(float64(age))
		if f <= 0 {
			continue
		}
		si := breastHeight + (height-breastHeight)/f
		if diff := math.Abs(si - siteIndex); diff < bestDiff {
			bestAge, bestDiff = age, diff
		}
	}
	if bestAge <= giMinAge || bestAge >= giMaxAge {
		return 0, newError(CodeNoAnswer, "gi iterate", "closest age %d on scan boundary", bestAge)
	}
	if bestDiff > giMaxSIOffset {
		return 0, newError(CodeNoAnswer, "gi iterate", "closest site index off by %.2f", bestDiff)
	}
	return float64(bestAge), nil
}

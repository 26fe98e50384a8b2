package siteindex

import "math"

// breastHeightAge converts an age of the given type into breast-height age.
// juvenile is true when a total age falls before breast height was reached.
func breastHeightAge(c *Curve, op string, age float64, ageType AgeType, y2bh float64) (bh float64, juvenile bool, err error) {
	switch ageType {
	case AgeBreast:
		return age, false, nil
	case AgeTotal:
		if c.Form == FormGrowthIntercept {
			return 0, false, newError(CodeGrowthInterceptTotalAge, op, "curve %s", c.Name)
		}
		if age < y2bh {
			return 0, true, nil
		}
		return age - y2bh, false, nil
	default:
		return 0, false, newError(CodeInvalidAgeType, op, "%s", ageType)
	}
}

// HeightFromAge returns the dominant height reached at age on the given
// curve for a stand of the given site index. Total ages before breast height
// are interpolated linearly from zero.
func HeightFromAge(id CurveID, age float64, ageType AgeType, siteIndex, y2bh float64) (float64, error) {
	const op = "height from age"
	c, err := Lookup(id)
	if err != nil {
		return 0, err
	}
	if siteIndex <= breastHeight {
		return 0, newError(CodeNoAnswer, op, "site index %.2f", siteIndex)
	}
	if age < 0 {
		return 0, newError(CodeNoAnswer, op, "negative age %.2f", age)
	}
	bh, juvenile, err := breastHeightAge(c, op, age, ageType, y2bh)
	if err != nil {
		return 0, err
	}
	if juvenile {
		return breastHeight * age / y2bh, nil
	}
	return c.height(bh, siteIndex), nil
}

func (c *Curve) height(bh, siteIndex float64) float64 {
	if bh <= 0 {
		return breastHeight
	}
	return breastHeight + (siteIndex-breastHeight)*c.fraction(bh)
}

// SiteIndexFromHeight returns the site index of a stand that reached height
// at age.
func SiteIndexFromHeight(id CurveID, age float64, ageType AgeType, height, y2bh float64) (float64, error) {
	const op = "site index from height"
	c, err := Lookup(id)
	if err != nil {
		return 0, err
	}
	bh, juvenile, err := breastHeightAge(c, op, age, ageType, y2bh)
	if err != nil {
		return 0, err
	}
	if height < breastHeight {
		return 0, newError(CodeBelowBreastHeight, op, "height %.2f", height)
	}
	if juvenile || bh < 0.5 {
		return 0, newError(CodeNoAnswer, op, "breast height age %.2f", bh)
	}
	if c.Form == FormGrowthIntercept && bh > giMaxAge {
		return 0, newError(CodeNoAnswer, op, "growth intercept age %.1f beyond %d", bh, giMaxAge)
	}
	f := c.fraction(bh)
	if f <= 0 || math.IsNaN(f) {
		return 0, newError(CodeNoAnswer, op, "breast height age %.2f", bh)
	}
	return breastHeight + (height-breastHeight)/f, nil
}

// YearsToBreastHeight returns the number of years a stand of the given site
// index needs to reach breast height.
func YearsToBreastHeight(id CurveID, siteIndex float64) (float64, error) {
	c, err := Lookup(id)
	if err != nil {
		return 0, err
	}
	if siteIndex <= breastHeight {
		return 0, newError(CodeNoAnswer, "years to breast height", "site index %.2f", siteIndex)
	}
	return c.y2bhA + c.y2bhB/siteIndex, nil
}

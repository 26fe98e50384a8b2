package siteindex

import "math"

// AgeFromHeight returns the age at which a stand of the given site index
// reaches height. Chapman-Richards curves are inverted directly, blended
// curves by iteration and growth-intercept curves by an age scan.
func AgeFromHeight(id CurveID, height float64, ageType AgeType, siteIndex, y2bh float64) (float64, error) {
	const op = "age from height"
	c, err := Lookup(id)
	if err != nil {
		return 0, err
	}
	if ageType != AgeTotal && ageType != AgeBreast {
		return 0, newError(CodeInvalidAgeType, op, "%s", ageType)
	}
	if c.Form == FormGrowthIntercept && ageType == AgeTotal {
		return 0, newError(CodeGrowthInterceptTotalAge, op, "curve %s", c.Name)
	}
	if siteIndex <= breastHeight {
		return 0, newError(CodeNoAnswer, op, "site index %.2f", siteIndex)
	}
	if height < 0 {
		return 0, newError(CodeNoAnswer, op, "negative height %.2f", height)
	}
	if height < breastHeight {
		if ageType == AgeBreast {
			return 0, newError(CodeBelowBreastHeight, op, "height %.2f", height)
		}
		return y2bh * height / breastHeight, nil
	}

	var bh float64
	switch c.Form {
	case FormChapmanRichards:
		bh, err = c.closedFormAge(height, siteIndex)
	case FormBlended:
		bh, err = iterate(func(age float64) (float64, error) {
			if age < 0 {
				return 0, newError(CodeNoAnswer, op, "negative probe age")
			}
			return c.height(age, siteIndex), nil
		}, height)
	case FormGrowthIntercept:
		bh, err = giIterate(c, height, siteIndex)
	}
	if err != nil {
		return 0, err
	}
	if ageType == AgeTotal {
		return bh + y2bh, nil
	}
	return bh, nil
}

func (c *Curve) closedFormAge(height, siteIndex float64) (float64, error) {
	x := math.Pow((height-breastHeight)/(siteIndex-breastHeight), 1/c.primary.c) * (1 - math.Exp(-c.primary.b*indexAge))
	if x >= 1 {
		return 0, newError(CodeNoAnswer, "age from height", "height %.2f beyond curve asymptote", height)
	}
	return -math.Log(1-x) / c.primary.b, nil
}

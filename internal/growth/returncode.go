// Package growth implements the legacy growth routines (FIP-start,
// VRI-start, Forward and Back) and the control and growth file contract they
// share with the stage runner.
package growth

import "fmt"

// ReturnCode is the integer outcome of a growth routine. Zero is success.
type ReturnCode int

const (
	CodeOK                    ReturnCode = 0
	CodeNoPrimaryLayer        ReturnCode = -1
	CodeNoSpecies             ReturnCode = -2
	CodeSpeciesPercentSum     ReturnCode = -3
	CodeHeightBelowMinimum    ReturnCode = -4
	CodeBreastHeightAgeLow    ReturnCode = -6
	CodeBasalAreaTooLow       ReturnCode = -12
	CodeBasalAreaBelowMinimum ReturnCode = -13
	CodeSiteCurveFailure      ReturnCode = -20
	CodeIOFailure             ReturnCode = -99
)

var returnCodeText = map[ReturnCode]string{
	CodeOK:                    "ok",
	CodeNoPrimaryLayer:        "no primary layer",
	CodeNoSpecies:             "no species",
	CodeSpeciesPercentSum:     "species percentages do not sum to 100",
	CodeHeightBelowMinimum:    "primary height below minimum",
	CodeBreastHeightAgeLow:    "breast height age below 0.5",
	CodeBasalAreaTooLow:       "predicted basal area at or below 0.05",
	CodeBasalAreaBelowMinimum: "basal area fails minimum requirement",
	CodeSiteCurveFailure:      "site curve failure",
	CodeIOFailure:             "file failure",
}

func (c ReturnCode) String() string {
	if text, ok := returnCodeText[c]; ok {
		return fmt.Sprintf("%d (%s)", int(c), text)
	}
	return fmt.Sprintf("%d", int(c))
}

// OK reports success.
func (c ReturnCode) OK() bool {
	return c == CodeOK
}

// RetryEligible reports whether a FIP-start failure with this code may be
// retried with VRI-start.
func (c ReturnCode) RetryEligible() bool {
	switch c {
	case CodeHeightBelowMinimum, CodeBreastHeightAgeLow, CodeBasalAreaTooLow, CodeBasalAreaBelowMinimum:
		return true
	default:
		return false
	}
}

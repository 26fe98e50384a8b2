// Package utilization models per-utilization-class stand quantities and the
// compatibility variables that reconcile model predictions with inventory
// observations.
package utilization

import "fmt"

// Class is a diameter utilization class. The four merchantable buckets are
// bracketed by two special classes: Small (below 7.5 cm) and All (the sum of
// the merchantable buckets).
type Class int

const (
	ClassSmall Class = iota
	ClassU75To125
	ClassU125To175
	ClassU175To225
	ClassOver225
	ClassAll
)

const classCount = 6

// MerchantableClasses lists the four merchantable buckets in ascending
// diameter order.
var MerchantableClasses = [4]Class{ClassU75To125, ClassU125To175, ClassU175To225, ClassOver225}

// AllClasses lists every class in slot order.
var AllClasses = [classCount]Class{ClassSmall, ClassU75To125, ClassU125To175, ClassU175To225, ClassOver225, ClassAll}

var classNames = [classCount]string{"small", "7.5-12.5", "12.5-17.5", "17.5-22.5", "22.5+", "all"}

// lower diameter limits in cm; All starts at the merchantable limit.
var classLowerLimits = [classCount]float64{0, 7.5, 12.5, 17.5, 22.5, 7.5}

func (c Class) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Class(%d)", int(c))
	}
	return classNames[c]
}

// Valid reports whether c is one of the six classes.
func (c Class) Valid() bool {
	return c >= ClassSmall && c <= ClassAll
}

// IsMerchantable is true only for the four diameter buckets.
func (c Class) IsMerchantable() bool {
	return c >= ClassU75To125 && c <= ClassOver225
}

// Index returns the legacy offset of the class: Small is -1, All is 0 and
// the merchantable buckets are 1 through 4.
func (c Class) Index() int {
	switch c {
	case ClassSmall:
		return -1
	case ClassAll:
		return 0
	default:
		return int(c)
	}
}

// LowerLimit returns the lower diameter limit of the class in centimetres.
func (c Class) LowerLimit() float64 {
	return classLowerLimits[c]
}

// ClassFromIndex converts a legacy offset back into a Class.
func ClassFromIndex(i int) (Class, error) {
	switch {
	case i == -1:
		return ClassSmall, nil
	case i == 0:
		return ClassAll, nil
	case i >= 1 && i <= 4:
		return Class(i), nil
	default:
		return 0, fmt.Errorf("utilization class index %d out of range", i)
	}
}

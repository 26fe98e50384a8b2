package utilization

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LegacySlots is the size of the flat compatibility-variable array used by
// override files. Slots are numbered 1 through LegacySlots.
const LegacySlots = 98

type slotKind int

const (
	slotVolume slotKind = iota
	slotBasalArea
	slotQMD
	slotLorey
	slotSmall
)

type legacySlot struct {
	kind  slotKind
	class Class // merchantable class for volume, basal area and QMD slots
	index int   // volume variant, Lorey layer or small variable
}

// legacyLayout maps slot numbers to their meaning. Slots not present are
// unused.
var legacyLayout = buildLegacyLayout()

func buildLegacyLayout() map[int]legacySlot {
	layout := make(map[int]legacySlot, 30)
	for _, c := range MerchantableClasses {
		uc := c.Index()
		for v := 1; v <= 4; v++ {
			layout[10*uc+v] = legacySlot{kind: slotVolume, class: c, index: v - 1}
		}
		layout[50+uc] = legacySlot{kind: slotBasalArea, class: c}
		layout[60+uc] = legacySlot{kind: slotQMD, class: c}
	}
	layout[71] = legacySlot{kind: slotLorey, index: int(LoreyPrimary)}
	layout[72] = legacySlot{kind: slotLorey, index: int(LoreyOther)}
	for v := BasalArea; v <= WholeStemVolume; v++ {
		layout[91+int(v)] = legacySlot{kind: slotSmall, index: int(v)}
	}
	return layout
}

// FromLegacyArray builds compatibility variables from the flat legacy array
// where values[i] holds slot i+1. Unmapped slots are ignored.
func FromLegacyArray(values []float64) (CompatibilityVariables, error) {
	cv := NewCompatibilityVariables()
	if len(values) != LegacySlots {
		return cv, fmt.Errorf("legacy compatibility array: expected %d values, got %d", LegacySlots, len(values))
	}
	for slot, meaning := range legacyLayout {
		value := values[slot-1]
		switch meaning.kind {
		case slotVolume:
			cv.volume[meaning.class-1][meaning.index] = value
		case slotBasalArea:
			cv.basalArea[meaning.class-1] = value
		case slotQMD:
			cv.qmd[meaning.class-1] = value
		case slotLorey:
			cv.lorey[meaning.index] = value
		case slotSmall:
			cv.small[meaning.index] = value
		}
	}
	return cv, nil
}

// LegacyArray renders the variables in the flat legacy layout. Unmapped
// slots hold the neutral multiplier 1.0.
func (cv CompatibilityVariables) LegacyArray() []float64 {
	out := make([]float64, LegacySlots)
	for i := range out {
		out[i] = 1
	}
	for slot, meaning := range legacyLayout {
		var value float64
		switch meaning.kind {
		case slotVolume:
			value = cv.volume[meaning.class-1][meaning.index]
		case slotBasalArea:
			value = cv.basalArea[meaning.class-1]
		case slotQMD:
			value = cv.qmd[meaning.class-1]
		case slotLorey:
			value = cv.lorey[meaning.index]
		case slotSmall:
			value = cv.small[meaning.index]
		}
		out[slot-1] = value
	}
	return out
}

// ReadLegacyArray parses whitespace-separated slot values. Lines starting
// with '#' are comments.
func ReadLegacyArray(r io.Reader) ([]float64, error) {
	values := make([]float64, 0, LegacySlots)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		for _, field := range strings.Fields(text) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("legacy compatibility array line %d: %w", line, err)
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(values) != LegacySlots {
		return nil, fmt.Errorf("legacy compatibility array: expected %d values, got %d", LegacySlots, len(values))
	}
	return values, nil
}

// WriteLegacyArray writes values ten per line.
func WriteLegacyArray(w io.Writer, values []float64) error {
	bw := bufio.NewWriter(w)
	for i, v := range values {
		sep := " "
		if i%10 == 9 || i == len(values)-1 {
			sep = "\n"
		}
		if _, err := bw.WriteString(strconv.FormatFloat(v, 'f', 6, 64) + sep); err != nil {
			return err
		}
	}
	return bw.Flush()
}

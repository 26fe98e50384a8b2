package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Unset is the legacy input marker for an absent numeric value. It is
// translated to a nil pointer at the input boundary and never travels further.
const Unset = -9.0

// LayerTotalGenus is the reserved genus code that labels layer totals in the
// exchange files. No species may use it.
const LayerTotalGenus = "*"

// Polygon describes a forest stand as read from inventory input. A polygon
// owns its layers and a layer owns its species; nothing is shared between
// polygons.
type Polygon struct {
	ID               string            `json:"id" yaml:"id"`
	FeatureID        int64             `json:"feature_id" yaml:"feature_id"`
	MapSheet         string            `json:"map_sheet,omitempty" yaml:"map_sheet"`
	BECZone          string            `json:"bec_zone" yaml:"bec_zone"`
	ReferenceYear    int               `json:"reference_year" yaml:"reference_year"`
	Standard         InventoryStandard `json:"standard" yaml:"standard"`
	PercentStockable float64           `json:"percent_stockable,omitempty" yaml:"percent_stockable"`
	Layers           []Layer           `json:"layers" yaml:"layers"`
}

// Layer is a vertical stratum of a polygon.
type Layer struct {
	Type            ProjectionType `json:"type" yaml:"type"`
	CrownClosure    float64        `json:"crown_closure" yaml:"crown_closure"`
	BasalArea       *float64       `json:"basal_area,omitempty" yaml:"basal_area"`
	TreesPerHectare *float64       `json:"trees_per_hectare,omitempty" yaml:"trees_per_hectare"`
	Species         []Species      `json:"species" yaml:"species"`
}

// Species is one genus within a layer.
type Species struct {
	Genus               string   `json:"genus" yaml:"genus"`
	Percent             float64  `json:"percent" yaml:"percent"`
	SiteIndex           float64  `json:"site_index" yaml:"site_index"`
	SiteCurve           int      `json:"site_curve,omitempty" yaml:"site_curve"`
	TotalAge            float64  `json:"total_age" yaml:"total_age"`
	Height              float64  `json:"height" yaml:"height"`
	YearsToBreastHeight *float64 `json:"years_to_breast_height,omitempty" yaml:"years_to_breast_height"`
}

// OptionalValue converts a legacy numeric input into a pointer, mapping the
// Unset marker (and any negative value) to nil.
func OptionalValue(v float64) *float64 {
	if v < 0 || v == Unset {
		return nil
	}
	out := v
	return &out
}

// Layer returns the layer with the given projection type.
func (p *Polygon) Layer(t ProjectionType) (*Layer, bool) {
	for i := range p.Layers {
		if p.Layers[i].Type == t {
			return &p.Layers[i], true
		}
	}
	return nil, false
}

// ProjectionTypes returns the projection types present in the polygon, in
// processing order.
func (p *Polygon) ProjectionTypes() []ProjectionType {
	out := make([]ProjectionType, 0, len(p.Layers))
	for _, t := range projectionTypes {
		if _, ok := p.Layer(t); ok {
			out = append(out, t)
		}
	}
	return out
}

// LeadingSpecies returns the species with the highest percentage. Ties go to
// the species listed first.
func (l *Layer) LeadingSpecies() (Species, bool) {
	if len(l.Species) == 0 {
		return Species{}, false
	}
	lead := l.Species[0]
	for _, sp := range l.Species[1:] {
		if sp.Percent > lead.Percent {
			lead = sp
		}
	}
	return lead, true
}

// SortedSpecies returns the layer species ordered by descending percentage.
func (l *Layer) SortedSpecies() []Species {
	out := append([]Species(nil), l.Species...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percent > out[j].Percent })
	return out
}

// ErrInvalidPolygon is wrapped by every validation failure.
var ErrInvalidPolygon = errors.New("invalid polygon")

// Validate checks the hierarchy invariants of the description.
func (p *Polygon) Validate() error {
	var problems []string
	if strings.TrimSpace(p.ID) == "" {
		problems = append(problems, "polygon id required")
	}
	if p.ReferenceYear <= 0 {
		problems = append(problems, "reference year required")
	}
	switch p.Standard {
	case StandardFIP, StandardVRI, StandardInventory:
	default:
		problems = append(problems, fmt.Sprintf("unknown inventory standard %q", p.Standard))
	}
	if len(p.Layers) == 0 {
		problems = append(problems, "at least one layer required")
	}
	seen := make(map[ProjectionType]struct{}, len(p.Layers))
	for _, layer := range p.Layers {
		if !layer.Type.Valid() {
			problems = append(problems, fmt.Sprintf("unknown layer type %q", layer.Type))
			continue
		}
		if _, dup := seen[layer.Type]; dup {
			problems = append(problems, fmt.Sprintf("duplicate %s layer", layer.Type))
		}
		seen[layer.Type] = struct{}{}
		if len(layer.Species) == 0 {
			continue
		}
		total := 0.0
		genera := make(map[string]struct{}, len(layer.Species))
		for _, sp := range layer.Species {
			total += sp.Percent
			switch {
			case strings.TrimSpace(sp.Genus) == "":
				problems = append(problems, fmt.Sprintf("%s layer: species genus required", layer.Type))
				continue
			case strings.IndexFunc(sp.Genus, unicode.IsSpace) >= 0:
				problems = append(problems, fmt.Sprintf("%s layer: genus %q contains whitespace", layer.Type, sp.Genus))
			case sp.Genus == LayerTotalGenus:
				problems = append(problems, fmt.Sprintf("%s layer: genus %q is reserved", layer.Type, sp.Genus))
			}
			if _, dup := genera[sp.Genus]; dup {
				problems = append(problems, fmt.Sprintf("%s layer: duplicate genus %s", layer.Type, sp.Genus))
			}
			genera[sp.Genus] = struct{}{}
		}
		if math.Abs(total-100) > 1 {
			problems = append(problems, fmt.Sprintf("%s layer: species percentages sum to %.1f", layer.Type, total))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w %s: %s", ErrInvalidPolygon, p.ID, strings.Join(problems, "; "))
	}
	return nil
}

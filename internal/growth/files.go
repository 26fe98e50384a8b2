package growth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"vdypcore/internal/siteindex"
	"vdypcore/internal/utilization"
	"vdypcore/pkg/domain"
)

// Growth file names shared by the runner and the growth routines.
const (
	InventoryFile           = "in_01.dat"
	PolygonStateFile        = "vp_01.dat"
	SpeciesStateFile        = "vs_01.dat"
	UtilizationStateFile    = "vu_01.dat"
	AdjustedPolygonFile     = "vp_adj.dat"
	AdjustedSpeciesFile     = "vs_adj.dat"
	AdjustedUtilizationFile = "vu_adj.dat"
	ForwardYieldFile        = "yield_fwd.dat"
	BackYieldFile           = "yield_back.dat"
	CompatibilityFile       = "cv_override.dat"
)

// LayerGenus stands in for the genus on layer total lines.
const LayerGenus = domain.LayerTotalGenus

// unset is written for absent optional values.
const unset = "-9"

// Inventory is the content of an inventory input file: one polygon and at
// most one of its layers.
type Inventory struct {
	PolygonID        string
	FeatureID        int64
	BECZone          string
	ReferenceYear    int
	Standard         domain.InventoryStandard
	PercentStockable float64
	Layer            *domain.Layer
}

// WriteInventory writes the polygon header and one layer.
func WriteInventory(w io.Writer, p *domain.Polygon, layer domain.Layer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "P %s %d %s %d %s %s\n", fieldOr(p.ID), p.FeatureID, fieldOr(p.BECZone), p.ReferenceYear, fieldOr(string(p.Standard)), formatFloat(p.PercentStockable))
	fmt.Fprintf(bw, "L %s %s %s %s\n", layer.Type, formatFloat(layer.CrownClosure), formatOptional(layer.BasalArea), formatOptional(layer.TreesPerHectare))
	for _, sp := range layer.Species {
		curve := unset
		if sp.SiteCurve > 0 {
			curve = strconv.Itoa(sp.SiteCurve)
		}
		fmt.Fprintf(bw, "S %s %s %s %s %s %s %s\n", sp.Genus, formatFloat(sp.Percent), formatFloat(sp.SiteIndex), curve,
			formatFloat(sp.TotalAge), formatFloat(sp.Height), formatOptional(sp.YearsToBreastHeight))
	}
	return bw.Flush()
}

// ReadInventory parses an inventory file. Unset markers become absent values.
func ReadInventory(r io.Reader) (Inventory, error) {
	var inv Inventory
	sawPolygon := false
	err := scanFields(r, func(line int, f []string) error {
		p := fieldParser{line: line, fields: f}
		switch f[0] {
		case "P":
			p.want(7)
			inv.PolygonID = p.str(1)
			inv.FeatureID = int64(p.int(2))
			inv.BECZone = p.str(3)
			inv.ReferenceYear = p.int(4)
			inv.Standard = domain.InventoryStandard(p.str(5))
			inv.PercentStockable = p.float(6)
			sawPolygon = true
		case "L":
			p.want(5)
			inv.Layer = &domain.Layer{
				Type:            domain.ProjectionType(p.str(1)),
				CrownClosure:    p.float(2),
				BasalArea:       domain.OptionalValue(p.float(3)),
				TreesPerHectare: domain.OptionalValue(p.float(4)),
			}
		case "S":
			p.want(8)
			if inv.Layer == nil {
				return fmt.Errorf("line %d: species before layer", line)
			}
			sp := domain.Species{
				Genus:               p.str(1),
				Percent:             p.float(2),
				SiteIndex:           p.float(3),
				TotalAge:            p.float(5),
				Height:              p.float(6),
				YearsToBreastHeight: domain.OptionalValue(p.float(7)),
			}
			if curve := p.int(4); curve > 0 {
				sp.SiteCurve = curve
			}
			inv.Layer.Species = append(inv.Layer.Species, sp)
		default:
			return fmt.Errorf("line %d: unknown record %q", line, f[0])
		}
		return p.err
	})
	if err != nil {
		return Inventory{}, fmt.Errorf("read inventory: %w", err)
	}
	if !sawPolygon {
		return Inventory{}, fmt.Errorf("read inventory: missing polygon record")
	}
	return inv, nil
}

// PolygonState is the polygon part of the initialized growth state.
type PolygonState struct {
	PolygonID     string
	Layer         domain.ProjectionType
	ReferenceYear int
	GrowthModel   domain.GrowthModel
	BECZone       string
}

// SpeciesState is one initialized species. Every value is resolved.
type SpeciesState struct {
	Genus               string
	Percent             float64
	SiteIndex           float64
	Curve               siteindex.CurveID
	TotalAge            float64
	Height              float64
	YearsToBreastHeight float64
}

// BreastHeightAge returns the breast-height age at the reference year.
func (s SpeciesState) BreastHeightAge() float64 {
	return s.TotalAge - s.YearsToBreastHeight
}

// UtilizationState holds observed quantities per species at the reference
// year, keyed by genus; the layer total uses LayerGenus.
type UtilizationState map[string]utilization.Quantities

// State is the full initialized growth state of one layer.
type State struct {
	Polygon     PolygonState
	Species     []SpeciesState
	Utilization UtilizationState
}

// WriteState writes the three state files.
func WriteState(s State, polygonPath, speciesPath, utilizationPath string) error {
	if err := writeFile(polygonPath, func(w *bufio.Writer) {
		p := s.Polygon
		fmt.Fprintf(w, "%s %s %d %s %s\n", fieldOr(p.PolygonID), p.Layer, p.ReferenceYear, p.GrowthModel, fieldOr(p.BECZone))
	}); err != nil {
		return err
	}
	if err := writeFile(speciesPath, func(w *bufio.Writer) {
		for _, sp := range s.Species {
			fmt.Fprintf(w, "%s %s %s %d %s %s %s\n", sp.Genus, formatFloat(sp.Percent), formatFloat(sp.SiteIndex), int(sp.Curve),
				formatFloat(sp.TotalAge), formatFloat(sp.Height), formatFloat(sp.YearsToBreastHeight))
		}
	}); err != nil {
		return err
	}
	return writeFile(utilizationPath, func(w *bufio.Writer) {
		for _, genus := range utilizationOrder(s) {
			q := s.Utilization[genus]
			for _, c := range utilization.AllClasses {
				fmt.Fprintf(w, "%s %d %s\n", genus, c.Index(), formatClassValues(q.At(c)))
			}
		}
	})
}

// ReadState reads the three state files.
func ReadState(polygonPath, speciesPath, utilizationPath string) (State, error) {
	var s State
	err := readFile(polygonPath, func(line int, f []string) error {
		p := fieldParser{line: line, fields: f}
		p.want(5)
		s.Polygon = PolygonState{
			PolygonID:     p.str(0),
			Layer:         domain.ProjectionType(p.str(1)),
			ReferenceYear: p.int(2),
			GrowthModel:   domain.GrowthModel(p.str(3)),
			BECZone:       p.str(4),
		}
		return p.err
	})
	if err != nil {
		return State{}, err
	}
	err = readFile(speciesPath, func(line int, f []string) error {
		p := fieldParser{line: line, fields: f}
		p.want(7)
		s.Species = append(s.Species, SpeciesState{
			Genus:               p.str(0),
			Percent:             p.float(1),
			SiteIndex:           p.float(2),
			Curve:               siteindex.CurveID(p.int(3)),
			TotalAge:            p.float(4),
			Height:              p.float(5),
			YearsToBreastHeight: p.float(6),
		})
		return p.err
	})
	if err != nil {
		return State{}, err
	}
	s.Utilization = make(UtilizationState)
	err = readFile(utilizationPath, func(line int, f []string) error {
		p := fieldParser{line: line, fields: f}
		p.want(2 + classValueFields)
		class, err := utilization.ClassFromIndex(p.int(1))
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		q := s.Utilization[p.str(0)]
		q.SetAt(class, p.classValues(2))
		s.Utilization[p.str(0)] = q
		return p.err
	})
	if err != nil {
		return State{}, err
	}
	return s, nil
}

func utilizationOrder(s State) []string {
	order := make([]string, 0, len(s.Species)+1)
	for _, sp := range s.Species {
		if _, ok := s.Utilization[sp.Genus]; ok {
			order = append(order, sp.Genus)
		}
	}
	if _, ok := s.Utilization[LayerGenus]; ok {
		order = append(order, LayerGenus)
	}
	return order
}

// YieldRecord is one line of a yield file: the values of one utilization
// class of one species (or the layer) in one year.
type YieldRecord struct {
	Year           int
	Genus          string
	Class          utilization.Class
	Age            float64
	DominantHeight float64
	Values         utilization.ClassValues
}

// YieldWriter appends yield records.
type YieldWriter struct {
	w *bufio.Writer
}

// NewYieldWriter wraps w.
func NewYieldWriter(w io.Writer) *YieldWriter {
	return &YieldWriter{w: bufio.NewWriter(w)}
}

// Write appends one record.
func (y *YieldWriter) Write(r YieldRecord) error {
	_, err := fmt.Fprintf(y.w, "%d %s %d %s %s %s\n", r.Year, r.Genus, r.Class.Index(), formatFloat(r.Age), formatFloat(r.DominantHeight), formatClassValues(r.Values))
	return err
}

// Flush writes buffered records.
func (y *YieldWriter) Flush() error {
	return y.w.Flush()
}

// ReadYield parses a yield file.
func ReadYield(r io.Reader) ([]YieldRecord, error) {
	var out []YieldRecord
	err := scanFields(r, func(line int, f []string) error {
		p := fieldParser{line: line, fields: f}
		p.want(5 + classValueFields)
		class, err := utilization.ClassFromIndex(p.int(2))
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, YieldRecord{
			Year:           p.int(0),
			Genus:          p.str(1),
			Class:          class,
			Age:            p.float(3),
			DominantHeight: p.float(4),
			Values:         p.classValues(5),
		})
		return p.err
	})
	if err != nil {
		return nil, fmt.Errorf("read yield: %w", err)
	}
	return out, nil
}

// ReadYieldFile parses the yield file at path.
func ReadYieldFile(path string) ([]YieldRecord, error) {
	f, err := os.Open(path) // #nosec G304 -- path is built by the runner inside its execution folder
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadYield(f)
}

const classValueFields = 4 + utilization.VolumeVariantCount

func formatClassValues(v utilization.ClassValues) string {
	parts := []string{
		formatFloat(v.BasalArea),
		formatFloat(v.TreesPerHectare),
		formatFloat(v.QuadMeanDiameter),
		formatFloat(v.LoreyHeight),
	}
	for _, vol := range v.Volume {
		parts = append(parts, formatFloat(vol))
	}
	return strings.Join(parts, " ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return unset
	}
	return formatFloat(*v)
}

// fieldOr keeps whitespace out of a field and marks empty values.
func fieldOr(s string) string {
	s = strings.Join(strings.Fields(s), "_")
	if s == "" {
		return "-"
	}
	return s
}

type fieldParser struct {
	line   int
	fields []string
	err    error
}

func (p *fieldParser) want(n int) {
	if p.err == nil && len(p.fields) < n {
		p.err = fmt.Errorf("line %d: expected %d fields, got %d", p.line, n, len(p.fields))
	}
}

func (p *fieldParser) str(i int) string {
	if p.err != nil || i >= len(p.fields) {
		return ""
	}
	if p.fields[i] == "-" {
		return ""
	}
	return p.fields[i]
}

func (p *fieldParser) int(i int) int {
	if p.err != nil || i >= len(p.fields) {
		return 0
	}
	n, err := strconv.Atoi(p.fields[i])
	if err != nil {
		p.err = fmt.Errorf("line %d field %d: %w", p.line, i+1, err)
	}
	return n
}

func (p *fieldParser) float(i int) float64 {
	if p.err != nil || i >= len(p.fields) {
		return 0
	}
	v, err := strconv.ParseFloat(p.fields[i], 64)
	if err != nil {
		p.err = fmt.Errorf("line %d field %d: %w", p.line, i+1, err)
	}
	return v
}

func (p *fieldParser) classValues(from int) utilization.ClassValues {
	v := utilization.ClassValues{
		BasalArea:        p.float(from),
		TreesPerHectare:  p.float(from + 1),
		QuadMeanDiameter: p.float(from + 2),
		LoreyHeight:      p.float(from + 3),
	}
	for i := range v.Volume {
		v.Volume[i] = p.float(from + 4 + i)
	}
	return v
}

func scanFields(r io.Reader, fn func(line int, fields []string) error) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if err := fn(line, fields); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func readFile(path string, fn func(line int, fields []string) error) error {
	f, err := os.Open(path) // #nosec G304 -- growth files live in the execution folder
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := scanFields(f, fn); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func writeFile(path string, fn func(w *bufio.Writer)) error {
	f, err := os.Create(path) // #nosec G304 -- growth files live in the execution folder
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fn(w)
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

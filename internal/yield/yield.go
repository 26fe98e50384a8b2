// Package yield turns the yield files of a projected layer into a per-year
// table.
package yield

import (
	"fmt"
	"path/filepath"
	"sort"

	"vdypcore/internal/growth"
	"vdypcore/internal/utilization"
	"vdypcore/pkg/domain"
)

// Ledger is the part of a polygon's projection state the builder reads.
type Ledger interface {
	DidRunProjectionStageFor(stage domain.ProjectionStage, t domain.ProjectionType) bool
	NotProjectedReason(t domain.ProjectionType) string
}

// Years is the requested year range and the polygon reference year.
type Years struct {
	Start     int
	End       int
	Reference int
}

// Volumes holds the five volume variants in m3/ha.
type Volumes struct {
	WholeStem             float64 `json:"whole_stem"`
	CloseUtilization      float64 `json:"close_utilization"`
	NetDecay              float64 `json:"net_decay"`
	NetDecayWaste         float64 `json:"net_decay_waste"`
	NetDecayWasteBreakage float64 `json:"net_decay_waste_breakage"`
}

func volumesOf(v [utilization.VolumeVariantCount]float64) Volumes {
	return Volumes{
		WholeStem:             v[utilization.WholeStem],
		CloseUtilization:      v[utilization.CloseUtilization],
		NetDecay:              v[utilization.CloseUtilizationNetDecay],
		NetDecayWaste:         v[utilization.CloseUtilizationNetDecayWaste],
		NetDecayWasteBreakage: v[utilization.CloseUtilizationNetDecayWasteBreakage],
	}
}

// Values are the All-class quantities of a species or of the layer.
type Values struct {
	BasalArea        float64 `json:"basal_area"`
	TreesPerHectare  float64 `json:"trees_per_hectare"`
	QuadMeanDiameter float64 `json:"quad_mean_diameter"`
	LoreyHeight      float64 `json:"lorey_height"`
	Volumes          Volumes `json:"volumes"`
}

func valuesOf(v utilization.ClassValues) Values {
	return Values{
		BasalArea:        v.BasalArea,
		TreesPerHectare:  v.TreesPerHectare,
		QuadMeanDiameter: v.QuadMeanDiameter,
		LoreyHeight:      v.LoreyHeight,
		Volumes:          volumesOf(v.Volume),
	}
}

// SpeciesRow is the detail of one species in one year.
type SpeciesRow struct {
	Genus          string  `json:"genus"`
	Age            float64 `json:"age"`
	DominantHeight float64 `json:"dominant_height"`
	Values
}

// Row is the yield of a layer in one year. Age and DominantHeight belong to
// the leading species.
type Row struct {
	Year           int                    `json:"year"`
	Stage          domain.ProjectionStage `json:"stage"`
	Age            float64                `json:"age"`
	DominantHeight float64                `json:"dominant_height"`
	Values
	Species []SpeciesRow `json:"species"`
}

// Table is the yield of one projection type.
type Table struct {
	Type     domain.ProjectionType `json:"type"`
	Rows     []Row                 `json:"rows"`
	Messages []string              `json:"messages,omitempty"`
}

// FirstYear returns the first year with a row from stage.
func (t Table) FirstYear(stage domain.ProjectionStage) (int, bool) {
	for _, r := range t.Rows {
		if r.Stage == stage {
			return r.Year, true
		}
	}
	return 0, false
}

// Build reads the Back and Forward yield files of t found in folder and
// returns one row per year of the range. Back rows are used for years
// before the reference year. A type that was not projected yields an empty
// table with the reason as message.
func Build(ledger Ledger, t domain.ProjectionType, folder string, years Years) (Table, error) {
	table := Table{Type: t}
	forward := ledger.DidRunProjectionStageFor(domain.StageForward, t)
	back := ledger.DidRunProjectionStageFor(domain.StageBack, t)
	if !forward && !back {
		reason := ledger.NotProjectedReason(t)
		if reason == "" {
			reason = "no growth stage ran"
		}
		table.Messages = append(table.Messages, fmt.Sprintf("%s layer not projected: %s", t, reason))
		return table, nil
	}

	rows := make(map[int]*Row)
	if back {
		if err := collect(rows, filepath.Join(folder, growth.BackYieldFile), domain.StageBack, years, func(year int) bool {
			return year < years.Reference
		}); err != nil {
			return table, err
		}
	}
	if forward {
		if err := collect(rows, filepath.Join(folder, growth.ForwardYieldFile), domain.StageForward, years, func(year int) bool {
			r, taken := rows[year]
			return !taken || r.Stage == domain.StageForward
		}); err != nil {
			return table, err
		}
	}

	yearList := make([]int, 0, len(rows))
	for year := range rows {
		yearList = append(yearList, year)
	}
	sort.Ints(yearList)
	for _, year := range yearList {
		table.Rows = append(table.Rows, *rows[year])
	}
	if missing := missingYears(rows, years); missing != "" {
		table.Messages = append(table.Messages, fmt.Sprintf("%s layer has no yield for %s", t, missing))
	}
	return table, nil
}

func collect(rows map[int]*Row, path string, stage domain.ProjectionStage, years Years, accept func(year int) bool) error {
	records, err := growth.ReadYieldFile(path)
	if err != nil {
		return fmt.Errorf("read %s yield: %w", stage, err)
	}
	for _, rec := range records {
		if rec.Class != utilization.ClassAll || rec.Year < years.Start || rec.Year > years.End || !accept(rec.Year) {
			continue
		}
		row, ok := rows[rec.Year]
		if !ok {
			row = &Row{Year: rec.Year, Stage: stage}
			rows[rec.Year] = row
		}
		if rec.Genus == growth.LayerGenus {
			row.Age = rec.Age
			row.DominantHeight = rec.DominantHeight
			row.Values = valuesOf(rec.Values)
			continue
		}
		row.Species = append(row.Species, SpeciesRow{
			Genus:          rec.Genus,
			Age:            rec.Age,
			DominantHeight: rec.DominantHeight,
			Values:         valuesOf(rec.Values),
		})
	}
	return nil
}

// missingYears describes the years of the range without a row as a list of
// spans, or returns "".
func missingYears(rows map[int]*Row, years Years) string {
	var spans []string
	for y := years.Start; y <= years.End; y++ {
		if _, ok := rows[y]; ok {
			continue
		}
		from := y
		for y+1 <= years.End {
			if _, ok := rows[y+1]; ok {
				break
			}
			y++
		}
		if from == y {
			spans = append(spans, fmt.Sprint(from))
		} else {
			spans = append(spans, fmt.Sprintf("%d-%d", from, y))
		}
	}
	if len(spans) == 0 {
		return ""
	}
	return fmt.Sprintf("years %v", spans)
}

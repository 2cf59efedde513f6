package reshape

import (
	"sort"

	"github.com/medlin-app/medlin/internal/cube"
)

// Unit tells the presentation layer how to format an indicator.
type Unit string

// Indicator units.
const (
	UnitEuros   Unit = "euros"
	UnitPercent Unit = "percent"
	UnitRatio   Unit = "ratio"
)

// incomeIndicators is the FILO disposable-income detail, in display order.
var incomeIndicators = []struct {
	code  string
	label string
	unit  Unit
}{
	{"D1", "1er décile du revenu disponible", UnitEuros},
	{"D9", "9e décile du revenu disponible", UnitEuros},
	{"RD", "Rapport interdécile D9/D1", UnitRatio},
	{"TP60", "Taux de pauvreté au seuil de 60 %", UnitPercent},
	{"PACT", "Part des revenus d'activité", UnitPercent},
	{"PTSA", "dont salaires et traitements", UnitPercent},
	{"PCHO", "dont indemnités de chômage", UnitPercent},
	{"PBEN", "dont revenus des activités non salariées", UnitPercent},
	{"PPEN", "Part des pensions, retraites et rentes", UnitPercent},
	{"PPAT", "Part des revenus du patrimoine", UnitPercent},
	{"PPSOC", "Part de l'ensemble des prestations sociales", UnitPercent},
	{"PPFAM", "dont prestations familiales", UnitPercent},
	{"PPMINI", "dont minima sociaux", UnitPercent},
	{"PPLOGT", "dont prestations logement", UnitPercent},
	{"PIMPOT", "Part des impôts", UnitPercent},
}

// Indicator is one income figure. Value is never rounded.
type Indicator struct {
	Code      string  `json:"code"`
	Label     string  `json:"label"`
	Unit      Unit    `json:"unit"`
	Value     float64 `json:"value"`
	Available bool    `json:"available"`
}

// IncomeView holds the income distribution indicators.
type IncomeView struct {
	Indicators []Indicator `json:"indicators"`
}

// Income reshapes a merged INDICS_FILO_DISP_DET cube. Across several units
// each indicator is the mean of the units that reported it; a missing
// indicator is listed with Available false and a zero value.
func Income(m *cube.Merged) (*IncomeView, error) {
	if m.Empty() {
		return nil, ErrNoData
	}

	view := &IncomeView{}
	for _, ind := range incomeIndicators {
		out := Indicator{Code: ind.code, Label: ind.label, Unit: ind.unit}
		if c, ok := measureCell(m, ind.code); ok && c.Count > 0 {
			out.Value = c.Mean()
			out.Available = true
		}
		view.Indicators = append(view.Indicators, out)
	}
	return view, nil
}

// measureCell finds the untagged cell of a measure, or failing that the first
// cell carrying it.
func measureCell(m *cube.Merged, measure string) (cube.MergedCell, bool) {
	if c, ok := m.Cell(measure); ok {
		return c, true
	}
	for _, c := range m.Cells {
		if c.Measure == measure {
			return c, true
		}
	}
	return cube.MergedCell{}, false
}

// Measures of the INDICS_FILO_DISP cube.
const (
	MeasureHouseholds = "NBMEN"
	MeasurePersons    = "NBPERS"
	MeasureMedian     = "MEDIANE"
)

// IncomeSummary is the household count and median disposable income.
type IncomeSummary struct {
	Households int64   `json:"households"`
	Persons    int64   `json:"persons"`
	Median     float64 `json:"median"`
	// Units is how many geographic units reported a median.
	Units int `json:"units"`
}

// Summarize computes the income summary from per-unit INDICS_FILO_DISP
// cubes. Counts are summed. Units that withheld their median are left out. A median cannot be merged, so the result is the
// median of the per-unit medians. It works on raw cubes rather than a merge
// for that reason.
func Summarize(cubes []*cube.StatCube) (*IncomeSummary, error) {
	var (
		households, persons float64
		medians             []float64
		cells               int
	)
	for _, c := range cubes {
		if c == nil {
			continue
		}
		for _, cell := range c.Cells {
			cells++
			switch cell.Measure.Code {
			case MeasureHouseholds:
				households += cell.Number()
			case MeasurePersons:
				persons += cell.Number()
			case MeasureMedian:
				if v, ok := cell.Reported(); ok {
					medians = append(medians, v)
				}
			}
		}
	}
	if cells == 0 {
		return nil, ErrNoData
	}
	return &IncomeSummary{
		Households: roundCount(households),
		Persons:    roundCount(persons),
		Median:     median(medians),
		Units:      len(medians),
	}, nil
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	half := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[half]
	}
	return (sorted[half-1] + sorted[half]) / 2
}

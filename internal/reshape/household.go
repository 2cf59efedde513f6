package reshape

import (
	"github.com/medlin-app/medlin/internal/cube"
)

const csVariable = "CS1_8"

// Measures of the CS1_8 cube.
const (
	MeasurePopulation = "POP"
	MeasureDwellings  = "NBLOG"
)

// HouseholdRow is one socio-professional category of the household
// reference person.
type HouseholdRow struct {
	Code              string `json:"code"`
	Category          string `json:"category"`
	NombreDeLogements int64  `json:"nombreDeLogements"`
	Population        int64  `json:"population"`
}

// HouseholdView lists households by socio-professional category.
type HouseholdView struct {
	Rows []HouseholdRow `json:"rows"`
}

// Households reshapes a merged CS1_8 cube. Rows follow the order categories
// appear in the data, except the total which always comes first.
func Households(m *cube.Merged) (*HouseholdView, error) {
	if m.Empty() {
		return nil, ErrNoData
	}

	labels := LabelsFor(m, csVariable)
	view := &HouseholdView{}
	var total *HouseholdRow
	for _, code := range observed(m, csVariable) {
		row := HouseholdRow{
			Code:              code,
			Category:          labels.Resolve(code),
			NombreDeLogements: roundCount(sumWhere(m, MeasureDwellings, cube.T(csVariable, code))),
			Population:        roundCount(sumWhere(m, MeasurePopulation, cube.T(csVariable, code))),
		}
		if IsTotal(row.Code, row.Category) && total == nil {
			total = &row
			continue
		}
		view.Rows = append(view.Rows, row)
	}
	if total != nil {
		view.Rows = append([]HouseholdRow{*total}, view.Rows...)
	}
	return view, nil
}

// ChartRows returns the rows without the grand total.
func (v *HouseholdView) ChartRows() []HouseholdRow {
	return withoutTotals(v.Rows, func(r HouseholdRow) bool { return IsTotal(r.Code, r.Category) })
}

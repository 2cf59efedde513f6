package reshape

import (
	"github.com/medlin-app/medlin/internal/cube"
)

const diplomaVariable = "DIPL_19"

// DiplomaView lists the highest diploma of the population out of school, by sex.
type DiplomaView struct {
	Rows []SexRow `json:"rows"`
}

// Diploma reshapes a merged SEXE-DIPL_19 cube. Rows follow the modality
// order of the DIPL_19 variable, then any code seen only in the cells.
func Diploma(m *cube.Merged) (*DiplomaView, error) {
	if m.Empty() {
		return nil, ErrNoData
	}

	labels := LabelsFor(m, diplomaVariable)
	var order []string
	if v, ok := m.Variable(diplomaVariable); ok {
		for _, mod := range v.Modalities {
			order = append(order, mod.Code)
		}
	}
	for _, code := range observed(m, diplomaVariable) {
		if !contains(order, code) {
			order = append(order, code)
		}
	}

	view := &DiplomaView{}
	for _, code := range order {
		view.Rows = append(view.Rows, sexRow(m, "", diplomaVariable, code, labels.Resolve(code)))
	}
	return view, nil
}

// ChartRows returns the rows without the grand total.
func (v *DiplomaView) ChartRows() []SexRow {
	return withoutTotals(v.Rows, sexRowTotal)
}

package reshape

import (
	"github.com/medlin-app/medlin/internal/cube"
)

// Column is one heading of a fixed-order matrix.
type Column struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// MatrixRow is one line of a fixed-order matrix; Values align with the
// view's Columns.
type MatrixRow struct {
	Code     string  `json:"code"`
	Category string  `json:"category"`
	Values   []int64 `json:"values"`
}

// matrix fills rows x cols from the cells of measure, in the given fixed
// orders. Combinations absent from the data read as zero.
func matrix(m *cube.Merged, measure, rowVar string, rows []Column, colVar string, cols []Column) []MatrixRow {
	out := make([]MatrixRow, 0, len(rows))
	for _, r := range rows {
		mr := MatrixRow{Code: r.Code, Category: r.Label, Values: make([]int64, len(cols))}
		for i, c := range cols {
			mr.Values[i] = roundCount(sumWhere(m, measure, cube.T(rowVar, r.Code), cube.T(colVar, c.Code)))
		}
		out = append(out, mr)
	}
	return out
}

// columns resolves a fixed code order against the cube's labels, then the
// built-in defaults, then the code itself.
func columns(m *cube.Merged, variable string, order []string, defaults map[string]string) []Column {
	labels := LabelsFor(m, variable).withDefaults(defaults)
	out := make([]Column, len(order))
	for i, code := range order {
		out[i] = Column{Code: code, Label: labels.Resolve(code)}
	}
	return out
}

func matrixRowTotal(r MatrixRow) bool { return IsTotal(r.Code, r.Category) }

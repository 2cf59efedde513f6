package reshape

import (
	"github.com/medlin-app/medlin/internal/cube"
)

const (
	familyTypeVariable = "TF4"
	childrenVariable   = "NBENFFR"
)

var (
	familyTypeOrder = []string{"1", "2", "3", "4"}
	childrenOrder   = []string{"0", "1", "2", "3", "4"}

	familyTypeLabels = map[string]string{
		"1": "Couple sans enfant",
		"2": "Couple avec enfant(s)",
		"3": "Famille monoparentale (homme)",
		"4": "Famille monoparentale (femme)",
	}
	childrenLabels = map[string]string{
		"0": "0 enfant",
		"1": "1 enfant",
		"2": "2 enfants",
		"3": "3 enfants",
		"4": "4 enfants ou plus",
	}
)

// FamilyRow is one family type, counted per number of children under 25.
type FamilyRow struct {
	MatrixRow
	Total int64 `json:"total"`
}

// FamilyView crosses family type with number of children.
type FamilyView struct {
	Columns []Column    `json:"columns"`
	Rows    []FamilyRow `json:"rows"`
}

// Families reshapes a merged NBENFFR-TF4 cube. The cube carries one measure,
// so cells are matched on tags alone.
func Families(m *cube.Merged) (*FamilyView, error) {
	if m.Empty() {
		return nil, ErrNoData
	}

	rows := columns(m, familyTypeVariable, familyTypeOrder, familyTypeLabels)
	cols := columns(m, childrenVariable, childrenOrder, childrenLabels)

	view := &FamilyView{Columns: cols}
	for _, r := range matrix(m, "", familyTypeVariable, rows, childrenVariable, cols) {
		var total int64
		for _, v := range r.Values {
			total += v
		}
		view.Rows = append(view.Rows, FamilyRow{MatrixRow: r, Total: total})
	}
	return view, nil
}

package reshape

import (
	"github.com/medlin-app/medlin/internal/cube"
)

const (
	dwellingTypeVariable     = "TYPLR"
	dwellingCategoryVariable = "CATL"

	// MeasureRooms counts rooms.
	MeasureRooms = "NBPIECES"
)

var (
	dwellingTypeOrder     = []string{TotalCode, "1", "2", "3"}
	dwellingCategoryOrder = []string{TotalCode, "1", "2", "3", "4"}

	dwellingTypeLabels = map[string]string{
		TotalCode: TotalLabel,
		"1":       "Maisons",
		"2":       "Appartements",
		"3":       "Autres",
	}
	dwellingCategoryLabels = map[string]string{
		TotalCode: TotalLabel,
		"1":       "Résidences principales",
		"2":       "Logements occasionnels",
		"3":       "Résidences secondaires",
		"4":       "Logements vacants",
	}
)

// HousingView crosses dwelling type (rows) with dwelling category (columns)
// for two measures.
type HousingView struct {
	Columns   []Column    `json:"columns"`
	Rooms     []MatrixRow `json:"rooms"`
	Dwellings []MatrixRow `json:"dwellings"`
}

// Housing reshapes a merged TYPLR-CATL cube.
func Housing(m *cube.Merged) (*HousingView, error) {
	if m.Empty() {
		return nil, ErrNoData
	}

	rows := columns(m, dwellingTypeVariable, dwellingTypeOrder, dwellingTypeLabels)
	cols := columns(m, dwellingCategoryVariable, dwellingCategoryOrder, dwellingCategoryLabels)

	return &HousingView{
		Columns:   cols,
		Rooms:     matrix(m, MeasureRooms, dwellingTypeVariable, rows, dwellingCategoryVariable, cols),
		Dwellings: matrix(m, MeasureDwellings, dwellingTypeVariable, rows, dwellingCategoryVariable, cols),
	}, nil
}

// ChartRows returns the dwelling counts without the total row.
func (v *HousingView) ChartRows() []MatrixRow {
	return withoutTotals(v.Dwellings, matrixRowTotal)
}

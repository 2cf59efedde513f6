package reshape

import (
	"github.com/medlin-app/medlin/internal/cube"
)

const ageVariable = "AGE15_15_90"

// PopulationView is the SEXE x AGE15_15_90 breakdown.
type PopulationView struct {
	// BySex holds the men and women totals, for the pie chart.
	BySex []SexTotal `json:"bySex"`
	// ByAge holds one row per age bracket observed, the total last.
	ByAge []SexRow `json:"byAge"`
}

// SexTotal is the population of one sex across all ages.
type SexTotal struct {
	Code       string `json:"code"`
	Label      string `json:"label"`
	Population int64  `json:"population"`
}

// Population reshapes a merged SEXE-AGE15_15_90 cube.
func Population(m *cube.Merged) (*PopulationView, error) {
	if m.Empty() {
		return nil, ErrNoData
	}

	ages := LabelsFor(m, ageVariable)
	sexes := LabelsFor(m, sexVariable).withDefaults(map[string]string{
		sexMale:   "Hommes",
		sexFemale: "Femmes",
	})

	view := &PopulationView{}
	codes := totalLast(observed(m, ageVariable))
	for _, code := range codes {
		view.ByAge = append(view.ByAge, sexRow(m, "", ageVariable, code, ages.Resolve(code)))
	}

	for _, sex := range []string{sexMale, sexFemale} {
		var pop float64
		if contains(codes, TotalCode) {
			pop = sumWhere(m, "", cube.T(ageVariable, TotalCode), cube.T(sexVariable, sex))
		} else {
			pop = sumWhere(m, "", cube.T(sexVariable, sex))
		}
		view.BySex = append(view.BySex, SexTotal{Code: sex, Label: sexes.Resolve(sex), Population: roundCount(pop)})
	}

	return view, nil
}

// ChartRows returns the age rows without the grand total.
func (v *PopulationView) ChartRows() []SexRow {
	return withoutTotals(v.ByAge, sexRowTotal)
}

func contains(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

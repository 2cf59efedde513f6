// Package reshape turns merged statistical cubes into labelled rows for
// tables and charts, one view per topic.
package reshape

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/medlin-app/medlin/internal/cube"
)

// ErrNoData means the selection produced nothing to show: every unit failed
// or the merge yielded no cells. It is distinct from a view with zero rows.
var ErrNoData = eris.New("no data for this selection")

// TotalCode is the modality code of the grand-total category.
const TotalCode = "ENS"

// TotalLabel is the label of the grand-total category.
const TotalLabel = "Ensemble"

// IsTotal reports whether a category is the grand total. Totals stay in
// tables and are dropped from chart series, where they would double-count.
func IsTotal(code, label string) bool {
	return code == TotalCode || label == TotalLabel
}

// Labels returns modality code to label for a variable. Resolve falls back to
// the code itself for anything missing.
type Labels map[string]string

// LabelsFor builds the label lookup of one variable of the merged cube.
func LabelsFor(m *cube.Merged, variable string) Labels {
	out := Labels{}
	v, ok := m.Variable(variable)
	if !ok {
		return out
	}
	for _, mod := range v.Modalities {
		if mod.Label != "" {
			out[mod.Code] = mod.Label
		}
	}
	return out
}

// Resolve returns the label of code, or code when unknown.
func (l Labels) Resolve(code string) string {
	if label, ok := l[code]; ok {
		return label
	}
	return code
}

// withDefaults fills gaps in l from fallback.
func (l Labels) withDefaults(fallback map[string]string) Labels {
	for code, label := range fallback {
		if _, ok := l[code]; !ok {
			l[code] = label
		}
	}
	return l
}

// roundCount rounds a count-like measure to the nearest integer.
func roundCount(v float64) int64 {
	return int64(math.Round(v))
}

// tagCode returns the modality code a cell carries for variable.
func tagCode(tags []cube.Tag, variable string) (string, bool) {
	for _, t := range tags {
		if t.Variable == variable {
			return t.Code, true
		}
	}
	return "", false
}

// observed lists the codes of variable found in the cells, in first-seen order.
func observed(m *cube.Merged, variable string) []string {
	seen := map[string]struct{}{}
	var codes []string
	for _, c := range m.Cells {
		code, ok := tagCode(c.Tags, variable)
		if !ok {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// sumWhere adds up every cell of the given measure whose tags include all of
// want. An empty measure matches any measure.
func sumWhere(m *cube.Merged, measure string, want ...cube.Tag) float64 {
	var total float64
	for _, c := range m.Cells {
		if measure != "" && c.Measure != measure {
			continue
		}
		if hasTags(c.Tags, want) {
			total += c.Value
		}
	}
	return total
}

func hasTags(tags, want []cube.Tag) bool {
	for _, w := range want {
		code, ok := tagCode(tags, w.Variable)
		if !ok || code != w.Code {
			return false
		}
	}
	return true
}

// totalLast sorts codes ascending with the grand total at the end.
func totalLast(codes []string) []string {
	out := append([]string(nil), codes...)
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i] == TotalCode) != (out[j] == TotalCode) {
			return out[j] == TotalCode
		}
		return out[i] < out[j]
	})
	return out
}

// SexRow is a category broken down by sex.
type SexRow struct {
	Code     string `json:"code"`
	Category string `json:"category"`
	Ensemble int64  `json:"ensemble"`
	Hommes   int64  `json:"hommes"`
	Femmes   int64  `json:"femmes"`
}

func withoutTotals[R any](rows []R, total func(R) bool) []R {
	out := make([]R, 0, len(rows))
	for _, r := range rows {
		if !total(r) {
			out = append(out, r)
		}
	}
	return out
}

func sexRowTotal(r SexRow) bool { return IsTotal(r.Code, r.Category) }

// Sex modality codes.
const (
	sexVariable = "SEXE"
	sexMale     = "1"
	sexFemale   = "2"
)

// sexRow computes one category's breakdown. The overall figure comes from
// the SEXE=ENS cell when the cube has one, otherwise from men plus women.
func sexRow(m *cube.Merged, measure, variable, code, label string) SexRow {
	hommes := sumWhere(m, measure, cube.T(variable, code), cube.T(sexVariable, sexMale))
	femmes := sumWhere(m, measure, cube.T(variable, code), cube.T(sexVariable, sexFemale))
	ensemble := hommes + femmes
	if hasSexTotal(m) {
		ensemble = sumWhere(m, measure, cube.T(variable, code), cube.T(sexVariable, TotalCode))
	}
	return SexRow{
		Code:     code,
		Category: label,
		Ensemble: roundCount(ensemble),
		Hommes:   roundCount(hommes),
		Femmes:   roundCount(femmes),
	}
}

func hasSexTotal(m *cube.Merged) bool {
	for _, c := range m.Cells {
		if code, ok := tagCode(c.Tags, sexVariable); ok && code == TotalCode {
			return true
		}
	}
	return false
}

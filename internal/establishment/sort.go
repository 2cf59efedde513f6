package establishment

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortByName orders records by display name using French collation, so
// accents and case sort the way a French reader expects. Ties keep their
// input order.
func SortByName(records []Record) {
	c := collate.New(language.French)
	sort.SliceStable(records, func(i, j int) bool {
		return c.CompareString(records[i].Denomination, records[j].Denomination) < 0
	})
}

// Filter keeps the records matching every column filter. A filter matches
// when the column contains it, ignoring case. Empty filters match anything.
// Unknown columns match nothing.
func Filter(records []Record, filters map[string]string) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if matches(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r Record, filters map[string]string) bool {
	for column, want := range filters {
		if want == "" {
			continue
		}
		value, ok := r.Column(column)
		if !ok || !strings.Contains(strings.ToLower(value), strings.ToLower(want)) {
			return false
		}
	}
	return true
}

// Columns lists the exported table columns in display order.
var Columns = []string{
	"siret",
	"denomination",
	"adresse",
	"commune",
	"trancheEffectifsUniteLegale",
	"tranchEffectifEtablissement",
	"dateCreationUniteLegale",
	"dateCreationEtablissement",
	"categorieEntreprise",
	"categoriesJuridiquesUniteLegale",
	"activitePrincipale",
}

// Column returns a field by its JSON name.
func (r Record) Column(name string) (string, bool) {
	switch name {
	case "siret":
		return r.Siret, true
	case "denomination":
		return r.Denomination, true
	case "adresse":
		return r.Adresse, true
	case "commune":
		return r.Commune, true
	case "trancheEffectifsUniteLegale":
		return r.TrancheEffectifsUniteLegale, true
	case "tranchEffectifEtablissement":
		return r.TrancheEffectifEtablissement, true
	case "dateCreationUniteLegale":
		return r.DateCreationUniteLegale, true
	case "dateCreationEtablissement":
		return r.DateCreationEtablissement, true
	case "categorieEntreprise":
		return r.CategorieEntreprise, true
	case "categoriesJuridiquesUniteLegale":
		return r.CategorieJuridiqueUniteLegale, true
	case "activitePrincipale":
		return r.ActivitePrincipale, true
	default:
		return "", false
	}
}

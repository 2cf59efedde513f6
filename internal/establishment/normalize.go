// Package establishment turns SIRENE establishment hits into display records
// for the business listing, its export and its map.
package establishment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/medlin-app/medlin/internal/mapping"
)

// Record is one establishment ready for display. Coords is nil when the
// position is unknown; such records stay in tables and are left off the map.
type Record struct {
	Siret                         string          `json:"siret"`
	Denomination                  string          `json:"denomination"`
	Adresse                       string          `json:"adresse"`
	Commune                       string          `json:"commune"`
	TrancheEffectifsUniteLegale   string          `json:"trancheEffectifsUniteLegale"`
	TrancheEffectifEtablissement  string          `json:"tranchEffectifEtablissement"`
	DateCreationUniteLegale       string          `json:"dateCreationUniteLegale"`
	DateCreationEtablissement     string          `json:"dateCreationEtablissement"`
	CategorieEntreprise           string          `json:"categorieEntreprise"`
	CategorieJuridiqueUniteLegale string          `json:"categoriesJuridiquesUniteLegale"`
	ActivitePrincipale            string          `json:"activitePrincipale"`
	Coords                        *mapping.LatLng `json:"coords"`
}

// Normalizer converts raw hits. The zero value is not usable; use New.
type Normalizer struct {
	projection *mapping.Projection
	labels     *Labels
}

// New returns a Normalizer projecting coordinates with proj and using the
// built-in label tables.
func New(proj *mapping.Projection) *Normalizer {
	return &Normalizer{projection: proj, labels: DefaultLabels()}
}

// WithLabels returns a copy using other label tables.
func (n *Normalizer) WithLabels(l *Labels) *Normalizer {
	cp := *n
	cp.labels = l
	return &cp
}

// Normalize builds the display record of one hit. It never fails: missing or
// undisclosed fields fall back to empty strings or default labels.
func (n *Normalizer) Normalize(raw Raw) Record {
	addr := raw.Adresse
	if addr == nil {
		addr = &Address{}
	}
	unit := raw.UniteLegale
	if unit == nil {
		unit = &Unit{}
	}
	var period Period
	if len(raw.Periodes) > 0 {
		period = raw.Periodes[0]
	}

	categorie := unit.CategorieEntreprise.Clean()
	if categorie == "" {
		categorie = CategoryUndefined
	}

	return Record{
		Siret:                         raw.Siret.Clean(),
		Denomination:                  DisplayName(unit, period),
		Adresse:                       joinNonEmpty(" ", addr.NumeroVoie.Clean(), addr.TypeVoie.Clean(), addr.LibelleVoie.Clean()),
		Commune:                       joinNonEmpty(", ", addr.CodeCommune.Clean(), addr.LibelleCommune.Clean()),
		TrancheEffectifsUniteLegale:   n.labels.WorkforceLabel(unit.TrancheEffectifs.Clean()),
		TrancheEffectifEtablissement:  n.labels.WorkforceLabel(raw.TrancheEffectifsEtablissement.Clean()),
		DateCreationUniteLegale:       FormatDate(unit.DateCreation.Clean()),
		DateCreationEtablissement:     FormatDate(raw.DateCreationEtablissement.Clean()),
		CategorieEntreprise:           categorie,
		CategorieJuridiqueUniteLegale: n.labels.LegalCategoryLabel(unit.CategorieJuridique.Clean()),
		ActivitePrincipale:            period.ActivitePrincipale.Clean(),
		Coords:                        n.projection.ToLatLngPtr(addr.LambertAbscisse.Float(), addr.LambertOrdonnee.Float()),
	}
}

// NormalizeAll normalizes every hit, keeping records without coordinates.
func (n *Normalizer) NormalizeAll(raws []Raw) []Record {
	out := make([]Record, 0, len(raws))
	for _, r := range raws {
		out = append(out, n.Normalize(r))
	}
	return out
}

// DisplayName resolves the name shown for an establishment. The first
// non-empty candidate wins: the current usual name, the legal name, the three
// alternate usual names, "Prénom NOM" for individuals, then the acronym.
func DisplayName(unit *Unit, period Period) string {
	if unit == nil {
		unit = &Unit{}
	}
	if usual := period.DenominationUsuelle.Clean(); usual != "" && usual != CategoryUndefined {
		return usual
	}
	for _, candidate := range []Text{
		unit.Denomination,
		unit.DenominationUsuelle1,
		unit.DenominationUsuelle2,
		unit.DenominationUsuelle3,
	} {
		if s := candidate.Clean(); s != "" {
			return s
		}
	}
	prenom, nom := unit.Prenom.Clean(), unit.Nom.Clean()
	if prenom != "" && nom != "" {
		return capitalize(prenom) + " " + strings.ToUpper(nom)
	}
	return unit.Sigle.Clean()
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// FormatDate turns YYYY-MM-DD into DD-MM-YYYY. Month and day are zero-padded.
// Anything else gives "".
func FormatDate(s string) string {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return ""
	}
	year, month, day := parts[0], parts[1], parts[2]
	if len(year) != 4 || !digits(year) || !validPart(month) || !validPart(day) {
		return ""
	}
	return pad2(day) + "-" + pad2(month) + "-" + year
}

func validPart(s string) bool {
	return len(s) >= 1 && len(s) <= 2 && digits(s)
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// Markers returns the map markers of the records that have coordinates.
func Markers(records []Record) []mapping.Marker {
	var out []mapping.Marker
	for _, r := range records {
		if r.Coords == nil {
			continue
		}
		out = append(out, mapping.Marker{
			ID:       r.Siret,
			Position: *r.Coords,
			Properties: map[string]any{
				"siret":              r.Siret,
				"denomination":       r.Denomination,
				"adresse":            r.Adresse,
				"commune":            r.Commune,
				"activitePrincipale": r.ActivitePrincipale,
			},
		})
	}
	return out
}

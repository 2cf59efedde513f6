// Package insee builds request URLs for the INSEE "données locales" API, the
// SIRENE establishment search and the geo.api.gouv.fr commune boundaries.
package insee

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/medlin-app/medlin/internal/config"
)

// Level is the geographic level of a statistics query.
type Level string

const (
	Commune     Level = "COM"
	Departement Level = "DEP"
)

// ParseLevel accepts COM/DEP and the French words used on the command line.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "com", "commune", "communes":
		return Commune, nil
	case "dep", "departement", "departements":
		return Departement, nil
	}
	return "", eris.Errorf("insee: unknown level %q", s)
}

var (
	communeCode     = regexp.MustCompile(`^(\d{5}|2[AB]\d{3})$`)
	departementCode = regexp.MustCompile(`^(\d{2,3}|2[AB])$`)
	nafCode         = regexp.MustCompile(`^\d{2}\.\d{2}[A-Z]$`)
)

// ValidateCodes checks every code against the level's format.
func ValidateCodes(level Level, codes []string) error {
	if len(codes) == 0 {
		return eris.New("insee: no geographic code given")
	}
	re := communeCode
	if level == Departement {
		re = departementCode
	}
	for _, c := range codes {
		if !re.MatchString(c) {
			return eris.Errorf("insee: invalid %s code %q", level, c)
		}
	}
	return nil
}

// ValidateNAF checks an activity code such as 56.10A.
func ValidateNAF(naf string) error {
	if !nafCode.MatchString(naf) {
		return eris.Errorf("insee: invalid NAF code %q", naf)
	}
	return nil
}

// Source selects which dataset vintage a topic uses.
type Source int

const (
	Census Source = iota
	Filosofi
)

// Dataset is one "données locales" cross-tabulation.
type Dataset struct {
	Topic     string
	Variables []string
	Source    Source
}

// Datasets lists the cross-tabulations served, keyed by topic.
var Datasets = map[string]Dataset{
	"population":     {Topic: "population", Variables: []string{"SEXE", "AGE15_15_90"}, Source: Census},
	"menages":        {Topic: "menages", Variables: []string{"CS1_8"}, Source: Census},
	"familles":       {Topic: "familles", Variables: []string{"NBENFFR", "TF4"}, Source: Census},
	"logement":       {Topic: "logement", Variables: []string{"TYPLR", "CATL"}, Source: Census},
	"revenus":        {Topic: "revenus", Variables: []string{"INDICS_FILO_DISP_DET"}, Source: Filosofi},
	"revenus-median": {Topic: "revenus-median", Variables: []string{"INDICS_FILO_DISP"}, Source: Filosofi},
	"diplomes":       {Topic: "diplomes", Variables: []string{"SEXE", "DIPL_19"}, Source: Census},
}

// Lookup returns the dataset of a topic.
func Lookup(topic string) (Dataset, error) {
	d, ok := Datasets[topic]
	if !ok {
		return Dataset{}, eris.Errorf("insee: unknown topic %q", topic)
	}
	return d, nil
}

// Endpoints holds the API base URLs and dataset vintages.
type Endpoints struct {
	Donnees       string
	Sirene        string
	Geo           string
	CensusVintage string
	IncomeVintage string
	PageSize      int
}

// FromConfig reads the endpoints from configuration.
func FromConfig(cfg *config.Config) Endpoints {
	return Endpoints{
		Donnees:       strings.TrimRight(cfg.Insee.BaseURL, "/"),
		Sirene:        strings.TrimRight(cfg.Sirene.BaseURL, "/"),
		Geo:           strings.TrimRight(cfg.GeoAPI.BaseURL, "/"),
		CensusVintage: cfg.Insee.CensusVintage,
		IncomeVintage: cfg.Insee.IncomeVintage,
		PageSize:      cfg.Sirene.PageSize,
	}
}

// DatasetTemplate returns the URL template of d at level, with {code} left
// for the fetcher to fill in, e.g.
// .../geo-SEXE-AGE15_15_90@GEO2023RP2020/COM-{code}.all.all
func (e Endpoints) DatasetTemplate(d Dataset, level Level) string {
	vintage := e.CensusVintage
	if d.Source == Filosofi {
		vintage = e.IncomeVintage
	}
	return e.Donnees + "/geo-" + strings.Join(d.Variables, "-") + "@" + vintage +
		"/" + string(level) + "-{code}" + strings.Repeat(".all", len(d.Variables))
}

// EstablishmentSearch returns the SIRENE query for the active
// establishments of one commune whose current period carries the NAF code.
// Results are not sorted server-side.
func (e Endpoints) EstablishmentSearch(naf, commune string) string {
	q := "periode(activitePrincipaleEtablissement:" + naf +
		" AND etatAdministratifEtablissement:A AND -dateFin:*)" +
		" AND codeCommuneEtablissement:" + commune
	v := url.Values{}
	v.Set("q", q)
	if e.PageSize > 0 {
		v.Set("nombre", strconv.Itoa(e.PageSize))
	}
	return e.Sirene + "/siret?" + v.Encode()
}

// CommuneBoundaryTemplate returns the GeoJSON contour template of a commune.
func (e Endpoints) CommuneBoundaryTemplate() string {
	return e.Geo + "/communes/{code}?geometry=contour&format=geojson"
}

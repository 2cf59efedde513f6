package establishment

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// SearchResponse is the body of a SIRENE /siret search.
type SearchResponse struct {
	Header         SearchHeader `json:"header"`
	Etablissements []Raw        `json:"etablissements"`
}

// SearchHeader carries the paging counters of a search.
type SearchHeader struct {
	Statut  int    `json:"statut"`
	Message string `json:"message"`
	Total   int    `json:"total"`
	Debut   int    `json:"debut"`
	Nombre  int    `json:"nombre"`
}

// Raw is one establishment hit as returned by SIRENE.
type Raw struct {
	Siret                         Text     `json:"siret"`
	DateCreationEtablissement     Text     `json:"dateCreationEtablissement"`
	TrancheEffectifsEtablissement Text     `json:"trancheEffectifsEtablissement"`
	Adresse                       *Address `json:"adresseEtablissement"`
	UniteLegale                   *Unit    `json:"uniteLegale"`
	Periodes                      []Period `json:"periodesEtablissement"`
}

// Address is the establishment's postal address and projected position.
type Address struct {
	NumeroVoie      Text `json:"numeroVoieEtablissement"`
	TypeVoie        Text `json:"typeVoieEtablissement"`
	LibelleVoie     Text `json:"libelleVoieEtablissement"`
	CodePostal      Text `json:"codePostalEtablissement"`
	CodeCommune     Text `json:"codeCommuneEtablissement"`
	LibelleCommune  Text `json:"libelleCommuneEtablissement"`
	LambertAbscisse Text `json:"coordonneeLambertAbscisseEtablissement"`
	LambertOrdonnee Text `json:"coordonneeLambertOrdonneeEtablissement"`
}

// Unit is the legal unit (company) owning the establishment.
type Unit struct {
	Denomination         Text `json:"denominationUniteLegale"`
	DenominationUsuelle1 Text `json:"denominationUsuelle1UniteLegale"`
	DenominationUsuelle2 Text `json:"denominationUsuelle2UniteLegale"`
	DenominationUsuelle3 Text `json:"denominationUsuelle3UniteLegale"`
	Sigle                Text `json:"sigleUniteLegale"`
	Prenom               Text `json:"prenom1UniteLegale"`
	Nom                  Text `json:"nomUniteLegale"`
	TrancheEffectifs     Text `json:"trancheEffectifsUniteLegale"`
	DateCreation         Text `json:"dateCreationUniteLegale"`
	CategorieEntreprise  Text `json:"categorieEntreprise"`
	CategorieJuridique   Text `json:"categorieJuridiqueUniteLegale"`
}

// Period is one historical state of the establishment; the first is current.
type Period struct {
	DateDebut           Text `json:"dateDebut"`
	DateFin             Text `json:"dateFin"`
	DenominationUsuelle Text `json:"denominationUsuelleEtablissement"`
	ActivitePrincipale  Text `json:"activitePrincipaleEtablissement"`
	EtatAdministratif   Text `json:"etatAdministratifEtablissement"`
}

// Text is a registry field. SIRENE mixes strings, numbers and null for the
// same field; all decode to a string, null to "".
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case bytes.Equal(data, []byte("true")) || bytes.Equal(data, []byte("false")):
		*t = Text(data)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*t = Text(n.String())
	}
	return nil
}

// Sentinel marks a value SIRENE does not disclose.
const Sentinel = "[ND]"

// Clean returns the field value with the sentinel read as empty.
func (t Text) Clean() string {
	if string(t) == Sentinel {
		return ""
	}
	return string(t)
}

// Float parses the cleaned field. Empty or invalid input gives nil.
func (t Text) Float() *float64 {
	s := t.Clean()
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

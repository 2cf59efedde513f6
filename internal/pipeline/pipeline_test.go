package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlin-app/medlin/internal/fetcher"
	"github.com/medlin-app/medlin/internal/mapping"
	"github.com/medlin-app/medlin/internal/reshape"
	"github.com/medlin-app/medlin/internal/resilience"
	"github.com/medlin-app/medlin/pkg/insee"
)

const populationVariables = `"Variable":[
  {"@code":"SEXE","Libelle":"Sexe","Modalite":[
    {"@code":"1","@variable":"SEXE","Libelle":"Hommes"},
    {"@code":"2","@variable":"SEXE","Libelle":"Femmes"}]},
  {"@code":"AGE15_15_90","Libelle":"Âge","Modalite":[
    {"@code":"00","@variable":"AGE15_15_90","Libelle":"Moins de 15 ans"},
    {"@code":"ENS","@variable":"AGE15_15_90","Libelle":"Ensemble"}]}]`

func populationCell(sex, age, value string) string {
	return `{"Zone":{"@codgeo":"x","@nivgeo":"COM"},"Mesure":{"@code":"POP"},"Modalite":[
	  {"@variable":"SEXE","@code":"` + sex + `"},{"@variable":"AGE15_15_90","@code":"` + age + `"}],"Valeur":"` + value + `"}`
}

func populationCube(men, women, menYoung, womenYoung string) string {
	return `{` + populationVariables + `,"Cellule":[` +
		populationCell("1", "00", menYoung) + "," +
		populationCell("2", "00", womenYoung) + "," +
		populationCell("1", "ENS", men) + "," +
		populationCell("2", "ENS", women) + `]}`
}

const sirenePage = `{"header":{"statut":200,"total":2,"nombre":2},"etablissements":[
  {"siret":"1","uniteLegale":{"denominationUniteLegale":"ZEBRE"},
   "adresseEtablissement":{"codeCommuneEtablissement":"69381",
     "coordonneeLambertAbscisseEtablissement":"842000","coordonneeLambertOrdonneeEtablissement":"6519000"},
   "periodesEtablissement":[{"activitePrincipaleEtablissement":"56.10A"}]},
  {"siret":"2","uniteLegale":{"denominationUniteLegale":"ABEILLE"},
   "adresseEtablissement":{"codeCommuneEtablissement":"69381",
     "coordonneeLambertAbscisseEtablissement":"[ND]","coordonneeLambertOrdonneeEtablissement":"[ND]"},
   "periodesEtablissement":[{"activitePrincipaleEtablissement":"56.10A"}]}]}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasPrefix(path, "/geo/communes/"):
			assert.Empty(t, r.Header.Get("Authorization"))
			code := strings.TrimPrefix(path, "/geo/communes/")
			if code == "69383" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte(`{"type":"Feature","properties":{"code":"` + code + `","nom":"Lyon"},
			  "geometry":{"type":"Point","coordinates":[4.83,45.76]}}`))
		case strings.HasPrefix(path, "/sirene/siret"):
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			q := r.URL.Query().Get("q")
			switch {
			case strings.Contains(q, "codeCommuneEtablissement:69381"):
				w.Write([]byte(sirenePage))
			case strings.Contains(q, "codeCommuneEtablissement:69383"):
				w.WriteHeader(http.StatusInternalServerError)
			default:
				// SIRENE answers 404 when nothing matches.
				w.WriteHeader(http.StatusNotFound)
			}
		case strings.Contains(path, "geo-SEXE-AGE15_15_90@RP/COM-69381.all.all"):
			w.Write([]byte(populationCube("30", "32", "10", "12")))
		case strings.Contains(path, "geo-SEXE-AGE15_15_90@RP/COM-69382.all.all"):
			w.Write([]byte(populationCube("60", "64", "20", "24")))
		case strings.Contains(path, "COM-69383"):
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte(`{"Cellule":[]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestPipeline(t *testing.T) *Pipeline {
	srv := newTestServer(t)
	f := fetcher.New(fetcher.Options{
		Token: "tok",
		Retry: resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond},
	})
	endpoints := insee.Endpoints{
		Donnees:       srv.URL + "/donnees",
		Sirene:        srv.URL + "/sirene",
		Geo:           srv.URL + "/geo",
		CensusVintage: "RP",
		IncomeVintage: "FILO",
		PageSize:      1000,
	}
	return New(f, endpoints, mapping.Lambert93)
}

func TestStats_PopulationMergesUnits(t *testing.T) {
	p := newTestPipeline(t)

	res, err := p.Stats(context.Background(), Query{Topic: "population", Codes: []string{"69381", "69382", "69383"}})
	require.NoError(t, err)
	assert.Equal(t, insee.Commune, res.Level)
	assert.Equal(t, []string{"69383"}, res.Missing)
	assert.NotEmpty(t, res.BatchID)

	view, ok := res.View.(*reshape.PopulationView)
	require.True(t, ok)
	require.Len(t, view.BySex, 2)
	assert.Equal(t, "Hommes", view.BySex[0].Label)
	assert.Equal(t, int64(90), view.BySex[0].Population)
	assert.Equal(t, int64(96), view.BySex[1].Population)

	require.Len(t, view.ByAge, 2)
	assert.Equal(t, "Moins de 15 ans", view.ByAge[0].Category)
	assert.Equal(t, int64(30), view.ByAge[0].Hommes)
	assert.Equal(t, int64(36), view.ByAge[0].Femmes)
	assert.Len(t, view.ChartRows(), 1)
}

func TestStats_NoData(t *testing.T) {
	p := newTestPipeline(t)

	_, err := p.Stats(context.Background(), Query{Topic: "population", Codes: []string{"69383"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, reshape.ErrNoData))

	_, err = p.Stats(context.Background(), Query{Topic: "diplomes", Codes: []string{"69381"}})
	assert.True(t, errors.Is(err, reshape.ErrNoData))
}

func TestStats_InvalidInput(t *testing.T) {
	p := newTestPipeline(t)

	_, err := p.Stats(context.Background(), Query{Topic: "meteo", Codes: []string{"69381"}})
	assert.Error(t, err)
	_, err = p.Stats(context.Background(), Query{Topic: "population", Codes: []string{"bad"}})
	assert.Error(t, err)
	_, err = p.Stats(context.Background(), Query{Topic: "population"})
	assert.Error(t, err)
}

func TestStatsAll(t *testing.T) {
	p := newTestPipeline(t)

	out := p.StatsAll(context.Background(), []string{"population", "menages"}, insee.Commune, []string{"69381"})
	require.Len(t, out, 2)
	assert.Equal(t, "population", out[0].Topic)
	assert.NotNil(t, out[0].Result)
	assert.Empty(t, out[0].Error)
	assert.Equal(t, "menages", out[1].Topic)
	assert.Nil(t, out[1].Result)
	assert.NotEmpty(t, out[1].Error)
}

func TestEstablishments(t *testing.T) {
	p := newTestPipeline(t)

	res, err := p.Establishments(context.Background(), "56.10A", []string{"69381", "69382", "69383"})
	require.NoError(t, err)
	assert.Equal(t, []string{"69383"}, res.Missing)
	assert.Equal(t, []string{"69382"}, res.Empty)
	require.Len(t, res.Records, 2)

	// Sorted by name; the unmappable record stays in the listing.
	assert.Equal(t, "ABEILLE", res.Records[0].Denomination)
	assert.Nil(t, res.Records[0].Coords)
	assert.Equal(t, "ZEBRE", res.Records[1].Denomination)
	assert.NotNil(t, res.Records[1].Coords)

	_, err = p.Establishments(context.Background(), "bad", []string{"69381"})
	assert.Error(t, err)
}

func TestBoundaries(t *testing.T) {
	p := newTestPipeline(t)

	fc, missing, err := p.Boundaries(context.Background(), []string{"69381", "69382", "69383"})
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
	assert.Equal(t, []string{"69383"}, missing)
	assert.Equal(t, "69381", mapping.FeatureCode(fc.Features[0]))
}

package establishment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Denomination
	}
	return out
}

func TestSortByName_French(t *testing.T) {
	records := []Record{
		{Denomination: "Zénith"},
		{Denomination: "école du centre"},
		{Denomination: "Atelier"},
		{Denomination: "Étoile"},
		{Denomination: "Eden"},
		{Denomination: ""},
	}
	SortByName(records)
	assert.Equal(t, []string{"", "Atelier", "école du centre", "Eden", "Étoile", "Zénith"}, names(records))
}

func TestFilter(t *testing.T) {
	records := []Record{
		{Siret: "1", Denomination: "Boulangerie du Parc", Commune: "69381, LYON 1ER"},
		{Siret: "2", Denomination: "Pâtisserie", Commune: "69382, LYON 2E"},
		{Siret: "3", Denomination: "BOULANGERIE LEVAIN", Commune: "69382, LYON 2E"},
	}

	got := Filter(records, map[string]string{"denomination": "boulangerie"})
	require.Len(t, got, 2)

	got = Filter(records, map[string]string{"denomination": "boulangerie", "commune": "69382"})
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].Siret)

	assert.Len(t, Filter(records, map[string]string{"commune": ""}), 3)
	assert.Len(t, Filter(records, nil), 3)
	assert.Empty(t, Filter(records, map[string]string{"unknown": "x"}))
}

func TestColumns_AllResolvable(t *testing.T) {
	r := Record{Siret: "s"}
	for _, c := range Columns {
		_, ok := r.Column(c)
		assert.True(t, ok, c)
	}
}

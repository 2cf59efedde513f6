package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlin-app/medlin/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"stats", "etablissements", "serve", "cache"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "medlin", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestApplyLogFlags(t *testing.T) {
	t.Cleanup(func() {
		for _, name := range []string{"log-level", "log-format"} {
			f := rootCmd.PersistentFlags().Lookup(name)
			f.Changed = false
			_ = f.Value.Set("")
		}
	})

	lc := config.LogConfig{Level: "info", Format: "json"}
	applyLogFlags(statsCmd, &lc)
	assert.Equal(t, config.LogConfig{Level: "info", Format: "json"}, lc)

	require.NoError(t, rootCmd.PersistentFlags().Set("log-level", "debug"))
	applyLogFlags(statsCmd, &lc)
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "json", lc.Format)
}

func TestStatsCommand_Flags(t *testing.T) {
	for _, name := range []string{"communes", "departements", "xlsx"} {
		require.NotNil(t, statsCmd.Flags().Lookup(name), name)
	}
	assert.Contains(t, statsCmd.Long, "population")
}

func TestEtablissementsCommand_Flags(t *testing.T) {
	for _, name := range []string{"naf", "communes", "xlsx", "geojson", "boundaries"} {
		require.NotNil(t, etablissementsCmd.Flags().Lookup(name), name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestCacheCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range cacheCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["stats"])
	assert.True(t, names["purge"])
	assert.NotNil(t, cachePurgeCmd.Flags().Lookup("expired"))
}

func TestSplitCodes(t *testing.T) {
	assert.Equal(t, []string{"69381", "69382"}, splitCodes(" 69381, ,69382,"))
	assert.Nil(t, splitCodes(""))
}

func TestStatsScope(t *testing.T) {
	t.Cleanup(func() { statsCommunes, statsDepartements = "", "" })

	statsCommunes, statsDepartements = "69381,69382", ""
	level, codes, err := statsScope()
	require.NoError(t, err)
	assert.Equal(t, "COM", string(level))
	assert.Len(t, codes, 2)

	statsCommunes, statsDepartements = "", "69"
	level, _, err = statsScope()
	require.NoError(t, err)
	assert.Equal(t, "DEP", string(level))

	statsCommunes, statsDepartements = "69381", "69"
	_, _, err = statsScope()
	assert.Error(t, err)

	statsCommunes, statsDepartements = "", ""
	_, _, err = statsScope()
	assert.Error(t, err)

	statsCommunes = "x"
	_, _, err = statsScope()
	assert.Error(t, err)
}

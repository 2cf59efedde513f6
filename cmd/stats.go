package main

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medlin-app/medlin/internal/export"
	"github.com/medlin-app/medlin/pkg/insee"
)

var (
	statsCommunes     string
	statsDepartements string
	statsXLSX         string
)

var statsCmd = &cobra.Command{
	Use:   "stats <topic>...",
	Short: "Aggregate INSEE statistics over communes or departments",
	Long:  "Topics: " + strings.Join(topicNames(), ", ") + ". Several topics run in parallel.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, codes, err := statsScope()
		if err != nil {
			return err
		}
		for _, topic := range args {
			if _, err := insee.Lookup(topic); err != nil {
				return err
			}
		}

		env, err := initApp(cmd.Context(), cfg, "stats")
		if err != nil {
			return err
		}
		defer env.Close()

		outcomes := env.Pipeline.StatsAll(cmd.Context(), args, level, codes)

		if statsXLSX != "" {
			var sheets []export.Sheet
			for _, o := range outcomes {
				if o.Result == nil {
					zap.L().Warn("stats: topic skipped in export", zap.String("topic", o.Topic), zap.String("error", o.Error))
					continue
				}
				s, err := export.Sheets(o.Result.View)
				if err != nil {
					return err
				}
				sheets = append(sheets, s...)
			}
			if err := export.WriteFile(statsXLSX, sheets...); err != nil {
				return err
			}
			zap.L().Info("stats: workbook written", zap.String("path", statsXLSX), zap.Int("sheets", len(sheets)))
			return nil
		}

		return writeJSON(cmd.OutOrStdout(), outcomes)
	},
}

// statsScope resolves the geographic level and codes from the flags.
func statsScope() (insee.Level, []string, error) {
	communes, departements := splitCodes(statsCommunes), splitCodes(statsDepartements)
	switch {
	case len(communes) > 0 && len(departements) > 0:
		return "", nil, eris.New("stats: use either --communes or --departements")
	case len(departements) > 0:
		return insee.Departement, departements, insee.ValidateCodes(insee.Departement, departements)
	case len(communes) > 0:
		return insee.Commune, communes, insee.ValidateCodes(insee.Commune, communes)
	}
	return "", nil, eris.New("stats: --communes or --departements is required")
}

func topicNames() []string {
	names := make([]string, 0, len(insee.Datasets))
	for name := range insee.Datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	statsCmd.Flags().StringVar(&statsCommunes, "communes", "", "comma-separated commune codes")
	statsCmd.Flags().StringVar(&statsDepartements, "departements", "", "comma-separated department codes")
	statsCmd.Flags().StringVar(&statsXLSX, "xlsx", "", "write the tables to this XLSX file instead of stdout")
	rootCmd.AddCommand(statsCmd)
}

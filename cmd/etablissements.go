package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medlin-app/medlin/internal/establishment"
	"github.com/medlin-app/medlin/internal/export"
	"github.com/medlin-app/medlin/internal/mapping"
)

var (
	etabNAF        string
	etabCommunes   string
	etabXLSX       string
	etabGeoJSON    string
	etabBoundaries string
)

var etablissementsCmd = &cobra.Command{
	Use:   "etablissements",
	Short: "List the active establishments of an activity in communes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if etabNAF == "" {
			return eris.New("etablissements: --naf is required")
		}
		communes := splitCodes(etabCommunes)

		env, err := initApp(cmd.Context(), cfg, "etablissements")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Establishments(cmd.Context(), etabNAF, communes)
		if err != nil {
			return err
		}
		log := zap.L().With(zap.String("batch_id", res.BatchID))

		if etabGeoJSON != "" {
			fc := mapping.Markers(establishment.Markers(res.Records))
			if err := writeJSONFile(etabGeoJSON, fc); err != nil {
				return err
			}
			log.Info("etablissements: markers written", zap.String("path", etabGeoJSON), zap.Int("markers", len(fc.Features)))
		}
		if etabBoundaries != "" {
			fc, missing, err := env.Pipeline.Boundaries(cmd.Context(), communes)
			if err != nil {
				return err
			}
			if err := writeJSONFile(etabBoundaries, fc); err != nil {
				return err
			}
			log.Info("etablissements: boundaries written", zap.String("path", etabBoundaries), zap.Strings("missing", missing))
		}
		if etabXLSX != "" {
			if err := export.WriteFile(etabXLSX, export.Records(res.Records)); err != nil {
				return err
			}
			log.Info("etablissements: workbook written", zap.String("path", etabXLSX), zap.Int("records", len(res.Records)))
		}
		if etabGeoJSON != "" || etabBoundaries != "" || etabXLSX != "" {
			return nil
		}

		return writeJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	etablissementsCmd.Flags().StringVar(&etabNAF, "naf", "", "NAF activity code, e.g. 56.10A")
	etablissementsCmd.Flags().StringVar(&etabCommunes, "communes", "", "comma-separated commune codes")
	etablissementsCmd.Flags().StringVar(&etabXLSX, "xlsx", "", "write the listing to this XLSX file")
	etablissementsCmd.Flags().StringVar(&etabGeoJSON, "geojson", "", "write the mappable establishments to this GeoJSON file")
	etablissementsCmd.Flags().StringVar(&etabBoundaries, "boundaries", "", "write the commune contours to this GeoJSON file")
	rootCmd.AddCommand(etablissementsCmd)
}

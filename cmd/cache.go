package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medlin-app/medlin/internal/store"
)

var cacheExpiredOnly bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), stats)
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openCache(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var n int
		if cacheExpiredOnly {
			n, err = st.DeleteExpired(cmd.Context())
		} else {
			n, err = st.Purge(cmd.Context())
		}
		if err != nil {
			return err
		}
		zap.L().Info("cache: purged", zap.Int("deleted", n), zap.Bool("expired_only", cacheExpiredOnly))
		return writeJSON(cmd.OutOrStdout(), map[string]int{"deleted": n})
	},
}

func openCache(cmd *cobra.Command) (store.Store, error) {
	if err := cfg.Validate("cache"); err != nil {
		return nil, err
	}
	st, err := store.Open(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

func init() {
	cachePurgeCmd.Flags().BoolVar(&cacheExpiredOnly, "expired", false, "only delete expired entries")
	cacheCmd.AddCommand(cacheStatsCmd, cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

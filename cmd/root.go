package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medlin-app/medlin/internal/config"
)

// cfg is loaded once per invocation, before any subcommand runs.
var cfg *config.Config

// Command-line overrides of the log section.
var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "medlin",
	Short: "Local statistics and business listings for French communes",
	Long: `Fetches INSEE census, income and SIRENE establishment data for a set of
communes or departments, aggregates it and reshapes it into tables, charts
and maps. Settings come from config.yaml and MEDLIN_* variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "medlin: load config")
		}
		applyLogFlags(cmd, &c.Log)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "medlin: init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// applyLogFlags lets --log-level and --log-format win over the config file.
func applyLogFlags(cmd *cobra.Command, lc *config.LogConfig) {
	if f := cmd.Flag("log-level"); f != nil && f.Changed {
		lc.Level = logLevel
	}
	if f := cmd.Flag("log-format"); f != nil && f.Changed {
		lc.Format = logFormat
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json or console)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

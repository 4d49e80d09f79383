// Command otukit runs the OTU table pipeline: import, filter, aggregate,
// rarefaction diversity, rarefaction curves, ordination and PERMANOVA.
//
// Settings come from a YAML run file (--config); command-line flags
// override it. Reports are written as tab-separated files to the output
// directory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/arloliu/otukit/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string
	outputDir  string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "otukit",
	Short: "Amplicon OTU table analysis",
	Long: `otukit joins OTU count, taxonomy and sample metadata tables, removes
blanks and contaminants, and reports taxonomic composition, rarefied alpha
diversity, rarefaction curves, ordinations and PERMANOVA tests.

Inputs may be gzip, zstd, s2 or lz4 compressed (chosen by extension).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if outputDir != "" {
			cfg.Output.Dir = outputDir
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "otukit.yaml", "Run file (defaults apply when absent)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "out", "o", "", "Output directory (overrides the run file)")

	addInputFlags(rootCmd)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(diversityCmd)
	rootCmd.AddCommand(curveCmd)
	rootCmd.AddCommand(ordinateCmd)
	rootCmd.AddCommand(permanovaCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

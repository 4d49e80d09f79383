package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arloliu/otukit"
	"github.com/arloliu/otukit/format"
	"github.com/arloliu/otukit/snapshot"
	"github.com/arloliu/otukit/table"
)

// Input flags, shared by every command that reads a dataset.
var (
	abundancePath string
	taxonomyPath  string
	metadataPath  string
	snapshotPath  string
	sharedLabel   string
	innerJoin     bool
)

func addInputFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&abundancePath, "abundance", "", "Abundance table or mothur shared file")
	f.StringVar(&taxonomyPath, "taxonomy", "", "Taxonomy table")
	f.StringVar(&metadataPath, "metadata", "", "Sample metadata table")
	f.StringVar(&snapshotPath, "snapshot", "", "Dataset snapshot written by 'otukit import'")
	f.StringVar(&sharedLabel, "label", "", "OTU label of a mothur shared file (default: first)")
	f.BoolVar(&innerJoin, "inner-join", false, "Keep the common identifiers instead of failing on mismatches")
}

// applyInputFlags copies explicitly set input flags over the run file.
func applyInputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("abundance") {
		cfg.Input.Abundance = abundancePath
	}
	if flags.Changed("taxonomy") {
		cfg.Input.Taxonomy = taxonomyPath
	}
	if flags.Changed("metadata") {
		cfg.Input.Metadata = metadataPath
	}
	if flags.Changed("snapshot") {
		cfg.Input.Snapshot = snapshotPath
	}
	if flags.Changed("label") {
		cfg.Input.Label = sharedLabel
	}
	if flags.Changed("inner-join") {
		cfg.Input.InnerJoin = innerJoin
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withDataset wraps a stage that needs the filtered dataset.
func withDataset(stage func(ctx context.Context, ds *table.Dataset) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		applyInputFlags(cmd)
		ds, err := loadDataset(cfg)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		return stage(ctx, ds)
	}
}

// =============================================================================
// init / import
// =============================================================================

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a run file with the default settings",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("run file already exists: %s", configPath)
	}
	applyInputFlags(cmd)
	if err := cfg.Save(configPath); err != nil {
		return err
	}
	logger.Info("run file written", zap.String("path", configPath))

	return nil
}

var snapshotCompression string

var importCmd = &cobra.Command{
	Use:   "import <snapshot>",
	Short: "Join and filter the input tables and save them as a snapshot",
	Long: `Reads the abundance, taxonomy and metadata tables, applies the filters of
the run file and writes the dataset to a binary snapshot. Later commands
read it with --snapshot instead of parsing the text tables again.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	applyInputFlags(cmd)
	ct, ok := format.ParseCompression(snapshotCompression)
	if !ok {
		return fmt.Errorf("invalid compression: %s (valid: none, gzip, zstd, s2, lz4)", snapshotCompression)
	}
	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}
	if err := otukit.SaveDataset(args[0], ds, snapshot.WithCompression(ct)); err != nil {
		return err
	}
	logger.Info("snapshot written",
		zap.String("path", args[0]),
		zap.Stringer("compression", ct))

	return nil
}

// =============================================================================
// Stages
// =============================================================================

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Report relative abundance per taxon at one rank",
	Args:  cobra.NoArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		f := cmd.Flags()
		if f.Changed("rank") {
			cfg.Aggregate.Rank = rankFlag
		}
		if f.Changed("prune") {
			cfg.Aggregate.Prune = pruneFlag
		}
		if f.Changed("other") {
			cfg.Aggregate.Other = otherFlag
		}
	},
	RunE: withDataset(func(_ context.Context, ds *table.Dataset) error {
		return stageAggregate(ds, cfg)
	}),
}

var (
	rankFlag  string
	pruneFlag float64
	otherFlag string
)

var diversityCmd = &cobra.Command{
	Use:    "diversity",
	Short:  "Estimate richness and inverse Simpson evenness by repeated rarefaction",
	Args:   cobra.NoArgs,
	PreRun: applyDiversityFlags,
	RunE: withDataset(func(ctx context.Context, ds *table.Dataset) error {
		return stageDiversity(ctx, ds, cfg)
	}),
}

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Compute rarefaction curves and fit saturation models",
	Args:  cobra.NoArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		applyDiversityFlags(cmd, args)
		if cmd.Flags().Changed("points") {
			cfg.Diversity.CurvePoints = pointsFlag
		}
	},
	RunE: withDataset(func(ctx context.Context, ds *table.Dataset) error {
		return stageCurve(ctx, ds, cfg)
	}),
}

var (
	depthFlag       int
	trialsFlag      int
	seedFlag        uint64
	workersFlag     int
	dropShallowFlag bool
	pointsFlag      int
)

func addDiversityFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&depthFlag, "depth", 0, "Reads per rarefied sample")
	f.IntVar(&trialsFlag, "trials", 0, "Rarefaction repetitions per sample")
	f.Uint64Var(&seedFlag, "seed", 0, "Random seed")
	f.IntVar(&workersFlag, "workers", 0, "Concurrent samples (default: GOMAXPROCS)")
	f.BoolVar(&dropShallowFlag, "drop-shallow", false, "Skip samples with fewer reads than --depth")
}

func applyDiversityFlags(cmd *cobra.Command, _ []string) {
	f := cmd.Flags()
	if f.Changed("depth") {
		cfg.Diversity.Depth = depthFlag
	}
	if f.Changed("trials") {
		cfg.Diversity.Trials = trialsFlag
	}
	if f.Changed("seed") {
		cfg.Diversity.Seed = seedFlag
	}
	if f.Changed("workers") {
		cfg.Diversity.Workers = workersFlag
	}
	if f.Changed("drop-shallow") {
		cfg.Diversity.DropShallow = dropShallowFlag
	}
}

var ordinateCmd = &cobra.Command{
	Use:    "ordinate",
	Short:  "Compute a distance matrix and a PCoA or NMDS ordination",
	Args:   cobra.NoArgs,
	PreRun: applyOrdinationFlags,
	RunE: withDataset(func(_ context.Context, ds *table.Dataset) error {
		return stageOrdinate(ds, cfg)
	}),
}

var permanovaCmd = &cobra.Command{
	Use:    "permanova",
	Short:  "Test whether a metadata field explains community distances",
	Args:   cobra.NoArgs,
	PreRun: applyOrdinationFlags,
	RunE: withDataset(func(_ context.Context, ds *table.Dataset) error {
		return stagePermanova(ds, cfg)
	}),
}

var (
	metricFlag       string
	relativeFlag     bool
	methodFlag       string
	dimsFlag         int
	groupFieldFlag   string
	permutationsFlag int
)

func addOrdinationFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&metricFlag, "metric", "", "Distance: bray-curtis, jaccard, euclidean or cosine")
	f.BoolVar(&relativeFlag, "relative", false, "Convert counts to proportions before distances")
	f.StringVar(&groupFieldFlag, "group-field", "", "Metadata field holding the sample groups")
	f.Uint64Var(&seedFlag, "seed", 0, "Random seed")
}

func applyOrdinationFlags(cmd *cobra.Command, _ []string) {
	f := cmd.Flags()
	if f.Changed("metric") {
		cfg.Ordination.Metric = metricFlag
	}
	if f.Changed("relative") {
		cfg.Ordination.Relative = relativeFlag
	}
	if f.Changed("method") {
		cfg.Ordination.Method = methodFlag
	}
	if f.Changed("dims") {
		cfg.Ordination.Dims = dimsFlag
	}
	if f.Changed("group-field") {
		cfg.Ordination.GroupField = groupFieldFlag
	}
	if f.Changed("permutations") {
		cfg.Ordination.Permutations = permutationsFlag
	}
	if f.Changed("seed") {
		cfg.Diversity.Seed = seedFlag
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every stage enabled in the run file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyInputFlags(cmd)
		ctx, cancel := signalContext()
		defer cancel()

		return runPipeline(ctx, cfg)
	},
}

func init() {
	importCmd.Flags().StringVar(&snapshotCompression, "compression", "zstd", "Snapshot compression: none, gzip, zstd, s2 or lz4")

	aggregateCmd.Flags().StringVar(&rankFlag, "rank", "", "Rank to collapse to, e.g. Phylum")
	aggregateCmd.Flags().Float64Var(&pruneFlag, "prune", 0, "Drop rows below this relative abundance")
	aggregateCmd.Flags().StringVar(&otherFlag, "other", "", "Pool pruned rows under this label instead of dropping them")

	addDiversityFlags(diversityCmd)
	addDiversityFlags(curveCmd)
	curveCmd.Flags().IntVar(&pointsFlag, "points", defaultCurvePoints, "Depths per curve")

	addOrdinationFlags(ordinateCmd)
	ordinateCmd.Flags().StringVar(&methodFlag, "method", "", "Ordination: pcoa or nmds")
	ordinateCmd.Flags().IntVar(&dimsFlag, "dims", 0, "Ordination axes")

	addOrdinationFlags(permanovaCmd)
	permanovaCmd.Flags().IntVar(&permutationsFlag, "permutations", 0, "Label permutations")
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	defaults "github.com/xtxerr/telemetrygen/config"
	"github.com/xtxerr/telemetrygen/internal/config"
	"github.com/xtxerr/telemetrygen/internal/logging"
	"github.com/xtxerr/telemetrygen/internal/pipeline"
)

var generateFlags struct {
	configPath      string
	duration        int
	khz             float64
	launchID        string
	seed            uint64
	disableProgress bool
	maxRows         int64
	output          string
	rowGroupSize    int
	prefetch        bool
	partitionByRate bool
	compression     string
	manifest        bool
	metricsTextfile string
	estimate        bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a telemetry run",
	Long: `Generate a telemetry run and write it to Parquet.

Settings come from the defaults, then the run file given with --config,
then flags. SIGINT or SIGTERM stops generation; records generated so far
are written and the files stay valid.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&generateFlags.configPath, "config", "c", "", "YAML run file")
	f.IntVarP(&generateFlags.duration, "duration", "d", int(defaults.DefaultDuration/time.Second), "simulated flight duration in seconds")
	f.Float64Var(&generateFlags.khz, "khz", 1, "sample rate of catalog sensors in kHz")
	f.StringVar(&generateFlags.launchID, "launch-id", defaults.DefaultLaunchID, "launch identifier, prefixes output files")
	f.Uint64Var(&generateFlags.seed, "seed", defaults.DefaultSeed, "random seed")
	f.BoolVar(&generateFlags.disableProgress, "disable-progress", false, "disable the progress display")
	f.Int64Var(&generateFlags.maxRows, "max-rows", 0, "stop after this many records (0 = no limit)")
	f.StringVarP(&generateFlags.output, "output", "o", defaults.DefaultOutputDir, "output directory")
	f.IntVar(&generateFlags.rowGroupSize, "row-group-size", defaults.DefaultRowGroupSize, "records per Parquet row group")
	f.BoolVar(&generateFlags.prefetch, "prefetch", false, "generate values on one goroutine per sensor")
	f.BoolVar(&generateFlags.partitionByRate, "partition-by-rate", false, "split output into low and high rate files")
	f.StringVar(&generateFlags.compression, "compression", defaults.DefaultCompression, "compression: snappy, zstd, lz4, gzip, none")
	f.BoolVar(&generateFlags.manifest, "manifest", true, "write a JSON manifest next to the data files")
	f.StringVar(&generateFlags.metricsTextfile, "metrics-textfile", "", "write run metrics in Prometheus text format")
	f.BoolVar(&generateFlags.estimate, "estimate", false, "print the run estimate and exit")
}

// loadRunFile applies the run file and changed flags over the defaults.
func loadRunFile(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if generateFlags.configPath != "" {
		var err error
		if cfg, err = config.Load(generateFlags.configPath); err != nil {
			return nil, err
		}
	}

	f := cmd.Flags()
	if f.Changed("duration") {
		cfg.Duration = time.Duration(generateFlags.duration) * time.Second
	}
	if f.Changed("khz") {
		cfg.Rate = strconv.FormatFloat(generateFlags.khz, 'f', -1, 64) + "kHz"
	}
	if f.Changed("launch-id") {
		cfg.LaunchID = generateFlags.launchID
	}
	if f.Changed("seed") {
		cfg.Seed = generateFlags.seed
	}
	if f.Changed("disable-progress") {
		cfg.Progress = !generateFlags.disableProgress
	}
	if f.Changed("max-rows") {
		cfg.Pipeline.MaxRecords = generateFlags.maxRows
	}
	if f.Changed("output") {
		cfg.Output.Dir = generateFlags.output
	}
	if f.Changed("row-group-size") {
		cfg.Output.RowGroupSize = generateFlags.rowGroupSize
	}
	if f.Changed("prefetch") {
		cfg.Pipeline.Prefetch = generateFlags.prefetch
	}
	if f.Changed("partition-by-rate") {
		cfg.Output.PartitionByRate = generateFlags.partitionByRate
	}
	if f.Changed("compression") {
		cfg.Output.Compression = generateFlags.compression
	}
	if f.Changed("manifest") {
		cfg.Output.Manifest = generateFlags.manifest
	}
	if f.Changed("metrics-textfile") {
		cfg.MetricsTextfile = generateFlags.metricsTextfile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunFile(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLaunchID(ctx, cfg.LaunchID)
	log := logging.WithContext(ctx).With("component", "cli")

	req, err := cfg.CalculateRequirements()
	if err != nil {
		return err
	}
	if generateFlags.estimate {
		fmt.Fprint(cmd.OutOrStdout(), req.FormatRequirements())
		return nil
	}

	log.Info("estimated run size",
		"sensors", req.Sensors,
		"records", req.Unlimited,
		"peak_memory_bytes", req.TotalRAMBytes,
		"disk_bytes", req.DiskBytes)
	if req.ExceedsLimit {
		log.Warn("estimated records exceed max rows; the run will stop early",
			"records", req.Unlimited,
			"max_rows", cfg.Pipeline.MaxRecords)
	}

	if err := config.CheckOutputDir(cfg.Output.Dir); err != nil {
		return err
	}

	run, err := cfg.Build()
	if err != nil {
		return err
	}

	summary, err := pipeline.Run(ctx, run, pipeline.WithProgressWriter(cmd.ErrOrStderr()))
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary)
	}
	return err
}

func printSummary(w io.Writer, s *pipeline.RunSummary) {
	fmt.Fprintf(w, "run %s (%s, seed %d): %s\n", s.RunID, s.LaunchID, s.Seed, s.Termination)
	fmt.Fprintf(w, "%d of %d records in %s\n", s.TotalRecords, s.Expected, s.Elapsed.Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tPARTITION\tRECORDS\tROW GROUPS")
	for _, f := range s.Files {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", f.Path, partitionLabel(f.Partition), f.Records, f.RowGroups)
	}
	tw.Flush()

	if s.Manifest != "" {
		fmt.Fprintf(w, "manifest: %s\n", s.Manifest)
	}
}

func partitionLabel(p string) string {
	if p == "" {
		return "-"
	}
	return p
}

// commandContext returns the command context, or a background one for
// commands invoked without Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

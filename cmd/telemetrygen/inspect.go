package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xtxerr/telemetrygen/internal/storage/parquet"
	"github.com/xtxerr/telemetrygen/internal/storage/query"
)

var inspectFlags struct {
	memoryLimit string
	checkOrder  bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE...",
	Short: "Summarize Parquet files written by generate",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFlags.memoryLimit, "memory-limit", "", "DuckDB memory limit, e.g. 1GB")
	inspectCmd.Flags().BoolVar(&inspectFlags.checkOrder, "check-order", false, "count timestamp order violations per file")
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	w := cmd.OutOrStdout()

	svc, err := query.New(query.Options{MemoryLimit: inspectFlags.memoryLimit})
	if err != nil {
		return err
	}
	defer svc.Close()

	for _, path := range args {
		info, err := parquet.GetFileInfo(path)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", path, err)
		}
		fmt.Fprintf(w, "%s: %d records, %d row groups, %d bytes\n",
			info.Path, info.NumRows, len(info.RowGroups), info.Size)
		for _, key := range []string{
			parquet.MetaRunID, parquet.MetaLaunchID, parquet.MetaLaunchTime, parquet.MetaSeed,
			parquet.MetaPartition, parquet.MetaTermination, parquet.MetaSchemaVersion,
		} {
			if v, ok := info.Metadata[key]; ok {
				fmt.Fprintf(w, "  %s = %s\n", key, v)
			}
		}

		if inspectFlags.checkOrder {
			n, err := svc.OrderViolations(ctx, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  order violations: %d\n", n)
		}
	}

	sensors, err := svc.Summarize(ctx, args...)
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SENSOR\tTYPE\tCOUNT\tMIN\tMAX\tMEAN\tFIRST\tLAST")
	for _, s := range sensors {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.4g\t%.4g\t%.4g\t%s\t%s\n",
			s.SensorID, s.SensorType, s.Count, s.Min, s.Max, s.Mean,
			time.Duration(s.FirstTs), time.Duration(s.LastTs))
	}
	return tw.Flush()
}

// telemetrygen writes simulated rocket flight telemetry to Parquet.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	logLevel string
	logJSON  bool
	logFile  string

	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "telemetrygen",
	Short:         "Generate simulated rocket telemetry",
	Long:          `Generate time-ordered multi-sensor telemetry at configurable rates and write it to Parquet.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return errors.NewConfig("log-level", err.Error())
		}
		if logFile == "" {
			logging.Init(level, logJSON)
			return nil
		}
		logCloser, err = logging.InitWithFile(level, logJSON, logFile)
		if err != nil {
			return errors.NewConfig("log-file", err.Error())
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func simpleLogger(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")

	rootCmd.AddCommand(generateCmd, inspectCmd, sensorsCmd)
}

// setRuntimeLimits sizes GOMAXPROCS and the memory limit to the container.
func setRuntimeLimits() {
	if _, err := maxprocs.Set(maxprocs.Logger(simpleLogger)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set maxprocs: %v\n", err)
	}
	_, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(0.8),
		memlimit.WithLogger(slog.Default()),
		memlimit.WithProvider(
			memlimit.ApplyFallback(
				memlimit.FromCgroup,
				memlimit.FromSystem,
			),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set memory limit: %v\n", err)
	}
}

func main() {
	setRuntimeLimits()

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetrygen: %v\n", err)
	}
	os.Exit(errors.ExitCode(err))
}

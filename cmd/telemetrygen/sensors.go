package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xtxerr/telemetrygen/internal/sensor"
)

var sensorsKHz float64

var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "List the built-in sensor catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := sensor.ParseRate(strconv.FormatFloat(sensorsKHz, 'f', -1, 64) + "kHz")
		if err != nil {
			return err
		}

		specs := append(sensor.Catalog(rate), sensor.Reference())
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tUNIT\tWIDTH\tRATE\tGENERATOR")
		for _, s := range specs {
			gen := s.Generator.Kind.String()
			if s.Generator.Kind == sensor.KindFlight {
				gen += ":" + string(s.Generator.Channel)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", s.ID, s.Type, s.Unit, s.Components(), s.Rate, gen)
		}
		return tw.Flush()
	},
}

func init() {
	sensorsCmd.Flags().Float64Var(&sensorsKHz, "khz", 1, "sample rate of catalog sensors in kHz")
}

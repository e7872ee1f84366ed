package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/eeesim/analysis"
	"github.com/sarchlab/eeesim/p2p/measurement"
)

var (
	reportParams = analysis.DefaultParams()
	reportCSV    bool
)

var reportCmd = &cobra.Command{
	Use:   "report [measurement files...]",
	Short: "Compare measurements of several runs with the EEE model.",
	Long: "`report run1.txt run2.sqlite3` prints, per device and port, the " +
		"measured and predicted mean low-power interval and relative energy " +
		"with 98% confidence margins.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{measurement.DefaultTextFile}
		}

		summaries, err := reportParams.Report(args)
		if len(summaries) == 0 {
			if err != nil {
				return err
			}

			return errors.New("no record with traffic and low-power intervals")
		}

		if err != nil {
			logger.Warningf("%v", err)
		}

		if reportCSV {
			return analysis.WriteCSV(cmd.OutOrStdout(), summaries)
		}

		printReport(cmd.OutOrStdout(), summaries)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	f := reportCmd.Flags()
	f.Float64Var(&reportParams.SleepTime, "ts", reportParams.SleepTime,
		"time to enter low power, in seconds")
	f.Float64Var(&reportParams.WakeTime, "tw", reportParams.WakeTime,
		"time to leave low power, in seconds")
	f.Float64Var(&reportParams.PhiOff, "phi-off", reportParams.PhiOff,
		"relative power in low power")
	f.Float64Var(&reportParams.ByteLimit, "byte-limit", reportParams.ByteLimit,
		"coalescing byte limit, in bytes")
	f.Float64Var(&reportParams.Timeout, "timeout", reportParams.Timeout,
		"coalescing timeout, in seconds")
	f.BoolVar(&reportCSV, "csv", false, "write CSV instead of text")
}

func printReport(w io.Writer, summaries []analysis.PortSummary) {
	for _, s := range summaries {
		fmt.Fprintf(w, "%d %d %g %g %g %g %g %g %g %g\n",
			s.NodeID, s.IfIndex,
			s.EToff.Mean, s.EToff.Margin,
			s.ModelEToff.Mean, s.ModelEToff.Margin,
			s.Phi.Mean, s.Phi.Margin,
			s.ModelPhi.Mean, s.ModelPhi.Margin)
	}
}

package main

import (
	"github.com/juju/loggo"
	"github.com/spf13/cobra"
)

var logger = loggo.GetLogger("eeesim.cmd")

var logConfig string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "eeesim",
	Short: "eeesim simulates Energy-Efficient Ethernet links with coalescing.",
	Long: `eeesim simulates a point-to-point link whose two ends hold frames ` +
		`back while the link is in low power, and compares the measured ` +
		`low-power time with an analytical model.`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return loggo.ConfigureLoggers(logConfig)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logConfig, "log-config",
		"<root>=WARNING",
		"logging levels, such as \"<root>=INFO;eeesim.coalescing=TRACE\"")
}

// Execute runs the command line and returns the exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}

	return 0
}

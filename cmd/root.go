package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "botbridge",
	Short: "Bridge a bot webhook and a messaging channel aggregator",
	Long: `botbridge translates messages between a conversational bot webhook and a
channel aggregator, and delivers outbound messages one at a time, advancing
only when the previous one is acknowledged.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

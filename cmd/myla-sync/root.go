package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "myla-sync",
	Short: "Sync the learning analytics dashboard from the data warehouse",
	Long: `myla-sync copies course, enrollment, assignment and submission data from the
data warehouse into the dashboard database, and appends resource access events
from the learning record store.

"run" performs a single sync. "schedule" stays resident and runs at the
configured sync.run_at_times, serving run status over HTTP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./config/config.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(coursesCmd)
}

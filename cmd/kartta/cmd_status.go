package main

import (
	"github.com/spf13/cobra"
)

var statusConfig string

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show checkpoint and journal state for the configured run",
	Long: `Inspect the durable state kartta keeps between runs: the checkpoint
store that makes --resume cheap, and the journal of past run events.`,
	Example: `  kartta status                # Use kartta.yaml in the working directory
  kartta status -c prod.yaml   # Explicit config file`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusConfig, "config", "c", "", "Path to config file (default kartta.yaml)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	status := &StatusCommand{ConfigPath: statusConfig}
	return status.Run()
}

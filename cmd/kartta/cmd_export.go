package main

import (
	"github.com/spf13/cobra"
)

var (
	exportConfig   string
	exportOutput   string
	exportRoot     string
	exportProvider string
	exportResume   bool
	exportDebug    bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Walk the organization and export every readable resource to disk",
	Long: `Walk the configured organization top-down and write every resource
kartta can read to local files. One file per resource, directories
mirroring the folder and project hierarchy.

The walk is read-only. Scopes kartta is not allowed to read are
skipped and reported, never treated as fatal. An interrupted run
continues with --resume; completed work is not fetched again.`,
	Example: `  kartta export                      # Use kartta.yaml in the working directory
  kartta export -c prod.yaml         # Explicit config file
  kartta export --resume             # Continue an interrupted run
  kartta export -o /tmp/inventory    # Override the output directory`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportConfig, "config", "c", "", "Path to config file (default kartta.yaml)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output directory (overrides config)")
	exportCmd.Flags().StringVar(&exportRoot, "root", "", "Root scope to walk (overrides config)")
	exportCmd.Flags().StringVar(&exportProvider, "provider", "", "Cloud provider (overrides config)")
	exportCmd.Flags().BoolVar(&exportResume, "resume", false, "Resume from the last checkpoint")
	exportCmd.Flags().BoolVar(&exportDebug, "debug", false, "Enable debug logging")
}

func runExport(cmd *cobra.Command, args []string) error {
	export := &ExportCommand{
		ConfigPath: exportConfig,
		OutputDir:  exportOutput,
		RootScope:  exportRoot,
		Provider:   exportProvider,
		Resume:     exportResume,
		Debug:      exportDebug,
	}
	return export.Run(cmd.Context())
}

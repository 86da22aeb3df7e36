package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:   "kartta",
		Short: "Cloud Inventory Extractor",
		Long: `Kartta - Cloud Inventory Extractor

Kartta walks a cloud organization top-down and writes every resource
it can read to local files, one file per resource, in a directory
tree that mirrors the organization hierarchy.

Kartta never mutates cloud state. It lists, reads, and writes files.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init sets up the root command
func init() {
	rootCmd.SetVersionTemplate(`Kartta {{.Version}} - Cloud Inventory Extractor
`)
}

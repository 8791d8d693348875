package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sage",
	Short: "Declarative validation of data submissions against catalog and package specs",
	Long: `Sage validates tabular data submissions (CSV, XLSX, ZIP bundles)
against declarative YAML specifications.

Quick start:
  sage validate customers data.csv   # Validate one file against a catalog
  sage process monthly report.zip    # Run the full package pipeline
  sage serve                         # Start the HTTP API and inbox watcher

Management:
  sage senders overdue               # List senders past their deadline`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "sage.yaml", "config file path")
}

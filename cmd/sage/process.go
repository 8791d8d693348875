package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/artpar/sage/app"
	"github.com/artpar/sage/bootstrap"
	"github.com/artpar/sage/config"
)

var (
	processForce  bool
	processSender string
)

var processCmd = &cobra.Command{
	Use:   "process <package> <artifact>",
	Short: "Run the full pipeline on an artifact",
	Long: `Process one artifact against a package specification.

The package argument is either a package name (resolved inside the
configured packages directory) or a path to a package YAML file.
The report is printed as JSON; the exit code is non-zero when
validation fails or the submission is rejected.

Examples:
  sage process monthly_report january.zip
  sage process ./specs/packages/monthly_report.yaml january.zip --force
  sage process monthly_report january.zip --sender acme`,
	Args: cobra.ExactArgs(2),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&processForce, "force", false, "bypass the duplicate-submission gate")
	processCmd.Flags().StringVar(&processSender, "sender", "", "sender id to record with the submission")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	a, err := bootstrap.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Shutdown()

	packagePath := args[0]
	if _, err := os.Stat(packagePath); err != nil {
		packagePath = filepath.Join(cfg.Paths.Packages, args[0]+".yaml")
	}

	report, err := a.Processor.ProcessPackage(context.Background(), args[1], packagePath, app.ProcessOptions{
		Force:    processForce,
		SenderID: processSender,
	})
	if err != nil {
		var dup *app.DuplicateError
		if errors.As(err, &dup) {
			fmt.Fprintf(os.Stderr, "rejected: %v\n", dup)
			os.Exit(2)
		}
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !report.Success {
		os.Exit(1)
	}
	return nil
}

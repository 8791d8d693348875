package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/sage/adapters/tabular"
	"github.com/artpar/sage/app"
	"github.com/artpar/sage/config"
	"github.com/artpar/sage/domain/catalog"
	"github.com/artpar/sage/domain/diagnostic"
)

var validateCmd = &cobra.Command{
	Use:   "validate <catalog> <file>",
	Short: "Validate one tabular file against a catalog spec",
	Long: `Validate a CSV or XLSX file against a catalog specification.

The catalog argument is either a catalog name (resolved inside the
configured catalogs directory) or a path to a catalog YAML file.
Findings are printed one per line; the exit code is non-zero when
any ERROR-severity finding is present.

Examples:
  sage validate customers data.csv
  sage validate ./specs/catalogs/customers.yaml data.xlsx`,
	Args: cobra.ExactArgs(2),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	specs := app.NewSpecService(cfg.Paths.Catalogs, zerolog.Nop())

	specPath := args[0]
	if _, err := os.Stat(specPath); err != nil {
		specPath = args[0] + ".yaml"
	}
	spec, err := specs.LoadCatalog(specPath)
	if err != nil {
		return err
	}

	ds, err := tabular.Reader{}.ReadFile(args[1])
	if err != nil {
		return err
	}

	diags := catalog.Validate(ds, spec)
	for _, d := range diags {
		printDiagnostic(d)
	}

	if diagnostic.Success(diags) {
		fmt.Printf("%s: %d rows, OK\n", filepath.Base(args[1]), ds.Rows())
		return nil
	}
	fmt.Fprintf(os.Stderr, "%s: %d rows, %d findings\n", filepath.Base(args[1]), ds.Rows(), len(diags))
	os.Exit(1)
	return nil
}

func printDiagnostic(d diagnostic.Diagnostic) {
	switch {
	case d.Line > 0 && d.Field != "":
		fmt.Printf("%s line %d [%s] %s: %s\n", d.Severity, d.Line, d.Field, d.CellText, d.Message)
	case d.Line > 0:
		fmt.Printf("%s line %d: %s\n", d.Severity, d.Line, d.Message)
	default:
		fmt.Printf("%s: %s\n", d.Severity, d.Message)
	}
}

// Package extract handles the single statement extraction command
package extract

import (
	"fmt"

	"fjacquet/card-expenses/cmd/common"
	"fjacquet/card-expenses/cmd/root"
	"fjacquet/card-expenses/internal/validation"

	"github.com/spf13/cobra"
)

var (
	output       string
	outputDir    string
	split        bool
	noSave       bool
	reportFormat string
)

// Cmd represents the extract command
var Cmd = &cobra.Command{
	Use:   "extract <statement>",
	Short: "Extract the transactions of one statement",
	Long: `Extract every card transaction from a PDF or spreadsheet statement, store it
for review and optionally write it as CSV.

Example:
  card-expenses extract statements/march.pdf -o out/march.csv --report yaml`,
	Args: cobra.ExactArgs(1),
	RunE: extractFunc,
}

func init() {
	Cmd.Flags().StringVarP(&output, "output", "o", "", "CSV file to write")
	Cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for CSV output named after the statement")
	Cmd.Flags().BoolVar(&split, "split", false, "Write one CSV per representative")
	Cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not store the statement")
	Cmd.Flags().StringVar(&reportFormat, "report", "", "Print a summary report (json or yaml)")
}

func extractFunc(cmd *cobra.Command, args []string) error {
	if err := validateArgs(args[0]); err != nil {
		return err
	}
	c := root.GetContainer()
	if c == nil {
		return fmt.Errorf("container not initialized")
	}

	out, err := common.ProcessFile(root.Context(cmd), c, args[0], common.ProcessOptions{
		Output:                output,
		OutputDir:             outputDir,
		SplitByRepresentative: split,
		Save:                  !noSave,
		ReportFormat:          reportFormat,
		ReportOut:             cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "Extracted %d transactions (%s)\n", len(out.Result.Transactions), out.Result.Stage)
	if out.StatementID != "" {
		fmt.Fprintf(w, "Statement id: %s\n", out.StatementID)
	}
	for _, f := range out.Files {
		fmt.Fprintf(w, "Wrote %s\n", f)
	}
	if n := len(out.Result.Discrepancies); n > 0 {
		fmt.Fprintf(w, "Warning: %d group totals differ from the statement\n", n)
	}
	return nil
}

func validateArgs(input string) error {
	if err := validation.IsValidStatementFile(input); err != nil {
		return err
	}
	if err := validation.IsValidOutputOptions(output, outputDir, split); err != nil {
		return err
	}
	return validation.IsValidReportFormat(reportFormat)
}

// Package batch handles batch processing of files
package batch

import (
	"fmt"

	"fjacquet/card-expenses/cmd/common"
	"fjacquet/card-expenses/cmd/root"
	"fjacquet/card-expenses/internal/validation"

	"github.com/spf13/cobra"
)

var (
	inputDir  string
	outputDir string
	noSave    bool
)

// Cmd represents the batch command
var Cmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch process statements from a directory",
	Long: `Batch process every statement in an input directory and write one consolidated
CSV per representative to another directory.

A statement that cannot be read is reported and skipped; the others are still
processed.

Example:
  card-expenses batch -i statements/ -o out/`,
	RunE: batchFunc,
}

func init() {
	Cmd.Flags().StringVarP(&inputDir, "input", "i", "", "Input directory")
	Cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory")
	Cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not store the statements")
	_ = Cmd.MarkFlagRequired("input")
	_ = Cmd.MarkFlagRequired("output")
}

func batchFunc(cmd *cobra.Command, args []string) error {
	if err := validation.IsValidDirectory(inputDir); err != nil {
		return err
	}
	c := root.GetContainer()
	if c == nil {
		return fmt.Errorf("container not initialized")
	}

	out, err := common.RunBatch(root.Context(cmd), c, common.BatchOptions{
		InputDir:  inputDir,
		OutputDir: outputDir,
		Save:      !noSave,
	})
	if err != nil {
		return err
	}

	w := cmd.ErrOrStderr()
	s := out.Summary
	fmt.Fprintf(w, "Processed %d of %d statements, %d transactions, %d files written\n",
		len(s.Processed), len(s.Files), len(s.Transactions), len(out.Files))
	for _, f := range s.Failed {
		fmt.Fprintf(w, "  %s: %v\n", f.File, f.Err)
	}
	if s.Duplicates > 0 {
		fmt.Fprintf(w, "Warning: %d potential duplicate transactions across statements\n", s.Duplicates)
	}
	if len(s.Failed) > 0 && len(s.Processed) == 0 {
		return fmt.Errorf("no statement could be processed")
	}
	return nil
}

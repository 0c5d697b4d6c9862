// Package classify handles the transaction review command
package classify

import (
	"fmt"

	"fjacquet/card-expenses/cmd/common"
	"fjacquet/card-expenses/cmd/root"

	"github.com/spf13/cobra"
)

var (
	status      string
	category    string
	subcategory string
	comments    string
	assignedTo  string
)

// Cmd represents the classify command
var Cmd = &cobra.Command{
	Use:   "classify <transaction-id>",
	Short: "Update the review fields of a stored transaction",
	Long: `Update the status, category, comments or representative of a stored transaction.
Only the flags given are changed.

Example:
  card-expenses classify 6f1c... --status classified --category Travel --subcategory Hotel`,
	Args: cobra.ExactArgs(1),
	RunE: classifyFunc,
}

func init() {
	Cmd.Flags().StringVarP(&status, "status", "s", "", "pending, classified or approved")
	Cmd.Flags().StringVarP(&category, "category", "c", "", "Expense category")
	Cmd.Flags().StringVar(&subcategory, "subcategory", "", "Expense subcategory")
	Cmd.Flags().StringVar(&comments, "comments", "", "Reviewer comments")
	Cmd.Flags().StringVarP(&assignedTo, "assigned-to", "a", "", "Representative responsible for the expense")
}

func classifyFunc(cmd *cobra.Command, args []string) error {
	c := root.GetContainer()
	if c == nil {
		return fmt.Errorf("container not initialized")
	}
	st, err := c.GetStore()
	if err != nil {
		return err
	}

	return common.ClassifyTransaction(root.Context(cmd), st, args[0], FlagsFrom(cmd), cmd.OutOrStdout())
}

// FlagsFrom collects the flags the user actually set.
func FlagsFrom(cmd *cobra.Command) common.ClassifyFlags {
	var flags common.ClassifyFlags
	set := func(name string, value *string) *string {
		if cmd.Flags().Changed(name) {
			v := *value
			return &v
		}
		return nil
	}
	flags.Status = set("status", &status)
	flags.Category = set("category", &category)
	flags.Subcategory = set("subcategory", &subcategory)
	flags.Comments = set("comments", &comments)
	flags.AssignedTo = set("assigned-to", &assignedTo)
	return flags
}

// Package statement handles the review commands on stored statements
package statement

import (
	"fmt"
	"time"

	"fjacquet/card-expenses/cmd/common"
	"fjacquet/card-expenses/cmd/root"
	"fjacquet/card-expenses/internal/validation"

	"github.com/spf13/cobra"
)

var (
	showFormat     string
	representative string
	tokenTTL       time.Duration
)

// Cmd groups the statement subcommands
var Cmd = &cobra.Command{
	Use:   "statement",
	Short: "Manage stored statements and their access tokens",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored statements, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		return common.ListStatements(root.Context(cmd), st, cmd.OutOrStdout())
	},
}

var showCmd = &cobra.Command{
	Use:   "show <statement-id>",
	Short: "Show the transactions of a statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validation.IsValidShowFormat(showFormat); err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		return common.ShowStatement(root.Context(cmd), st, root.GetContainer().GetReportGenerator(), args[0], showFormat, cmd.OutOrStdout())
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <statement-id>",
	Short: "Delete a statement with its transactions and access tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		return common.DeleteStatement(root.Context(cmd), st, args[0], cmd.OutOrStdout())
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <statement-id>",
	Short: "Issue an access token for a representative to review a statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		_, err = common.IssueToken(root.Context(cmd), st, args[0], representative, tokenTTL, cmd.OutOrStdout())
		return err
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Check that an access token exists and has not expired",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		_, err = common.VerifyToken(root.Context(cmd), st, args[0], time.Now(), cmd.OutOrStdout())
		return err
	},
}

func init() {
	showCmd.Flags().StringVarP(&showFormat, "format", "f", "table", "Output format (table, json or yaml)")
	tokenCmd.Flags().StringVarP(&representative, "representative", "r", "", "Representative the token is issued to")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 7*24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("representative")

	Cmd.AddCommand(listCmd, showCmd, deleteCmd, tokenCmd, verifyCmd)
}

func openStore() (common.ReviewStore, error) {
	c := root.GetContainer()
	if c == nil {
		return nil, fmt.Errorf("container not initialized")
	}
	st, err := c.GetStore()
	if err != nil {
		return nil, err
	}
	return st, nil
}

package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"fjacquet/card-expenses/internal/currencyutils"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/report"
)

// ReviewStore is the part of the store the review commands use.
type ReviewStore interface {
	ListStatements(ctx context.Context) ([]models.Statement, error)
	GetStatement(ctx context.Context, id string) (*models.Statement, error)
	DeleteStatement(ctx context.Context, id string) error
	UpdateTransaction(ctx context.Context, id string, patch models.TransactionPatch) error
	IssueAccessToken(ctx context.Context, statementID, representative string, ttl time.Duration) (*models.AccessToken, error)
	GetAccessToken(ctx context.Context, token string) (*models.AccessToken, error)
}

// ListStatements prints one line per stored statement, newest first.
func ListStatements(ctx context.Context, st ReviewStore, w io.Writer) error {
	statements, err := st.ListStatements(ctx)
	if err != nil {
		return err
	}
	if len(statements) == 0 {
		_, err := fmt.Fprintln(w, "No statements stored.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSOURCE\tPATH\tUPLOADED\tTRANSACTIONS")
	for _, s := range statements {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			s.ID, s.Filename, s.SourceKind, s.Path, s.UploadedAt.Format(time.RFC3339), s.TransactionCount)
	}
	return tw.Flush()
}

// ShowStatement prints the transactions of one statement, or its report
// when format is json or yaml.
func ShowStatement(ctx context.Context, st ReviewStore, reports *report.ReportGenerator, id, format string, w io.Writer) error {
	s, err := st.GetStatement(ctx, id)
	if err != nil {
		return err
	}

	if format != "" && format != "table" {
		data, err := reports.GenerateReport(report.FromStatement(s), format)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Statement %s (%s, %d transactions)\n\n", s.ID, s.Filename, s.TransactionCount)
	fmt.Fprintln(tw, "ID\tDATE\tACCOUNT\tMERCHANT\tAMOUNT\tASSIGNED TO\tSTATUS\tCOMMENTS")
	for _, tx := range s.Transactions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.Date, tx.Account, tx.Merchant, currencyutils.FormatAmount(tx.Amount, tx.Currency), tx.AssignedTo, tx.Status, tx.Comments)
	}
	return tw.Flush()
}

// DeleteStatement removes a statement with its transactions and tokens.
func DeleteStatement(ctx context.Context, st ReviewStore, id string, w io.Writer) error {
	if err := st.DeleteStatement(ctx, id); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Deleted statement %s\n", id)
	return err
}

// ClassifyFlags are the optional fields of the classify command; nil means
// unchanged.
type ClassifyFlags struct {
	Status      *string
	Category    *string
	Subcategory *string
	Comments    *string
	AssignedTo  *string
}

// BuildPatch validates the flags and turns them into a patch.
func BuildPatch(flags ClassifyFlags) (models.TransactionPatch, error) {
	var patch models.TransactionPatch
	if flags.Status != nil {
		status, err := models.ParseStatus(*flags.Status)
		if err != nil {
			return patch, err
		}
		patch.Status = &status
	}
	patch.Category = flags.Category
	patch.Subcategory = flags.Subcategory
	patch.Comments = flags.Comments
	if flags.AssignedTo != nil {
		name := strings.TrimSpace(*flags.AssignedTo)
		if name == "" {
			return patch, fmt.Errorf("assigned-to cannot be blank")
		}
		patch.AssignedTo = &name
	}
	if patch.IsEmpty() {
		return patch, fmt.Errorf("nothing to update: pass at least one of --status, --category, --subcategory, --comments, --assigned-to")
	}
	return patch, nil
}

// ClassifyTransaction applies flags to one transaction.
func ClassifyTransaction(ctx context.Context, st ReviewStore, id string, flags ClassifyFlags, w io.Writer) error {
	patch, err := BuildPatch(flags)
	if err != nil {
		return err
	}
	if err := st.UpdateTransaction(ctx, id, patch); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Updated transaction %s\n", id)
	return err
}

// IssueToken creates an access token for representative on a statement.
func IssueToken(ctx context.Context, st ReviewStore, statementID, representative string, ttl time.Duration, w io.Writer) (*models.AccessToken, error) {
	if strings.TrimSpace(representative) == "" {
		return nil, fmt.Errorf("representative is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive")
	}
	token, err := st.IssueAccessToken(ctx, statementID, representative, ttl)
	if err != nil {
		return nil, err
	}
	_, err = fmt.Fprintf(w, "%s (expires %s)\n", token.Token, token.ExpiresAt.Format(time.RFC3339))
	return token, err
}

// ErrTokenExpired is returned when a known token is past its expiry.
var ErrTokenExpired = errors.New("access token expired")

// VerifyToken checks that token exists and is still valid at now, and
// prints the statement and representative it grants.
func VerifyToken(ctx context.Context, st ReviewStore, token string, now time.Time, w io.Writer) (*models.AccessToken, error) {
	tok, err := st.GetAccessToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if tok.Expired(now) {
		return tok, fmt.Errorf("%w at %s", ErrTokenExpired, tok.ExpiresAt.Format(time.RFC3339))
	}
	_, err = fmt.Fprintf(w, "Token valid for %s on statement %s until %s\n",
		tok.Representative, tok.StatementID, tok.ExpiresAt.Format(time.RFC3339))
	return tok, err
}

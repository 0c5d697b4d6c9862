// Package store persists statements, their transactions and the access
// tokens issued for them in a SQLite database. Deleting a statement removes
// everything that hangs off it.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/parsererror"
)

//go:embed schema.sql
var schema string

// BatchSize is the number of transactions written per INSERT statement.
const BatchSize = 50

const transactionColumns = "id, statement_id, position, date, account, merchant, amount, currency, status, assigned_to, category, subcategory, comments, source_row"

// Store is the SQLite persistence layer.
type Store struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

// Open opens or creates the database at path and applies the schema.
func Open(path string, logger logging.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), models.PermissionDirectory); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("execute schema: %w", err)
	}

	return &Store{db: db, logger: logging.OrDefault(logger), now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertStatement stores statement metadata and returns its id. An empty ID
// is generated and a zero UploadedAt is set to now.
func (s *Store) InsertStatement(ctx context.Context, st *models.Statement) (string, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.UploadedAt.IsZero() {
		st.UploadedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO statements (id, filename, source_kind, extraction_path, uploaded_at)
		VALUES (?, ?, ?, ?, ?)
	`, st.ID, st.Filename, string(st.SourceKind), string(st.Path), st.UploadedAt)
	if err != nil {
		return "", fmt.Errorf("insert statement: %w", err)
	}

	s.logger.Debug("Statement stored",
		logging.Field{Key: logging.FieldStatementID, Value: st.ID},
		logging.Field{Key: logging.FieldFile, Value: st.Filename})
	return st.ID, nil
}

// InsertTransactions appends txs to a statement in batches of BatchSize,
// inside one database transaction. Order is preserved across calls.
func (s *Store) InsertTransactions(ctx context.Context, statementID string, txs []models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = dbtx.Rollback() }()

	var offset int
	if err := dbtx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM transactions WHERE statement_id = ?`, statementID,
	).Scan(&offset); err != nil {
		return fmt.Errorf("read transaction position: %w", err)
	}

	for start := 0; start < len(txs); start += BatchSize {
		end := start + BatchSize
		if end > len(txs) {
			end = len(txs)
		}
		batch := txs[start:end]

		placeholders := make([]string, len(batch))
		args := make([]any, 0, len(batch)*14)
		for i := range batch {
			t := &batch[i]
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			if t.Status == "" {
				t.Status = models.StatusPending
			}
			t.StatementID = statementID
			placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
			args = append(args, t.ID, statementID, offset+start+i, t.Date, t.Account, t.Merchant,
				t.Amount.String(), t.Currency, string(t.Status), t.AssignedTo, t.Category, t.Subcategory,
				t.Comments, t.SourceRow)
		}

		query := "INSERT INTO transactions (" + transactionColumns + ") VALUES " + strings.Join(placeholders, ", ")
		if _, err := dbtx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert transactions %d-%d: %w", start, end, err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit transactions: %w", err)
	}

	s.logger.Debug("Transactions stored",
		logging.Field{Key: logging.FieldStatementID, Value: statementID},
		logging.Field{Key: logging.FieldCount, Value: len(txs)})
	return nil
}

// GetStatement returns a statement with its transactions in insertion order.
func (s *Store) GetStatement(ctx context.Context, id string) (*models.Statement, error) {
	st, err := scanStatement(s.db.QueryRowContext(ctx, `
		SELECT s.id, s.filename, s.source_kind, s.extraction_path, s.uploaded_at,
		       (SELECT COUNT(*) FROM transactions t WHERE t.statement_id = s.id)
		FROM statements s
		WHERE s.id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("statement %s: %w", id, parsererror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query statement: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE statement_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		st.Transactions = append(st.Transactions, *t)
	}
	return st, rows.Err()
}

// ListStatements returns every statement, newest first, without transactions.
func (s *Store) ListStatements(ctx context.Context) ([]models.Statement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.filename, s.source_kind, s.extraction_path, s.uploaded_at,
		       (SELECT COUNT(*) FROM transactions t WHERE t.statement_id = s.id)
		FROM statements s
		ORDER BY s.uploaded_at DESC, s.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query statements: %w", err)
	}
	defer rows.Close()

	var out []models.Statement
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan statement: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

// DeleteStatement removes a statement; transactions and access tokens go with
// it through ON DELETE CASCADE.
func (s *Store) DeleteStatement(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM statements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete statement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("statement %s: %w", id, parsererror.ErrNotFound)
	}
	s.logger.Info("Statement deleted", logging.Field{Key: logging.FieldStatementID, Value: id})
	return nil
}

// UpdateTransaction applies the non-nil fields of patch.
func (s *Store) UpdateTransaction(ctx context.Context, id string, patch models.TransactionPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.AssignedTo != nil {
		add("assigned_to", *patch.AssignedTo)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.Subcategory != nil {
		add("subcategory", *patch.Subcategory)
	}
	if patch.Comments != nil {
		add("comments", *patch.Comments)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", id, parsererror.ErrNotFound)
	}
	s.logger.Debug("Transaction updated",
		logging.Field{Key: logging.FieldTransactionID, Value: id},
		logging.Field{Key: logging.FieldOperation, Value: strings.Join(sets, ", ")})
	return nil
}

// IssueAccessToken creates a token giving representative access to a
// statement until ttl elapses.
func (s *Store) IssueAccessToken(ctx context.Context, statementID, representative string, ttl time.Duration) (*models.AccessToken, error) {
	now := s.now().UTC()
	tok := &models.AccessToken{
		Token:          uuid.NewString(),
		StatementID:    statementID,
		Representative: representative,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_tokens (token, statement_id, representative, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, tok.Token, tok.StatementID, tok.Representative, tok.CreatedAt, tok.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("insert access token: %w", err)
	}
	return tok, nil
}

// GetAccessToken looks a token up. Expired tokens are returned as well; the
// caller decides with AccessToken.Expired.
func (s *Store) GetAccessToken(ctx context.Context, token string) (*models.AccessToken, error) {
	var tok models.AccessToken
	err := s.db.QueryRowContext(ctx, `
		SELECT token, statement_id, representative, created_at, expires_at
		FROM access_tokens
		WHERE token = ?
	`, token).Scan(&tok.Token, &tok.StatementID, &tok.Representative, &tok.CreatedAt, &tok.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("access token: %w", parsererror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query access token: %w", err)
	}
	return &tok, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatement(row rowScanner) (*models.Statement, error) {
	var st models.Statement
	var kind, path string
	if err := row.Scan(&st.ID, &st.Filename, &kind, &path, &st.UploadedAt, &st.TransactionCount); err != nil {
		return nil, err
	}
	st.SourceKind = models.SourceKind(kind)
	st.Path = models.ExtractionPath(path)
	return &st, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	var position int
	var status string
	if err := row.Scan(&t.ID, &t.StatementID, &position, &t.Date, &t.Account, &t.Merchant,
		&t.Amount, &t.Currency, &status, &t.AssignedTo, &t.Category, &t.Subcategory,
		&t.Comments, &t.SourceRow); err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	t.Status = models.Status(status)
	return &t, nil
}

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/parsererror"
)

// MockStore is an in-memory stand-in for Store used in tests. The error
// fields, when set, are returned by the matching method.
type MockStore struct {
	mu         sync.Mutex
	statements map[string]*models.Statement
	tokens     map[string]*models.AccessToken

	// InsertBatches records the size of every simulated INSERT batch.
	InsertBatches []int

	InsertStatementError    error
	InsertTransactionsError error
	GetStatementError       error
	DeleteStatementError    error
	UpdateTransactionError  error
}

// NewMockStore returns an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		statements: map[string]*models.Statement{},
		tokens:     map[string]*models.AccessToken{},
	}
}

func (m *MockStore) InsertStatement(_ context.Context, st *models.Statement) (string, error) {
	if m.InsertStatementError != nil {
		return "", m.InsertStatementError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.UploadedAt.IsZero() {
		st.UploadedAt = time.Now().UTC()
	}
	cp := *st
	cp.Transactions = nil
	m.statements[st.ID] = &cp
	return st.ID, nil
}

func (m *MockStore) InsertTransactions(_ context.Context, statementID string, txs []models.Transaction) error {
	if m.InsertTransactionsError != nil {
		return m.InsertTransactionsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.statements[statementID]
	if !ok {
		return fmt.Errorf("statement %s: %w", statementID, parsererror.ErrNotFound)
	}
	for start := 0; start < len(txs); start += BatchSize {
		end := start + BatchSize
		if end > len(txs) {
			end = len(txs)
		}
		m.InsertBatches = append(m.InsertBatches, end-start)
	}
	for i := range txs {
		if txs[i].ID == "" {
			txs[i].ID = uuid.NewString()
		}
		txs[i].StatementID = statementID
		st.Transactions = append(st.Transactions, txs[i])
	}
	st.TransactionCount = len(st.Transactions)
	return nil
}

func (m *MockStore) GetStatement(_ context.Context, id string) (*models.Statement, error) {
	if m.GetStatementError != nil {
		return nil, m.GetStatementError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.statements[id]
	if !ok {
		return nil, fmt.Errorf("statement %s: %w", id, parsererror.ErrNotFound)
	}
	cp := *st
	cp.Transactions = append([]models.Transaction(nil), st.Transactions...)
	return &cp, nil
}

func (m *MockStore) ListStatements(_ context.Context) ([]models.Statement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Statement, 0, len(m.statements))
	for _, st := range m.statements {
		cp := *st
		cp.Transactions = nil
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (m *MockStore) DeleteStatement(_ context.Context, id string) error {
	if m.DeleteStatementError != nil {
		return m.DeleteStatementError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.statements[id]; !ok {
		return fmt.Errorf("statement %s: %w", id, parsererror.ErrNotFound)
	}
	delete(m.statements, id)
	for k, tok := range m.tokens {
		if tok.StatementID == id {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *MockStore) UpdateTransaction(_ context.Context, id string, patch models.TransactionPatch) error {
	if m.UpdateTransactionError != nil {
		return m.UpdateTransactionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, st := range m.statements {
		for i := range st.Transactions {
			t := &st.Transactions[i]
			if t.ID != id {
				continue
			}
			if patch.Status != nil {
				t.Status = *patch.Status
			}
			if patch.AssignedTo != nil {
				t.AssignedTo = *patch.AssignedTo
			}
			if patch.Category != nil {
				t.Category = *patch.Category
			}
			if patch.Subcategory != nil {
				t.Subcategory = *patch.Subcategory
			}
			if patch.Comments != nil {
				t.Comments = *patch.Comments
			}
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", id, parsererror.ErrNotFound)
}

func (m *MockStore) IssueAccessToken(_ context.Context, statementID, representative string, ttl time.Duration) (*models.AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.statements[statementID]; !ok {
		return nil, fmt.Errorf("statement %s: %w", statementID, parsererror.ErrNotFound)
	}
	now := time.Now().UTC()
	tok := &models.AccessToken{
		Token:          uuid.NewString(),
		StatementID:    statementID,
		Representative: representative,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
	m.tokens[tok.Token] = tok
	return tok, nil
}

// GetAccessToken returns a stored token, expired or not.
func (m *MockStore) GetAccessToken(_ context.Context, token string) (*models.AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.tokens[token]
	if !ok {
		return nil, fmt.Errorf("access token: %w", parsererror.ErrNotFound)
	}
	cp := *tok
	return &cp, nil
}

// TokenCount returns the number of live tokens.
func (m *MockStore) TokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

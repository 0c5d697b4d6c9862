// Package models holds the data shared across the extraction pipeline: the
// normalized Transaction, the raw records produced by the extractors, and the
// statement metadata handed to persistence.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the review state of a transaction.
type Status string

const (
	StatusPending    Status = "pending"
	StatusClassified Status = "classified"
	StatusApproved   Status = "approved"
)

// ParseStatus validates a user supplied status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusClassified, StatusApproved:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Transaction is one normalized card expense.
type Transaction struct {
	ID          string          `csv:"ID" json:"id"`
	StatementID string          `csv:"-" json:"statement_id,omitempty"`
	Date        string          `csv:"Date" json:"date"`
	Account     string          `csv:"Account" json:"account"`
	Merchant    string          `csv:"Merchant" json:"merchant"`
	Amount      decimal.Decimal `csv:"Amount" json:"amount"`
	Currency    string          `csv:"Currency" json:"currency"`
	Status      Status          `csv:"Status" json:"status"`
	AssignedTo  string          `csv:"AssignedTo" json:"assigned_to"`
	Category    string          `csv:"Category" json:"category"`
	Subcategory string          `csv:"Subcategory" json:"subcategory"`
	Comments    string          `csv:"Comments" json:"comments"`
	// SourceRow is the spreadsheet row the record came from, -1 when unknown.
	SourceRow int `csv:"SourceRow" json:"source_row"`
}

// AddComment appends a note without clobbering an existing comment.
func (t *Transaction) AddComment(note string) {
	if strings.Contains(t.Comments, note) {
		return
	}
	if t.Comments == "" {
		t.Comments = note
		return
	}
	t.Comments += "; " + note
}

// TransactionPatch is a partial update applied by UpdateTransaction. Nil
// fields are left untouched.
type TransactionPatch struct {
	Status      *Status
	AssignedTo  *string
	Category    *string
	Subcategory *string
	Comments    *string
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Status == nil && p.AssignedTo == nil && p.Category == nil && p.Subcategory == nil && p.Comments == nil
}

// Statement is the persisted metadata of one processed file.
type Statement struct {
	ID               string         `json:"id"`
	Filename         string         `json:"filename"`
	SourceKind       SourceKind     `json:"source_kind"`
	Path             ExtractionPath `json:"extraction_path"`
	UploadedAt       time.Time      `json:"uploaded_at"`
	TransactionCount int            `json:"transaction_count"`
	Transactions     []Transaction  `json:"transactions,omitempty"`
}

// AccessToken grants a representative temporary access to one statement.
type AccessToken struct {
	Token          string    `json:"token"`
	StatementID    string    `json:"statement_id"`
	Representative string    `json:"representative"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Expired reports whether the token is no longer valid at now.
func (a AccessToken) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

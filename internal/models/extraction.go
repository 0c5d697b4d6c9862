package models

import (
	"fjacquet/card-expenses/internal/currencyutils"

	"github.com/shopspring/decimal"
)

// RawRecord is a transaction as an extractor saw it, before normalization.
// All values are kept as text; parsing happens once, in the normalizer.
type RawRecord struct {
	PostingDate     string `json:"posting_date,omitempty"`
	TransactionDate string `json:"transaction_date,omitempty"`
	Account         string `json:"account,omitempty"`
	Merchant        string `json:"supplier,omitempty"`
	Amount          string `json:"amount"`
	// Row is the stable source row id, when the extractor knows it.
	Row *int `json:"row,omitempty"`

	Representative string `json:"-"`
	Block          int    `json:"-"`
}

// SourceRow returns the row id or -1.
func (r RawRecord) SourceRow() int {
	if r.Row == nil {
		return -1
	}
	return *r.Row
}

// RowRef returns a pointer suitable for RawRecord.Row.
func RowRef(i int) *int {
	return &i
}

// RepresentativeGroup is the set of records the model attributed to one
// representative, with the totals it claims.
type RepresentativeGroup struct {
	Name          string           `json:"name"`
	Transactions  []RawRecord      `json:"transactions"`
	Count         int              `json:"transaction_count"`
	DeclaredTotal *decimal.Decimal `json:"total_extracto,omitempty"`
	ComputedTotal *decimal.Decimal `json:"total_calculado,omitempty"`
}

// ExtractionResult is the canonical shape every LLM response is repaired into.
// Groups keep response order and may repeat a name when several responses
// were concatenated.
type ExtractionResult struct {
	Groups []RepresentativeGroup `json:"transactions"`

	Strategy      string        `json:"-"`
	Discrepancies []Discrepancy `json:"-"`
}

// NewEmptyResult returns a result with no groups.
func NewEmptyResult() *ExtractionResult {
	return &ExtractionResult{Groups: []RepresentativeGroup{}}
}

// TransactionCount is the number of records across all groups.
func (r *ExtractionResult) TransactionCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, g := range r.Groups {
		n += len(g.Transactions)
	}
	return n
}

// IsEmpty reports whether the result carries no records.
func (r *ExtractionResult) IsEmpty() bool {
	return r.TransactionCount() == 0
}

// Append concatenates other's groups after r's, without merging names.
func (r *ExtractionResult) Append(other *ExtractionResult) {
	if other == nil {
		return
	}
	r.Groups = append(r.Groups, other.Groups...)
	r.Discrepancies = append(r.Discrepancies, other.Discrepancies...)
}

// Records flattens the groups, stamping each record with its group name.
func (r *ExtractionResult) Records() []RawRecord {
	if r == nil {
		return nil
	}
	out := make([]RawRecord, 0, r.TransactionCount())
	for _, g := range r.Groups {
		for _, rec := range g.Transactions {
			rec.Representative = g.Name
			out = append(out, rec)
		}
	}
	return out
}

// MergeByKey returns a copy where groups sharing a name are combined in order
// of first appearance. A total declared by only one of the merged parts, such
// as the section total printed after a split, applies to the whole group;
// totals declared by several parts are summed.
func (r *ExtractionResult) MergeByKey() *ExtractionResult {
	merged := &ExtractionResult{Strategy: r.Strategy, Discrepancies: r.Discrepancies}
	index := map[string]int{}
	for _, g := range r.Groups {
		i, ok := index[g.Name]
		if !ok {
			index[g.Name] = len(merged.Groups)
			cp := g
			cp.Transactions = append([]RawRecord(nil), g.Transactions...)
			merged.Groups = append(merged.Groups, cp)
			continue
		}
		dst := &merged.Groups[i]
		dst.Transactions = append(dst.Transactions, g.Transactions...)
		dst.Count = len(dst.Transactions)
		dst.DeclaredTotal = sumOptional(dst.DeclaredTotal, g.DeclaredTotal)
		dst.ComputedTotal = sumOptional(dst.ComputedTotal, g.ComputedTotal)
	}
	return merged
}

func sumOptional(a, b *decimal.Decimal) *decimal.Decimal {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	s := a.Add(*b)
	return &s
}

// RawExtraction is the closed set of response shapes a model may return.
// Each variant knows how to turn itself into the canonical ExtractionResult.
type RawExtraction interface {
	Shape() string
	Canonical() *ExtractionResult
}

// FlatExtraction is a bare list of records, optionally naming a
// representative per record.
type FlatExtraction struct {
	Records []RawRecord
}

// GroupedByCard is the canonical list of groups, one per representative.
type GroupedByCard struct {
	Groups []RepresentativeGroup
}

// GroupedWithTotals is an object keyed by representative name, each value
// carrying declared and computed totals next to its records.
type GroupedWithTotals struct {
	Groups []RepresentativeGroup
}

func (FlatExtraction) Shape() string    { return "flat" }
func (GroupedByCard) Shape() string     { return "grouped_by_card" }
func (GroupedWithTotals) Shape() string { return "grouped_with_totals" }

// Canonical groups consecutive-or-not records by their Representative in
// order of first appearance.
func (f FlatExtraction) Canonical() *ExtractionResult {
	res := NewEmptyResult()
	index := map[string]int{}
	for _, rec := range f.Records {
		name := rec.Representative
		i, ok := index[name]
		if !ok {
			i = len(res.Groups)
			index[name] = i
			res.Groups = append(res.Groups, RepresentativeGroup{Name: name})
		}
		res.Groups[i].Transactions = append(res.Groups[i].Transactions, rec)
	}
	finishGroups(res.Groups)
	return res
}

func (g GroupedByCard) Canonical() *ExtractionResult {
	res := &ExtractionResult{Groups: append([]RepresentativeGroup{}, g.Groups...)}
	finishGroups(res.Groups)
	return res
}

func (g GroupedWithTotals) Canonical() *ExtractionResult {
	res := &ExtractionResult{Groups: append([]RepresentativeGroup{}, g.Groups...)}
	finishGroups(res.Groups)
	return res
}

// finishGroups recomputes counts and computed totals from the records so a
// canonical result never trusts model arithmetic.
func finishGroups(groups []RepresentativeGroup) {
	for i := range groups {
		g := &groups[i]
		for j := range g.Transactions {
			g.Transactions[j].Representative = ""
		}
		if g.Transactions == nil {
			g.Transactions = []RawRecord{}
		}
		g.Count = len(g.Transactions)
		total := SumAmounts(g.Transactions)
		g.ComputedTotal = &total
	}
}

// SumAmounts adds every parseable amount, ignoring the rest.
func SumAmounts(records []RawRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, rec := range records {
		if d, err := currencyutils.ParseAmount(rec.Amount); err == nil {
			sum = sum.Add(d)
		}
	}
	return sum
}

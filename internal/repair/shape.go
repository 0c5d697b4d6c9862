package repair

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fjacquet/card-expenses/internal/currencyutils"
	"fjacquet/card-expenses/internal/models"
)

func aliases(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

var (
	transactionsKeys = aliases("transactions", "transacciones", "records", "movimientos", "items")
	nameKeys         = aliases("name", "representative", "commercial", "comercial", "nombre", "titular", "cardholder")
	declaredKeys     = aliases("total_extracto", "declared_total", "statement_total", "total_declarado", "total")
	postingKeys      = aliases("posting_date", "post_date", "fecha_contabilizacion", "fecha_de_contabilizacion", "fecha_posteo")
	tranDateKeys     = aliases("transaction_date", "tran_date", "trans_date", "date", "fecha", "fecha_transaccion", "fecha_de_transaccion")
	accountKeys      = aliases("account", "card", "card_number", "tarjeta", "cuenta", "last4", "last_4", "card_last4")
	merchantKeys     = aliases("supplier", "merchant", "description", "descripcion", "comercio", "proveedor", "concepto")
	amountKeys       = aliases("amount", "monto", "importe", "valor")
	rowKeys          = aliases("row", "source_row", "fila")
)

var keyFolder = strings.NewReplacer(" ", "_", "-", "_", "á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n")

func normKey(k string) string {
	return keyFolder.Replace(strings.ToLower(strings.TrimSpace(k)))
}

// classify maps a decoded value onto one of the RawExtraction variants.
func classify(v any) (models.RawExtraction, bool) {
	switch t := v.(type) {
	case []any:
		if isGroupList(t) {
			return models.GroupedByCard{Groups: groupsFromList(t)}, true
		}
		recs, ok := recordsFromList(t)
		if !ok {
			return nil, false
		}
		return models.FlatExtraction{Records: recs}, true

	case *object:
		if inner, ok := t.lookup(transactionsKeys); ok {
			switch in := inner.(type) {
			case []any:
				if isGroupList(in) {
					return models.GroupedByCard{Groups: groupsFromList(in)}, true
				}
				recs, ok := recordsFromList(in)
				if !ok {
					return nil, false
				}
				if name, ok := t.lookup(nameKeys); ok {
					for i := range recs {
						if recs[i].Representative == "" {
							recs[i].Representative = scalarText(name)
						}
					}
				}
				return models.FlatExtraction{Records: recs}, true
			case *object:
				return classify(in)
			}
		}
		if _, ok := t.lookup(amountKeys); ok {
			return models.FlatExtraction{Records: []models.RawRecord{recordFromObject(t)}}, true
		}
		return classifyKeyed(t)
	}
	return nil, false
}

// classifyKeyed handles {"Name": {...totals, transactions}} and
// {"Name": [records]}.
func classifyKeyed(o *object) (models.RawExtraction, bool) {
	if len(o.keys) == 0 {
		return nil, false
	}

	var groups []models.RepresentativeGroup
	withTotals := false
	for _, key := range o.keys {
		switch v := o.values[key].(type) {
		case *object:
			if !isGroup(v) {
				return nil, false
			}
			g := groupFromObject(v, key)
			if g.DeclaredTotal != nil {
				withTotals = true
			}
			groups = append(groups, g)
		case []any:
			recs, ok := recordsFromList(v)
			if !ok {
				return nil, false
			}
			groups = append(groups, models.RepresentativeGroup{Name: key, Transactions: recs})
		default:
			return nil, false
		}
	}

	if withTotals {
		return models.GroupedWithTotals{Groups: groups}, true
	}
	return models.GroupedByCard{Groups: groups}, true
}

func isGroup(o *object) bool {
	v, ok := o.lookup(transactionsKeys)
	if !ok {
		return false
	}
	_, isList := v.([]any)
	return isList
}

func isGroupList(arr []any) bool {
	for _, e := range arr {
		if o, ok := e.(*object); ok && isGroup(o) {
			return true
		}
	}
	return false
}

func groupsFromList(arr []any) []models.RepresentativeGroup {
	groups := make([]models.RepresentativeGroup, 0, len(arr))
	for _, e := range arr {
		if o, ok := e.(*object); ok && isGroup(o) {
			groups = append(groups, groupFromObject(o, ""))
		}
	}
	return groups
}

func groupFromObject(o *object, fallbackName string) models.RepresentativeGroup {
	g := models.RepresentativeGroup{Name: fallbackName}
	if name, ok := o.lookup(nameKeys); ok {
		if s := strings.TrimSpace(scalarText(name)); s != "" {
			g.Name = s
		}
	}
	if list, ok := o.lookup(transactionsKeys); ok {
		if arr, ok := list.([]any); ok {
			g.Transactions, _ = recordsFromList(arr)
		}
	}
	if total, ok := o.lookup(declaredKeys); ok {
		if d, err := currencyutils.ParseAmount(scalarText(total)); err == nil {
			g.DeclaredTotal = &d
		}
	}
	return g
}

// recordsFromList requires every element to be an object; anything else
// means the list is not a transaction list.
func recordsFromList(arr []any) ([]models.RawRecord, bool) {
	recs := make([]models.RawRecord, 0, len(arr))
	for _, e := range arr {
		o, ok := e.(*object)
		if !ok {
			return nil, false
		}
		recs = append(recs, recordFromObject(o))
	}
	return recs, true
}

func recordFromObject(o *object) models.RawRecord {
	get := func(keys map[string]bool) string {
		if v, ok := o.lookup(keys); ok {
			return strings.TrimSpace(scalarText(v))
		}
		return ""
	}

	rec := models.RawRecord{
		PostingDate:     get(postingKeys),
		TransactionDate: get(tranDateKeys),
		Account:         get(accountKeys),
		Merchant:        get(merchantKeys),
		Amount:          get(amountKeys),
		Representative:  get(nameKeys),
	}
	if s := get(rowKeys); s != "" {
		if n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimPrefix(s, "R"), "r")); err == nil && n >= 0 {
			rec.Row = models.RowRef(n)
		}
	}
	return rec
}

// scalarText renders a JSON scalar as text; containers and null become "".
func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case decimal.Decimal:
		return t.String()
	default:
		return ""
	}
}

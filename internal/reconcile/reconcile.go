// Package reconcile compares statement-declared totals with the sum of the
// extracted records. Findings are advisory: they are logged and reported but
// never change or block the extraction.
package reconcile

import (
	"github.com/shopspring/decimal"

	"fjacquet/card-expenses/internal/currencyutils"
	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
)

// CheckResult reconciles every group of an LLM result that declares a total.
// The computed side is always recomputed from the records.
func CheckResult(res *models.ExtractionResult, logger logging.Logger) []models.Discrepancy {
	if res == nil {
		return nil
	}
	logger = logging.OrDefault(logger)

	var out []models.Discrepancy
	for _, g := range res.Groups {
		if g.DeclaredTotal == nil {
			continue
		}
		computed := models.SumAmounts(g.Transactions)
		if d, ok := compare(g.Name, 0, *g.DeclaredTotal, computed); !ok {
			warn(logger, d)
			out = append(out, d)
		}
	}
	return out
}

// CheckBlocks reconciles tabular blocks that carried a total line against the
// records extracted from them.
func CheckBlocks(blocks []models.StatementBlock, records []models.RawRecord, logger logging.Logger) []models.Discrepancy {
	logger = logging.OrDefault(logger)

	byBlock := map[int][]models.RawRecord{}
	for _, r := range records {
		byBlock[r.Block] = append(byBlock[r.Block], r)
	}

	var out []models.Discrepancy
	for _, b := range blocks {
		if b.DeclaredTotal == nil {
			continue
		}
		computed := models.SumAmounts(byBlock[b.Index])
		if d, ok := compare(b.Representative, b.Index, *b.DeclaredTotal, computed); !ok {
			warn(logger, d)
			out = append(out, d)
		}
	}
	return out
}

func compare(name string, block int, declared, computed decimal.Decimal) (models.Discrepancy, bool) {
	d := models.Discrepancy{
		Representative: name,
		Block:          block,
		Declared:       declared,
		Computed:       computed,
		Difference:     declared.Abs().Sub(computed.Abs()),
	}
	return d, currencyutils.WithinTolerance(declared, computed)
}

func warn(logger logging.Logger, d models.Discrepancy) {
	logger.Warn("Declared total does not match extracted transactions",
		logging.Field{Key: logging.FieldRepresentative, Value: d.Representative},
		logging.Field{Key: logging.FieldBlock, Value: d.Block},
		logging.Field{Key: "declared", Value: d.Declared.StringFixed(2)},
		logging.Field{Key: "computed", Value: d.Computed.StringFixed(2)})
}

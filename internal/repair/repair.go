// Package repair turns raw model output into a canonical
// models.ExtractionResult. Responses are tried against an ordered chain of
// strategies, from a plain decode to regex salvage of individual records.
// Parse never panics and returns nil only when every strategy failed.
package repair

import (
	"fmt"

	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/reconcile"
)

// DefaultStrategies is the repair order.
func DefaultStrategies() []Strategy {
	return []Strategy{DirectParse{}, BraceRepair{}, CharacterRepair{}, RegexSalvage{}}
}

// Repairer runs the strategy chain.
type Repairer struct {
	strategies []Strategy
	logger     logging.Logger
}

// New creates a repairer with the default chain.
func New(logger logging.Logger) *Repairer {
	return NewWithStrategies(DefaultStrategies(), logger)
}

// NewWithStrategies creates a repairer with a custom chain.
func NewWithStrategies(strategies []Strategy, logger logging.Logger) *Repairer {
	return &Repairer{strategies: strategies, logger: logging.OrDefault(logger)}
}

// Parse returns the canonical result for raw, or nil if no strategy could
// read it. The advisory reconciliation runs on every successful parse and its
// findings are attached to the result.
func (r *Repairer) Parse(raw string) *models.ExtractionResult {
	res := r.Decode(raw)
	if res != nil {
		res.Discrepancies = reconcile.CheckResult(res, r.logger)
	}
	return res
}

// Decode is Parse without reconciliation, for callers that reconcile only
// after combining several responses.
func (r *Repairer) Decode(raw string) (res *models.ExtractionResult) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Repair strategy panicked", logging.Field{Key: logging.FieldReason, Value: fmt.Sprint(p)})
			res = nil
		}
	}()

	for i, s := range r.strategies {
		v, ok := s.Apply(raw)
		if !ok {
			continue
		}
		shape, ok := classify(v)
		if !ok {
			r.logger.Debug("Decoded response has no recognizable shape",
				logging.Field{Key: logging.FieldStrategy, Value: s.Name()})
			continue
		}

		res = shape.Canonical()
		res.Strategy = s.Name()
		if i > 0 {
			r.logger.Debug("Response needed repair",
				logging.Field{Key: logging.FieldStrategy, Value: s.Name()},
				logging.Field{Key: "shape", Value: shape.Shape()},
				logging.Field{Key: logging.FieldCount, Value: res.TransactionCount()})
		}
		return res
	}

	r.logger.Warn("No repair strategy could read the response",
		logging.Field{Key: "length", Value: len(raw)})
	return nil
}

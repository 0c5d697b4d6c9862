// Package pipeline wires the extractors together for one statement file:
// text extraction, the direct tabular path for spreadsheets, the LLM path
// with its chunked fallback, and normalization. Only unreadable files and
// persistence failures surface as errors; every other failure degrades to the
// next fallback and, at worst, to an empty result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"fjacquet/card-expenses/internal/carddirectory"
	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/normalizer"
	"fjacquet/card-expenses/internal/parsererror"
	"fjacquet/card-expenses/internal/tabular"
	"fjacquet/card-expenses/internal/textextract"
)

// ErrLLMDisabled is returned when a document needs the LLM path but no
// completion client is configured.
var ErrLLMDisabled = errors.New("document needs LLM extraction but no LLM client is configured")

// LLMExtractor is the part of the orchestrator the pipeline uses.
type LLMExtractor interface {
	ExtractAll(ctx context.Context, text string) *models.ExtractionResult
	ExtractChunked(ctx context.Context, text string) *models.ExtractionResult
}

// Persistence is the storage collaborator. Save only writes; the remaining
// operations serve the review commands.
type Persistence interface {
	InsertStatement(ctx context.Context, st *models.Statement) (string, error)
	InsertTransactions(ctx context.Context, statementID string, txs []models.Transaction) error
	GetStatement(ctx context.Context, id string) (*models.Statement, error)
	DeleteStatement(ctx context.Context, id string) error
	UpdateTransaction(ctx context.Context, id string, patch models.TransactionPatch) error
}

// Fallback stages recorded on a Result.
const (
	StageTabular = "tabular"
	StageLLM     = "llm"
	StageChunked = "chunked"
	StageEmpty   = "empty"
)

// Options tunes a Processor.
type Options struct {
	Currency string
	// PreferLLM sends spreadsheets straight to the LLM path.
	PreferLLM bool
	Now       func() time.Time
}

// Result is everything one Process call produced.
type Result struct {
	Statement     models.Statement
	Transactions  []models.Transaction
	Blocks        []models.StatementBlock
	Discrepancies []models.Discrepancy
	Diagnostics   normalizer.Diagnostics
	// Stage is the step that produced the records.
	Stage string
	// Strategy is the repair strategy that read the model reply, if any.
	Strategy string
}

// Processor runs the pipeline. It holds no per-file state.
type Processor struct {
	extractor textextract.Extractor
	tabular   *tabular.Extractor
	llm       LLMExtractor
	directory *carddirectory.Directory
	opts      Options
	logger    logging.Logger
}

// New creates a Processor. llm may be nil, in which case documents that need
// the LLM path fail with ErrLLMDisabled.
func New(extractor textextract.Extractor, directory *carddirectory.Directory, llm LLMExtractor, opts Options, logger logging.Logger) *Processor {
	logger = logging.OrDefault(logger)
	if directory == nil {
		directory = carddirectory.Default()
	}
	return &Processor{
		extractor: extractor,
		tabular:   tabular.New(directory, logger),
		llm:       llm,
		directory: directory,
		opts:      opts,
		logger:    logger,
	}
}

// Process extracts the transactions of one file.
func (p *Processor) Process(ctx context.Context, path string) (*Result, error) {
	log := p.logger.WithField(logging.FieldFile, path)
	start := time.Now()

	doc, err := p.extractor.Extract(path)
	if err != nil {
		return nil, err
	}

	res := &Result{Statement: models.Statement{
		Filename:   filepath.Base(path),
		SourceKind: doc.Kind,
	}}

	if doc.Kind == models.SourceSpreadsheet && !p.opts.PreferLLM {
		done, err := p.processTabular(doc, res)
		if err != nil {
			return nil, err
		}
		if done {
			p.finish(log, res, start)
			return res, nil
		}
		log.Info("Falling back to LLM extraction")
	}

	if err := p.processLLM(ctx, doc, res); err != nil {
		return nil, err
	}
	p.finish(log, res, start)
	return res, nil
}

// processTabular reports false when the LLM path should take over.
func (p *Processor) processTabular(doc *models.Document, res *Result) (bool, error) {
	tab, err := p.tabular.Extract(doc.Rows)
	if err != nil {
		var colErr *parsererror.ColumnDetectionError
		if errors.As(err, &colErr) {
			p.logger.WithError(err).Warn("Tabular extraction failed",
				logging.Field{Key: logging.FieldFile, Value: doc.Path})
			return false, nil
		}
		return false, fmt.Errorf("tabular extraction: %w", err)
	}

	txs, diag := normalizer.Normalize(tab.Records, models.PathTabular, p.normalizerOptions(doc))
	res.Statement.Path = models.PathTabular
	res.Stage = StageTabular
	res.Blocks = tab.Blocks
	res.Discrepancies = tab.Discrepancies
	res.Transactions = txs
	res.Diagnostics = diag
	return true, nil
}

func (p *Processor) processLLM(ctx context.Context, doc *models.Document, res *Result) error {
	if p.llm == nil {
		return ErrLLMDisabled
	}
	res.Statement.Path = models.PathLLM

	res.Stage = StageLLM
	extracted := p.llm.ExtractAll(ctx, doc.Text)
	if extracted.IsEmpty() {
		p.logger.Warn("LLM extraction returned nothing, retrying in chunks",
			logging.Field{Key: logging.FieldFile, Value: doc.Path})
		res.Stage = StageChunked
		extracted = p.llm.ExtractChunked(ctx, doc.Text)
	}
	if extracted.IsEmpty() {
		p.logger.Warn("No transactions found in statement",
			logging.Field{Key: logging.FieldFile, Value: doc.Path})
		res.Stage = StageEmpty
		return nil
	}

	txs, diag := normalizer.Normalize(extracted.Records(), models.PathLLM, p.normalizerOptions(doc))
	res.Strategy = extracted.Strategy
	res.Discrepancies = extracted.Discrepancies
	res.Transactions = txs
	res.Diagnostics = diag
	return nil
}

func (p *Processor) normalizerOptions(doc *models.Document) normalizer.Options {
	return normalizer.Options{
		Currency:      p.opts.Currency,
		Directory:     p.directory,
		OriginalDates: doc.OriginalDates,
		SourceText:    doc.Text,
		Now:           p.opts.Now,
		Logger:        p.logger,
	}
}

func (p *Processor) finish(log logging.Logger, res *Result, start time.Time) {
	res.Statement.TransactionCount = len(res.Transactions)
	log.Info("Statement processed",
		logging.Field{Key: logging.FieldSourceKind, Value: string(res.Statement.SourceKind)},
		logging.Field{Key: "stage", Value: res.Stage},
		logging.Field{Key: logging.FieldCount, Value: len(res.Transactions)},
		logging.Field{Key: "discrepancies", Value: len(res.Discrepancies)},
		logging.Field{Key: logging.FieldDuration, Value: time.Since(start).Milliseconds()})
}

// Save hands a result to persistence and returns the new statement id.
func (p *Processor) Save(ctx context.Context, store Persistence, res *Result) (string, error) {
	st := res.Statement
	id, err := store.InsertStatement(ctx, &st)
	if err != nil {
		return "", fmt.Errorf("persist statement: %w", err)
	}
	if err := store.InsertTransactions(ctx, id, res.Transactions); err != nil {
		// No half-saved statements.
		if derr := store.DeleteStatement(ctx, id); derr != nil {
			p.logger.WithError(derr).Warn("Failed to remove partially saved statement",
				logging.Field{Key: logging.FieldStatementID, Value: id})
		}
		return "", fmt.Errorf("persist transactions: %w", err)
	}
	res.Statement.ID = id
	res.Statement.UploadedAt = st.UploadedAt
	for i := range res.Transactions {
		res.Transactions[i].StatementID = id
	}

	p.logger.Info("Statement saved",
		logging.Field{Key: logging.FieldStatementID, Value: id},
		logging.Field{Key: logging.FieldCount, Value: len(res.Transactions)})
	return id, nil
}

// UserError wraps err with the wording the CLI reports a failed statement in.
// The cause stays reachable through errors.Is and errors.As.
func UserError(err error) error {
	return fmt.Errorf("could not process this statement: %w", err)
}

// UserMessage renders err the way the CLI reports a failed statement.
func UserMessage(err error) string {
	return UserError(err).Error()
}

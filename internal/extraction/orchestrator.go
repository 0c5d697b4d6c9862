// Package extraction drives the LLM path: it builds the extraction prompt,
// splits large statements, retries failed calls with exponential backoff and
// hands every reply to the repairer. Total failure yields an empty result,
// never an error and never fabricated data.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fjacquet/card-expenses/internal/carddirectory"
	"fjacquet/card-expenses/internal/llm"
	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/models"
	"fjacquet/card-expenses/internal/parsererror"
	"fjacquet/card-expenses/internal/reconcile"
	"fjacquet/card-expenses/internal/repair"
)

// Options configures the orchestrator. It is built from configuration by the
// caller; the package reads no globals.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int

	MaxRetries int
	BaseDelay  time.Duration

	SplitThreshold int
	SplitAnchor    string
	ChunkSize      int
}

// DefaultOptions returns the documented defaults. Model is left empty and
// must be supplied.
func DefaultOptions() Options {
	return Options{
		Temperature:    0.1,
		MaxTokens:      8000,
		MaxRetries:     3,
		BaseDelay:      2 * time.Second,
		SplitThreshold: 24000,
		ChunkSize:      8000,
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Orchestrator runs extraction calls sequentially.
type Orchestrator struct {
	completer llm.Completer
	repairer  *repair.Repairer
	directory *carddirectory.Directory
	opts      Options
	logger    logging.Logger
	sleep     SleepFunc
}

// New creates an orchestrator. A nil directory means the built-in table.
func New(completer llm.Completer, directory *carddirectory.Directory, opts Options, logger logging.Logger) *Orchestrator {
	logger = logging.OrDefault(logger)
	if directory == nil {
		directory = carddirectory.Default()
	}
	def := DefaultOptions()
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = def.ChunkSize
	}
	if opts.SplitThreshold <= 0 {
		opts.SplitThreshold = def.SplitThreshold
	}
	return &Orchestrator{
		completer: completer,
		repairer:  repair.New(logger),
		directory: directory,
		opts:      opts,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// WithSleep replaces the backoff wait, mainly for tests.
func (o *Orchestrator) WithSleep(fn SleepFunc) *Orchestrator {
	o.sleep = fn
	return o
}

// Options returns the effective options.
func (o *Orchestrator) Options() Options {
	return o.opts
}

// ExtractAll extracts the whole text, splitting it in two when it exceeds the
// split threshold. Groups from both parts are concatenated, not merged, so a
// representative may appear twice. A part that fails after every retry
// contributes nothing; when all parts fail the result is empty.
func (o *Orchestrator) ExtractAll(ctx context.Context, text string) *models.ExtractionResult {
	parts := []string{text}
	if len(text) > o.opts.SplitThreshold {
		if first, second := SplitAtAnchor(text, o.opts.SplitAnchor); second != "" {
			parts = []string{first, second}
			o.logger.Info("Statement split for extraction",
				logging.Field{Key: "length", Value: len(text)},
				logging.Field{Key: "first_part", Value: len(first)},
				logging.Field{Key: "second_part", Value: len(second)})
		}
	}
	return o.run(ctx, parts, logging.FieldPart)
}

// ExtractChunked re-processes text in slices of ChunkSize, cut on line
// boundaries. It is the fallback after ExtractAll came back empty, so a text
// that fits in one chunk is not sent again.
func (o *Orchestrator) ExtractChunked(ctx context.Context, text string) *models.ExtractionResult {
	chunks := Chunk(text, o.opts.ChunkSize)
	if len(chunks) <= 1 {
		o.logger.Debug("Text fits in one chunk, skipping chunked extraction")
		return models.NewEmptyResult()
	}
	o.logger.Info("Running chunked extraction", logging.Field{Key: logging.FieldCount, Value: len(chunks)})
	return o.run(ctx, chunks, logging.FieldChunk)
}

func (o *Orchestrator) run(ctx context.Context, parts []string, label string) *models.ExtractionResult {
	out := models.NewEmptyResult()
	for i, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		res, err := o.extractPart(ctx, part, i+1, len(parts))
		if err != nil {
			o.logger.WithError(err).Warn("Extraction part gave up",
				logging.Field{Key: label, Value: i + 1})
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if out.Strategy == "" {
			out.Strategy = res.Strategy
		}
		out.Append(res)
	}
	// A representative's section may straddle parts, so totals are checked
	// on the merged groups; Groups themselves stay concatenated.
	out.Discrepancies = reconcile.CheckResult(out.MergeByKey(), o.logger)
	return out
}

var errUnreadableResponse = errors.New("response could not be repaired")

// extractPart sends one prompt, retrying on completer errors and unreadable
// replies. The wait after failed attempt n is BaseDelay * 2^(n-1).
func (o *Orchestrator) extractPart(ctx context.Context, text string, part, parts int) (*models.ExtractionResult, error) {
	req := llm.Request{
		Model:       o.opts.Model,
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: BuildPrompt(o.directory, text, part, parts)},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= o.opts.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := o.opts.BaseDelay * time.Duration(1<<(attempt-2))
			if err := o.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		raw, err := o.completer.Complete(ctx, req)
		if err == nil {
			if res := o.repairer.Decode(raw); res != nil {
				o.logger.Debug("Extraction part parsed",
					logging.Field{Key: logging.FieldPart, Value: part},
					logging.Field{Key: logging.FieldAttempt, Value: attempt},
					logging.Field{Key: logging.FieldStrategy, Value: res.Strategy},
					logging.Field{Key: logging.FieldCount, Value: res.TransactionCount()})
				return res, nil
			}
			err = errUnreadableResponse
		}

		lastErr = err
		var llmErr *parsererror.LLMError
		status := 0
		if errors.As(err, &llmErr) {
			status = llmErr.StatusCode
		}
		o.logger.WithError(err).Warn("Extraction attempt failed",
			logging.Field{Key: logging.FieldPart, Value: part},
			logging.Field{Key: logging.FieldAttempt, Value: attempt},
			logging.Field{Key: logging.FieldStatus, Value: status})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("part %d/%d failed after %d attempts: %w", part, parts, o.opts.MaxRetries, lastErr)
}

// Package container provides dependency injection for the card-expenses application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"fmt"
	"io"
	"sync"

	"fjacquet/card-expenses/internal/carddirectory"
	"fjacquet/card-expenses/internal/config"
	"fjacquet/card-expenses/internal/extraction"
	"fjacquet/card-expenses/internal/llm"
	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/pipeline"
	"fjacquet/card-expenses/internal/report"
	"fjacquet/card-expenses/internal/store"
	"fjacquet/card-expenses/internal/textextract"
)

// Overrides replaces selected dependencies, mainly for tests. Zero fields
// are built from configuration.
type Overrides struct {
	Logger    logging.Logger
	Completer llm.Completer
	Extractor textextract.Extractor
}

// Container holds all application dependencies and provides methods to access them.
// All fields are private; the store is opened on first use so commands that
// never persist do not create a database file.
type Container struct {
	logger       logging.Logger
	config       *config.Config
	directory    *carddirectory.Directory
	extractor    textextract.Extractor
	completer    llm.Completer
	orchestrator *extraction.Orchestrator
	processor    *pipeline.Processor
	reports      *report.ReportGenerator

	storeOnce sync.Once
	store     *store.Store
	storeErr  error
}

// NewContainer creates and wires all application dependencies from cfg.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	return NewContainerWith(ctx, cfg, Overrides{})
}

// NewContainerWith is NewContainer with some dependencies supplied by the caller.
func NewContainerWith(ctx context.Context, cfg *config.Config, o Overrides) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	logger := o.Logger
	if logger == nil {
		logger = cfg.Logger()
	}

	directory := carddirectory.Default()
	if cfg.Directory.File != "" {
		loaded, err := carddirectory.Load(cfg.Directory.File)
		if err != nil {
			return nil, err
		}
		directory = loaded
	}

	extractor := o.Extractor
	if extractor == nil {
		extractor = textextract.NewFactory(cfg.Extraction.PDFEngine, logger)
	}

	completer := o.Completer
	if completer == nil && cfg.LLMReady() {
		clientCfg, err := cfg.ClientConfig()
		if err != nil {
			return nil, err
		}
		completer, err = llm.New(ctx, clientCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
	}

	c := &Container{
		logger:    logger,
		config:    cfg,
		directory: directory,
		extractor: extractor,
		completer: completer,
		reports:   report.NewReportGenerator(logger),
	}

	// A nil *Orchestrator must not reach the pipeline as a non-nil interface.
	var llmExtractor pipeline.LLMExtractor
	if completer != nil {
		c.orchestrator = extraction.New(completer, directory, cfg.ExtractionOptions(), logger)
		llmExtractor = c.orchestrator
		logger.Info("LLM extraction enabled", logging.Field{Key: logging.FieldProvider, Value: cfg.LLM.Provider})
	} else {
		logger.Info("LLM extraction disabled; only spreadsheets with detectable columns can be read")
	}

	c.processor = pipeline.New(extractor, directory, llmExtractor, cfg.PipelineOptions(), logger)

	logger.Debug("Container initialized",
		logging.Field{Key: logging.FieldCount, Value: len(directory.Entries())})
	return c, nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetDirectory returns the card directory.
func (c *Container) GetDirectory() *carddirectory.Directory {
	return c.directory
}

// GetOrchestrator returns the LLM orchestrator, or nil when the LLM is disabled.
func (c *Container) GetOrchestrator() *extraction.Orchestrator {
	return c.orchestrator
}

// GetProcessor returns the statement pipeline.
func (c *Container) GetProcessor() *pipeline.Processor {
	return c.processor
}

// GetReportGenerator returns the report renderer.
func (c *Container) GetReportGenerator() *report.ReportGenerator {
	return c.reports
}

// GetStore opens the database on first call.
func (c *Container) GetStore() (*store.Store, error) {
	c.storeOnce.Do(func() {
		c.store, c.storeErr = store.Open(c.config.Store.Path, c.logger)
	})
	return c.store, c.storeErr
}

// Close releases the database and the LLM client.
func (c *Container) Close() error {
	var firstErr error
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			firstErr = err
		}
	}
	if closer, ok := c.completer.(io.Closer); ok {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

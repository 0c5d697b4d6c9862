package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fjacquet/card-expenses/internal/extraction"
	"fjacquet/card-expenses/internal/llm"
	"fjacquet/card-expenses/internal/logging"
	"fjacquet/card-expenses/internal/pipeline"
	"fjacquet/card-expenses/internal/validation"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from a .env file in the working directory or its
// parent. Variables already set in the environment win. It returns the file
// loaded, or "" when none exists.
func LoadEnv(logger logging.Logger) string {
	logger = logging.OrDefault(logger)

	for _, candidate := range []string{".env", filepath.Join("..", ".env")} {
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if err := validation.IsValidFilePermissions(info.Mode()); err != nil {
			logger.Warn("Environment file is readable by other users", logging.Field{Key: logging.FieldFile, Value: candidate},
				logging.Field{Key: logging.FieldReason, Value: err.Error()})
		}
		if err := godotenv.Load(candidate); err != nil {
			logger.WithError(err).Warn("Error loading .env file", logging.Field{Key: logging.FieldFile, Value: candidate})
			return ""
		}
		logger.Debug("Loaded environment variables", logging.Field{Key: logging.FieldFile, Value: candidate})
		return candidate
	}
	return ""
}

// Logger builds the logging adapter described by the log section.
func (c *Config) Logger() logging.Logger {
	return logging.NewLogrusAdapterFromLogger(ConfigureLoggingFromConfig(c))
}

// LLMReady reports whether an LLM client can be built.
func (c *Config) LLMReady() bool {
	return c.LLM.Enabled && strings.TrimSpace(c.LLM.APIKey) != ""
}

// ErrLLMKeyMissing means the LLM is enabled but no key was supplied.
var ErrLLMKeyMissing = errors.New(APIKeyEnv + " is not set")

// ClientConfig returns the settings for llm.New.
func (c *Config) ClientConfig() (llm.ClientConfig, error) {
	if !c.LLMReady() {
		return llm.ClientConfig{}, ErrLLMKeyMissing
	}
	return llm.ClientConfig{
		Provider: strings.ToLower(c.LLM.Provider),
		Endpoint: c.LLM.Endpoint,
		APIKey:   c.LLM.APIKey,
		Timeout:  time.Duration(c.LLM.TimeoutSeconds) * time.Second,
	}, nil
}

// ExtractionOptions returns the orchestrator settings.
func (c *Config) ExtractionOptions() extraction.Options {
	opts := extraction.DefaultOptions()
	opts.Model = c.LLM.Model
	opts.Temperature = float32(c.LLM.Temperature)
	if c.LLM.MaxTokens > 0 {
		opts.MaxTokens = c.LLM.MaxTokens
	}
	if c.LLM.MaxRetries > 0 {
		opts.MaxRetries = c.LLM.MaxRetries
	}
	opts.BaseDelay = time.Duration(c.LLM.BaseDelayMs) * time.Millisecond
	if c.Extraction.SplitThreshold > 0 {
		opts.SplitThreshold = c.Extraction.SplitThreshold
	}
	opts.SplitAnchor = c.Extraction.SplitAnchor
	if c.Extraction.ChunkSize > 0 {
		opts.ChunkSize = c.Extraction.ChunkSize
	}
	return opts
}

// PipelineOptions returns the processor settings.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Currency:  strings.ToUpper(strings.TrimSpace(c.Extraction.DefaultCurrency)),
		PreferLLM: c.Extraction.PreferLLMForSpreadsheets,
	}
}

// CSVDelimiter returns the export delimiter as a rune.
func (c *Config) CSVDelimiter() rune {
	if c.CSV.Delimiter == "" {
		return ','
	}
	return rune(c.CSV.Delimiter[0])
}

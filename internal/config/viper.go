// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CARDEXP_LOG_LEVEL.
const EnvPrefix = "CARDEXP"

// APIKeyEnv is the unprefixed variable the LLM key is read from.
const APIKeyEnv = "LLM_API_KEY"

// LogConfig controls the logrus adapter.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// LLMConfig describes the completion service.
type LLMConfig struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	Provider       string  `mapstructure:"provider" yaml:"provider"`
	Endpoint       string  `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey         string  `mapstructure:"api_key" yaml:"-"` // Never serialize API key
	Model          string  `mapstructure:"model" yaml:"model"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries"`
	BaseDelayMs    int     `mapstructure:"base_delay_ms" yaml:"base_delay_ms"`
}

// ExtractionConfig tunes the extraction pipeline.
type ExtractionConfig struct {
	DefaultCurrency          string `mapstructure:"default_currency" yaml:"default_currency"`
	SplitThreshold           int    `mapstructure:"split_threshold" yaml:"split_threshold"`
	SplitAnchor              string `mapstructure:"split_anchor" yaml:"split_anchor"`
	ChunkSize                int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	PreferLLMForSpreadsheets bool   `mapstructure:"prefer_llm_for_spreadsheets" yaml:"prefer_llm_for_spreadsheets"`
	PDFEngine                string `mapstructure:"pdf_engine" yaml:"pdf_engine"`
}

// DirectoryConfig points at the card directory YAML. Empty means the built-in table.
type DirectoryConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// CSVConfig controls the transaction export.
type CSVConfig struct {
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
}

// Config represents the complete application configuration
type Config struct {
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
	Directory  DirectoryConfig  `mapstructure:"directory" yaml:"directory"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	CSV        CSVConfig        `mapstructure:"csv" yaml:"csv"`
}

// ConfigError reports one invalid setting.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Reason)
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	return InitializeConfigFrom("")
}

// InitializeConfigFrom loads configuration, reading file when it is not empty
// instead of searching the default locations.
func InitializeConfigFrom(file string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.card-expenses")
		v.AddConfigPath(".card-expenses")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// 5. The API key is never prefixed and has no default
	if err := v.BindEnv("llm.api_key", APIKeyEnv); err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", APIKeyEnv, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 8000)
	v.SetDefault("llm.timeout_seconds", 120)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.base_delay_ms", 2000)

	v.SetDefault("extraction.default_currency", "USD")
	v.SetDefault("extraction.split_threshold", 24000)
	v.SetDefault("extraction.split_anchor", "")
	v.SetDefault("extraction.chunk_size", 8000)
	v.SetDefault("extraction.prefer_llm_for_spreadsheets", false)
	v.SetDefault("extraction.pdf_engine", "native")

	v.SetDefault("directory.file", "")
	v.SetDefault("store.path", "data/card-expenses.db")
	v.SetDefault("csv.delimiter", ",")
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return &ConfigError{Key: "log.level", Reason: fmt.Sprintf("invalid log level %q", config.Log.Level)}
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return &ConfigError{Key: "log.format", Reason: fmt.Sprintf("invalid log format %q (must be 'text' or 'json')", config.Log.Format)}
	}

	if len(config.CSV.Delimiter) != 1 {
		return &ConfigError{Key: "csv.delimiter", Reason: fmt.Sprintf("must be a single character, got %q", config.CSV.Delimiter)}
	}

	switch strings.ToLower(config.Extraction.PDFEngine) {
	case "native", "pdftotext":
	default:
		return &ConfigError{Key: "extraction.pdf_engine", Reason: fmt.Sprintf("unknown engine %q (must be 'native' or 'pdftotext')", config.Extraction.PDFEngine)}
	}
	if len(strings.TrimSpace(config.Extraction.DefaultCurrency)) != 3 {
		return &ConfigError{Key: "extraction.default_currency", Reason: fmt.Sprintf("must be a three letter code, got %q", config.Extraction.DefaultCurrency)}
	}
	if config.Extraction.ChunkSize < 500 {
		return &ConfigError{Key: "extraction.chunk_size", Reason: fmt.Sprintf("must be at least 500, got %d", config.Extraction.ChunkSize)}
	}
	if config.Extraction.SplitThreshold < config.Extraction.ChunkSize {
		return &ConfigError{Key: "extraction.split_threshold", Reason: fmt.Sprintf("must not be below chunk_size, got %d", config.Extraction.SplitThreshold)}
	}

	if config.LLM.Enabled {
		switch strings.ToLower(config.LLM.Provider) {
		case "openai", "gemini":
		default:
			return &ConfigError{Key: "llm.provider", Reason: fmt.Sprintf("unknown provider %q", config.LLM.Provider)}
		}
		if strings.TrimSpace(config.LLM.Model) == "" {
			return &ConfigError{Key: "llm.model", Reason: "required when the LLM is enabled"}
		}
		if config.LLM.MaxRetries < 1 || config.LLM.MaxRetries > 10 {
			return &ConfigError{Key: "llm.max_retries", Reason: fmt.Sprintf("must be between 1 and 10, got %d", config.LLM.MaxRetries)}
		}
		if config.LLM.TimeoutSeconds < 1 || config.LLM.TimeoutSeconds > 600 {
			return &ConfigError{Key: "llm.timeout_seconds", Reason: fmt.Sprintf("must be between 1 and 600, got %d", config.LLM.TimeoutSeconds)}
		}
		if config.LLM.Temperature < 0 || config.LLM.Temperature > 2 {
			return &ConfigError{Key: "llm.temperature", Reason: fmt.Sprintf("must be between 0 and 2, got %g", config.LLM.Temperature)}
		}
		if config.LLM.BaseDelayMs < 0 {
			return &ConfigError{Key: "llm.base_delay_ms", Reason: "must not be negative"}
		}
	}

	return nil
}

// ConfigureLoggingFromConfig configures logging based on the Config struct
func ConfigureLoggingFromConfig(config *Config) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.ToLower(config.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// Package root contains the root command for the application
package root

import (
	"context"
	"fmt"

	"fjacquet/card-expenses/internal/config"
	"fjacquet/card-expenses/internal/container"
	"fjacquet/card-expenses/internal/logging"

	"github.com/spf13/cobra"
)

// CommonFlags represents the flags that are common to multiple commands
type CommonFlags struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
	StorePath  string
}

var (
	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "card-expenses",
		Short: "Extract corporate card expenses from statement PDFs and spreadsheets.",
		Long: `card-expenses reads corporate card statements (PDF, XLSX, XLS, CSV), extracts
every transaction grouped by cardholder, and stores them for review.

Spreadsheets with recognizable columns are read directly; everything else is
read by an LLM whose replies are repaired and reconciled against the totals
printed on the statement.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appContainer == nil {
				return
			}
			if err := appContainer.Close(); err != nil {
				appContainer.GetLogger().WithError(err).Warn("Failed to close resources")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// SharedFlags are bound to the persistent flags of Cmd.
	SharedFlags = CommonFlags{}

	appConfig    *config.Config
	appContainer *container.Container
)

// Init initializes the root command and all flags
func Init() {
	flags := Cmd.PersistentFlags()
	flags.StringVar(&SharedFlags.ConfigFile, "config", "", "Config file (default: ./config.yaml, .card-expenses/, $HOME/.card-expenses/)")
	flags.StringVar(&SharedFlags.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&SharedFlags.LogFormat, "log-format", "", "Log format (text or json)")
	flags.StringVar(&SharedFlags.StorePath, "store", "", "SQLite database path")
}

func setup(cmd *cobra.Command, args []string) error {
	config.LoadEnv(nil)

	cfg, err := config.InitializeConfigFrom(SharedFlags.ConfigFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, SharedFlags)

	c, err := container.NewContainer(Context(cmd), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	logging.SetLogger(c.GetLogger())
	appConfig = cfg
	appContainer = c
	return nil
}

func applyFlagOverrides(cfg *config.Config, flags CommonFlags) {
	if flags.LogLevel != "" {
		cfg.Log.Level = flags.LogLevel
	}
	if flags.LogFormat != "" {
		cfg.Log.Format = flags.LogFormat
	}
	if flags.StorePath != "" {
		cfg.Store.Path = flags.StorePath
	}
}

// SetContainer installs an already built container. Commands run through
// Execute build their own; tests use this to inject fakes.
func SetContainer(c *container.Container) {
	appContainer = c
	if c != nil {
		appConfig = c.GetConfig()
	}
}

// GetContainer returns the application container, nil before setup ran.
func GetContainer() *container.Container {
	return appContainer
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return appConfig
}

// GetLogger returns the configured logger, or the default one before setup.
func GetLogger() logging.Logger {
	if appContainer != nil {
		return appContainer.GetLogger()
	}
	return logging.GetLogger()
}

// Context returns the command context, never nil.
func Context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Package cmd defines the parley command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Conversational AI backend with tool orchestration",
	Long: `Parley is a conversational AI backend. It drives multi-round
model/tool turns, persists conversations as resumable checkpoints, and
streams turn progress to clients over Server-Sent Events.

Run 'parley serve' to start the HTTP API, or 'parley ask' for a
one-shot question from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads and validates the application configuration, and
// builds the logger it describes.
func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{
		Level:  log.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})
	return cfg, logger, nil
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/internal/app"
	"github.com/parleyhq/parley/internal/orchestrator"
)

var askCheckpointID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question from the terminal",
	Long: `Ask runs a single turn and streams the answer to stdout.
Tool calls are reported on stderr as they happen.

Pass --checkpoint to continue an existing conversation; without it a
new thread is created and its checkpoint ID is printed at the end.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().StringVar(&askCheckpointID, "checkpoint", "", "checkpoint ID of the conversation to continue")
	rootCmd.AddCommand(askCmd)
}

func runAsk(parent context.Context, question string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.Setup(parent, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	checkpointID := askCheckpointID
	var turnErr error

	for ev := range a.Orchestrator.RunTurn(parent, checkpointID, question) {
		switch ev.Type {
		case orchestrator.EventCheckpoint:
			checkpointID = ev.ThreadID
		case orchestrator.EventContent:
			fmt.Print(ev.Text)
		case orchestrator.EventToolStart:
			fmt.Fprintf(os.Stderr, "[tool] %s...\n", ev.Call.Name)
		case orchestrator.EventError:
			turnErr = ev.Err
		}
	}
	fmt.Println()

	if turnErr != nil {
		return fmt.Errorf("turn failed: %w", turnErr)
	}
	fmt.Printf("checkpoint: %s\n", checkpointID)
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"loginwatch/logger"
)

var (
	historyConfigFile string
	historyLimit      int
	historyOffset     int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past probe runs",
	RunE:  listHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the attempts of one past run",
	Args:  cobra.ExactArgs(1),
	RunE:  showHistory,
}

func init() {
	historyCmd.PersistentFlags().StringVarP(&historyConfigFile, "config", "c", "", "config file path")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to list")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "runs to skip")
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func listHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := LoadConfig(historyConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is not enabled in configuration")
	}

	log := logger.NewLogrusLogger(cfg.Log.Level)
	store, err := openHistoryStore(cfg.History, log)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}

	runs, err := store.ListRuns(ctx, historyLimit, historyOffset)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	for _, run := range runs {
		fmt.Printf("%s  %s  %s  %s  success=%d invalid=%d unknown=%d error=%d\n",
			run.ID,
			run.StartTime.Format("2006-01-02 15:04:05"),
			run.Status,
			run.BaseURL,
			run.SuccessCount,
			run.FailInvalidCount,
			run.FailUnknownCount,
			run.ErrorCount,
		)
	}
	return nil
}

func showHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	runID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}

	cfg, err := LoadConfig(historyConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is not enabled in configuration")
	}

	log := logger.NewLogrusLogger(cfg.Log.Level)
	store, err := openHistoryStore(cfg.History, log)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	fmt.Printf("run %s against %s (%s)\n", run.ID, run.BaseURL, run.Status)

	attempts, err := store.ListAttemptsByRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to list attempts: %w", err)
	}
	for _, a := range attempts {
		fmt.Printf("  %s  %-12s  %dms  %s\n", a.Identity, a.Verdict, a.DurationMs, a.Reason)
	}
	return nil
}

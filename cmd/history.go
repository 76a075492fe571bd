package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/firmanjml/cs3-ext-flixhq/internal/history"
)

var (
	flagHistoryLimit int
	flagPrune        time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent resolutions",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Number of entries to show")
	historyCmd.Flags().DurationVar(&flagPrune, "prune", 0, "Delete entries older than this, e.g. 720h")
}

func historyRun(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	if flagPrune > 0 {
		n, err := store.Prune(cmd.Context(), time.Now().Add(-flagPrune))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Pruned %d entries.\n", n)
	}

	entries, err := store.Recent(cmd.Context(), flagHistoryLimit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	if wantJSON() {
		if entries == nil {
			entries = []history.Entry{}
		}
		return writeJSON(os.Stdout, entries)
	}

	if len(entries) == 0 {
		fmt.Println("No history entries found.")
		return nil
	}
	for _, line := range history.FormatForDisplay(entries) {
		fmt.Println(line)
	}
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turnabouthero/go-vgr-metrics/internal/report"
	"github.com/turnabouthero/go-vgr-metrics/internal/storage"
)

var showCmd = &cobra.Command{
	Use:   "show <name-prefix>",
	Short: "Show stored replay stats by name prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	prefix := args[0]

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	replay, err := db.GetReplayByPrefix(prefix)
	if err != nil {
		return fmt.Errorf("query replay: %w", err)
	}
	if replay == nil {
		fmt.Fprintf(os.Stderr, "No replay found with name prefix %q\n", prefix)
		return nil
	}

	stats, err := db.GetPlayerStats(replay.Name)
	if err != nil {
		return fmt.Errorf("get player stats: %w", err)
	}

	report.PrintMatchSummary(os.Stdout, *replay)
	report.PrintPlayerTable(stats)
	return nil
}

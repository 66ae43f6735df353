package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turnabouthero/go-vgr-metrics/internal/storage"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored replays",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	replays, err := db.ListReplays()
	if err != nil {
		return fmt.Errorf("list replays: %w", err)
	}
	if len(replays) == 0 {
		fmt.Fprintln(os.Stdout, "No replays stored yet. Run 'vgrmetrics decode <replay.0.vgr>' to add one.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-24s  %-19s  %6s  %8s  %-12s  %-18s  %7s\n",
		"NAME", "DECODED", "FRAMES", "DURATION", "WINNER", "METHOD", "PLAYERS")
	fmt.Fprintf(os.Stdout, "%-24s  %-19s  %6s  %8s  %-12s  %-18s  %7s\n",
		"────────────────────────", "───────────────────", "──────", "────────", "────────────", "──────────────────", "───────")
	for _, r := range replays {
		duration := "unknown"
		if r.Duration > 0 {
			total := int(r.Duration)
			duration = fmt.Sprintf("%d:%02d", total/60, total%60)
		}
		fmt.Fprintf(os.Stdout, "%-24s  %-19s  %6d  %8s  %-12s  %-18s  %7d\n",
			r.Name, r.DecodedAt, r.TotalFrames, duration, r.Winner, r.Method, r.PlayerCount)
	}
	return nil
}

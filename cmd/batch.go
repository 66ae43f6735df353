package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turnabouthero/go-vgr-metrics/internal/decoder"
	"github.com/turnabouthero/go-vgr-metrics/internal/storage"
	"github.com/turnabouthero/go-vgr-metrics/internal/truth"
)

var (
	batchWorkers   int
	batchTruthPath string
)

var batchCmd = &cobra.Command{
	Use:   "batch [replay-dir]",
	Short: "Decode every replay under a directory",
	Long:  "Decode every replay under a directory. Defaults to $VGR_REPLAY_DIR when no directory is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().IntVar(&batchWorkers, "workers", runtime.NumCPU(), "number of concurrent decode workers")
	batchCmd.Flags().StringVar(&batchTruthPath, "truth", "", "path to a verified match record JSON file")
}

func runBatch(cmd *cobra.Command, args []string) error {
	root, err := replayDirArg(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	set, err := truth.Load(batchTruthPath)
	if err != nil {
		return fmt.Errorf("load truth records: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	dec, err := decoder.New(cfg, newLogger())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := dec.DecodeDir(ctx, root, batchWorkers, decoder.Options{Truth: set})
	if err != nil {
		return fmt.Errorf("batch decode: %w", err)
	}

	decoded, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAILED %s: %v\n", r.Path, r.Err)
			continue
		}
		if err := persistResult(db, r.Result, set); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAILED %s: %v\n", r.Path, err)
			continue
		}
		decoded++
	}

	fmt.Fprintf(os.Stdout, "Decoded %d replays (%d failed). Run 'vgrmetrics list' to browse them.\n", decoded, failed)
	if failed > 0 && decoded == 0 {
		return fmt.Errorf("all %d replays failed", failed)
	}
	return nil
}

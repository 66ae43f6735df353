package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/turnabouthero/go-vgr-metrics/internal/decoder"
	"github.com/turnabouthero/go-vgr-metrics/internal/storage"
	"github.com/turnabouthero/go-vgr-metrics/internal/truth"
)

var (
	watchTruthPath string
	watchSettle    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [replay-dir]",
	Short: "Watch a directory and decode replays as they appear",
	Long: "Watch a directory for new replay segments. A replay is decoded once its " +
		"segment files have stopped changing for the settle period, so half-written " +
		"replays are never picked up mid-transfer.",
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchTruthPath, "truth", "", "path to a verified match record JSON file")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", 2*time.Second, "quiet period before a changed replay is decoded")
}

// replayWatcher debounces segment writes per replay base and decodes each
// base once it settles.
type replayWatcher struct {
	dir    string
	dec    *decoder.Decoder
	db     *storage.DB
	set    truth.Set
	settle time.Duration

	mu       sync.Mutex
	timers   map[string]*time.Timer
	decoding sync.WaitGroup
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir, err := replayDirArg(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	set, err := truth.Load(watchTruthPath)
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

	w := &replayWatcher{
		dir:    dir,
		dec:    dec,
		db:     db,
		set:    set,
		settle: watchSettle,
		timers: make(map[string]*time.Timer),
	}
	return w.run(ctx)
}

func (w *replayWatcher) run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	fmt.Fprintf(os.Stdout, "Watching %s for replays (Ctrl-C to stop)...\n", w.dir)

	for {
		select {
		case <-ctx.Done():
			w.decoding.Wait()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				w.decoding.Wait()
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			base, ok := replayBase(event.Name)
			if !ok {
				continue
			}
			w.debounce(base)

		case err, ok := <-watcher.Errors:
			if !ok {
				w.decoding.Wait()
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}

// debounce (re)arms the settle timer for one replay base. Every segment write
// pushes the decode further out, so a replay is only decoded once all of its
// segments have landed.
func (w *replayWatcher) debounce(base string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[base]; ok {
		t.Stop()
	}
	w.timers[base] = time.AfterFunc(w.settle, func() {
		w.decoding.Add(1)
		defer w.decoding.Done()
		w.decodeOne(base)
	})
}

func (w *replayWatcher) decodeOne(base string) {
	path := filepath.Join(w.dir, base+".0.vgr")
	if _, err := os.Stat(path); err != nil {
		// Later segments arrived first; the zeroth will rearm the timer.
		return
	}

	res, err := w.dec.Decode(path, decoder.Options{Truth: w.set})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAILED %s: %v\n", base, err)
		return
	}
	if err := persistResult(w.db, res, w.set); err != nil {
		fmt.Fprintf(os.Stderr, "FAILED %s: %v\n", base, err)
		return
	}
	s := res.Summary()
	fmt.Fprintf(os.Stdout, "Decoded %s: %d frames, winner %s (%s)\n",
		s.Name, s.TotalFrames, s.Winner, s.Method)
}

// replayBase extracts the replay base name from a segment file path. Returns
// false for anything that is not a <base>.<n>.vgr segment.
func replayBase(path string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, "._") || !strings.HasSuffix(name, ".vgr") {
		return "", false
	}
	stem := strings.TrimSuffix(name, ".vgr")
	dot := strings.LastIndexByte(stem, '.')
	if dot <= 0 {
		return "", false
	}
	for _, c := range stem[dot+1:] {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	if dot+1 == len(stem) {
		return "", false
	}
	return stem[:dot], true
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turnabouthero/go-vgr-metrics/internal/decoder"
	"github.com/turnabouthero/go-vgr-metrics/internal/model"
	"github.com/turnabouthero/go-vgr-metrics/internal/report"
	"github.com/turnabouthero/go-vgr-metrics/internal/storage"
	"github.com/turnabouthero/go-vgr-metrics/internal/truth"
)

var (
	decodeMaxFrames int
	decodeTruthPath string
	decodeOutPath   string
)

var decodeCmd = &cobra.Command{
	Use:   "decode <replay.0.vgr>",
	Short: "Decode a replay and store its metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func init() {
	decodeCmd.Flags().IntVar(&decodeMaxFrames, "max-frames", 0, "limit the number of segments loaded (0 = all)")
	decodeCmd.Flags().StringVar(&decodeTruthPath, "truth", "", "path to a verified match record JSON file")
	decodeCmd.Flags().StringVar(&decodeOutPath, "out", "", "write the report to a file (.json or .md)")
}

func runDecode(cmd *cobra.Command, args []string) error {
	replayPath := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	set, err := truth.Load(decodeTruthPath)
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
	res, err := dec.Decode(replayPath, decoder.Options{MaxFrames: decodeMaxFrames, Truth: set})
	if err != nil {
		return fmt.Errorf("decode replay: %w", err)
	}

	if err := persistResult(db, res, set); err != nil {
		return err
	}
	return emitResult(res, set)
}

// persistResult stores a decode result's summary and player rows.
func persistResult(db *storage.DB, res *decoder.Result, set truth.Set) error {
	summary := res.Summary()
	if err := db.InsertReplay(summary); err != nil {
		return fmt.Errorf("insert replay: %w", err)
	}
	if err := db.InsertPlayerStats(res.PlayerStats(truthLookup(res.Name, set))); err != nil {
		return fmt.Errorf("insert player stats: %w", err)
	}
	return nil
}

// emitResult prints the terminal report and, when --out was given, writes the
// file report too.
func emitResult(res *decoder.Result, set truth.Set) error {
	summary := res.Summary()
	stats := res.PlayerStats(truthLookup(res.Name, set))

	report.PrintMatchSummary(os.Stdout, summary)
	report.PrintPlayerTable(stats)
	if len(res.Pairs) > 0 {
		fmt.Fprintln(os.Stdout)
		report.PrintPairTable(os.Stdout, res.Pairs, nameOf(res))
	}

	if decodeOutPath == "" {
		return nil
	}
	doc := report.NewDocument(summary, stats, res.Pairs, res.Captures, nameOf(res))
	f, err := os.Create(decodeOutPath)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(decodeOutPath)) {
	case ".md", ".markdown":
		err = report.WriteMarkdown(f, doc)
	default:
		err = report.WriteJSON(f, doc)
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// truthLookup adapts a truth set to the per-player lookup PlayerStats wants.
func truthLookup(replayName string, set truth.Set) func(string) (int, int, bool) {
	match, ok := set.Match(replayName)
	if !ok {
		return nil
	}
	return func(name string) (int, int, bool) {
		p, ok := match.Player(name)
		return p.Kills, p.Deaths, ok
	}
}

// nameOf resolves entity ids to player names, falling back to the hex id for
// non-player entities.
func nameOf(res *decoder.Result) func(model.EntityID) string {
	return func(id model.EntityID) string {
		if p, ok := res.Players[id]; ok {
			return p.Name
		}
		return fmt.Sprintf("0x%04X", uint16(id))
	}
}

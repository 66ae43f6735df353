package decoder

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"

	"github.com/turnabouthero/go-vgr-metrics/internal/config"
	"github.com/turnabouthero/go-vgr-metrics/internal/model"
	"github.com/turnabouthero/go-vgr-metrics/internal/truth"
)

func testDecoder(t *testing.T) *Decoder {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	d, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	return d
}

// ---- synthetic replay builders ----

func putF32BE(b []byte, v float32) {
	binary.BigEndian.PutUint32(b, math.Float32bits(v))
}

func playerBlock(frame []byte, name string, rawID, heroID uint16, team byte) []byte {
	block := make([]byte, 215)
	copy(block, []byte{0xDA, 0x03, 0xEE})
	copy(block[3:], name)
	binary.LittleEndian.PutUint16(block[165:], rawID)
	binary.LittleEndian.PutUint16(block[169:], heroID)
	block[213] = team
	return append(frame, block...)
}

func killRecord(frame []byte, eid uint16, ts float32) []byte {
	pre := make([]byte, 7)
	putF32BE(pre, ts)
	rec := make([]byte, 16)
	copy(rec, []byte{0x18, 0x04, 0x1C, 0x00, 0x00})
	binary.BigEndian.PutUint16(rec[5:], eid)
	copy(rec[7:], []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x3F, 0x80, 0x00, 0x00})
	rec[15] = 0x29
	return append(append(frame, pre...), rec...)
}

func deathRecord(frame []byte, eid uint16, ts float32) []byte {
	rec := make([]byte, 13)
	copy(rec, []byte{0x08, 0x04, 0x31, 0x00, 0x00})
	binary.BigEndian.PutUint16(rec[5:], eid)
	putF32BE(rec[9:], ts)
	return append(frame, rec...)
}

// writeReplay writes the frames as <base>.<n>.vgr under dir and returns the
// first segment's path.
func writeReplay(t *testing.T, dir, base string, frames ...[]byte) string {
	t.Helper()
	for i, data := range frames {
		path := filepath.Join(dir, base+"."+strconv.Itoa(i)+".vgr")
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, base+".0.vgr")
}

// twoPlayerReplay builds a minimal match: Alice (raw 0x3412 → canonical
// 0x1234, left) kills Bob (raw 0x7856 → canonical 0x5678, right) at 42s.
func twoPlayerReplay(t *testing.T, dir string) string {
	frame0 := playerBlock(nil, "AliceOfTheFold", 0x3412, 19, 1)
	frame0 = playerBlock(frame0, "BobTheCrusher", 0x7856, 20, 2)
	frame0 = killRecord(frame0, 0x1234, 42.0)
	frame1 := deathRecord(nil, 0x5678, 42.3)
	return writeReplay(t, dir, "match_001", frame0, frame1)
}

func TestDecode_EndToEnd(t *testing.T) {
	d := testDecoder(t)
	path := twoPlayerReplay(t, t.TempDir())

	res, err := d.Decode(path, Options{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if res.Name != "match_001" {
		t.Errorf("name = %q", res.Name)
	}
	if res.TotalFrames != 2 {
		t.Errorf("frames = %d", res.TotalFrames)
	}
	if len(res.Players) != 2 {
		t.Fatalf("players = %d", len(res.Players))
	}

	alice := model.EntityID(0x1234)
	bob := model.EntityID(0x5678)
	if res.KDA[alice].Kills != 1 {
		t.Errorf("alice kills = %d, want 1", res.KDA[alice].Kills)
	}
	if res.KDA[bob].Deaths != 1 {
		t.Errorf("bob deaths = %d, want 1", res.KDA[bob].Deaths)
	}

	if len(res.Pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(res.Pairs))
	}
	p := res.Pairs[0]
	if p.Killer != alice || !p.HasVictim || p.Victim != bob {
		t.Errorf("pair = %+v", p)
	}
	if p.Delta < 0.29 || p.Delta > 0.31 {
		t.Errorf("pair delta = %v, want 0.3", p.Delta)
	}

	// Duration was estimated from the latest death.
	if res.DurationFromTruth {
		t.Error("duration should be estimated without a truth set")
	}
	if res.Duration < 42.2 || res.Duration > 42.4 {
		t.Errorf("estimated duration = %v", res.Duration)
	}

	stats := res.PlayerStats(nil)
	if len(stats) != 2 {
		t.Fatalf("stats rows = %d", len(stats))
	}
	if stats[0].Name != "AliceOfTheFold" || stats[0].Kills != 1 {
		t.Errorf("first row = %+v", stats[0])
	}
}

func TestDecode_TruthDurationAndConfidence(t *testing.T) {
	d := testDecoder(t)
	path := twoPlayerReplay(t, t.TempDir())

	set := truth.Set{
		"match_001": {
			Duration: 1028.0,
			Players: map[string]truth.PlayerTruth{
				"AliceOfTheFold": {Kills: 1, Deaths: 0},
			},
		},
	}
	res, err := d.Decode(path, Options{Truth: set})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !res.DurationFromTruth || res.Duration != 1028.0 {
		t.Errorf("duration = %v (fromTruth=%v)", res.Duration, res.DurationFromTruth)
	}

	// The verified player scores maximally; the unverified one does not.
	alice := model.EntityID(0x1234)
	bob := model.EntityID(0x5678)
	if res.PlayerConfidence[alice].Value != 1.0 {
		t.Errorf("alice confidence = %+v, want verified 1.0", res.PlayerConfidence[alice])
	}
	if res.PlayerConfidence[bob].Value >= 1.0 {
		t.Errorf("bob confidence = %+v, want below verified", res.PlayerConfidence[bob])
	}

	stats := res.PlayerStats(func(name string) (int, int, bool) {
		p, ok := set["match_001"].Players[name]
		return p.Kills, p.Deaths, ok
	})
	for _, s := range stats {
		if s.Name == "AliceOfTheFold" {
			if s.TruthKills == nil || *s.TruthKills != 1 {
				t.Errorf("alice truth kills = %v", s.TruthKills)
			}
		}
		if s.Name == "BobTheCrusher" && s.TruthKills != nil {
			t.Error("bob should have no truth counters")
		}
	}
}

func TestDecode_MissingReplay(t *testing.T) {
	d := testDecoder(t)
	if _, err := d.Decode(filepath.Join(t.TempDir(), "nope.0.vgr"), Options{}); err == nil {
		t.Fatal("expected error for missing replay")
	}
}

func TestDiscover_SkipsMacArtifacts(t *testing.T) {
	dir := t.TempDir()
	mk := func(parts ...string) {
		path := filepath.Join(append([]string{dir}, parts...)...)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte{0}, 0644); err != nil {
			t.Fatal(err)
		}
	}
	mk("a.0.vgr")
	mk("sub", "b.0.vgr")
	// Later segments, macOS droppings, and unrelated files are skipped.
	mk("a.1.vgr")
	mk("._c.0.vgr")
	mk("__MACOSX", "d.0.vgr")
	mk("notes.txt")

	paths, err := Discover(dir)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("discovered %d paths: %v", len(paths), paths)
	}
}

func TestDecodeDir_IsolatesFailures(t *testing.T) {
	d := testDecoder(t)
	dir := t.TempDir()

	twoPlayerReplay(t, dir)
	// A dangling symlink is discovered but unreadable, so this replay fails
	// while its sibling decodes.
	if err := os.Symlink(filepath.Join(dir, "gone"), filepath.Join(dir, "broken.0.vgr")); err != nil {
		t.Fatal(err)
	}

	results, err := d.DecodeDir(context.Background(), dir, 4, Options{})
	if err != nil {
		t.Fatalf("decode dir: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}

	var good, bad int
	for _, r := range results {
		if r.Err != nil {
			bad++
		} else {
			good++
		}
	}
	if good != 1 || bad != 1 {
		t.Errorf("good=%d bad=%d, want one of each", good, bad)
	}
}

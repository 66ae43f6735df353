package storage

import (
	"testing"

	"github.com/turnabouthero/go-vgr-metrics/internal/model"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestReplayInsertAndExists(t *testing.T) {
	db := openMemDB(t)

	summary := model.ReplaySummary{
		Name:        "match_001",
		Path:        "/replays/match_001.0.vgr",
		DecodedAt:   "2026-08-30 12:00:00",
		TotalFrames: 120,
		Duration:    1028.5,
		Winner:      "left",
		Confidence:  0.83,
		Method:      model.MethodCrystalCluster,
		PlayerCount: 6,
	}

	if err := db.InsertReplay(summary); err != nil {
		t.Fatalf("InsertReplay: %v", err)
	}

	exists, err := db.ReplayExists("match_001")
	if err != nil {
		t.Fatalf("ReplayExists: %v", err)
	}
	if !exists {
		t.Error("expected replay to exist after insert")
	}

	exists2, _ := db.ReplayExists("nonexistent")
	if exists2 {
		t.Error("expected missing replay to not exist")
	}
}

func TestInsertReplayIsIdempotent(t *testing.T) {
	db := openMemDB(t)

	s := model.ReplaySummary{Name: "match_001", Path: "/a", DecodedAt: "2026-08-30 12:00:00", Winner: "left", Method: model.MethodDestructionTotals}
	if err := db.InsertReplay(s); err != nil {
		t.Fatalf("InsertReplay: %v", err)
	}
	s.Winner = "right"
	if err := db.InsertReplay(s); err != nil {
		t.Fatalf("InsertReplay (replace): %v", err)
	}

	list, err := db.ListReplays()
	if err != nil {
		t.Fatalf("ListReplays: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 replay after replace, got %d", len(list))
	}
	if list[0].Winner != "right" {
		t.Errorf("expected replaced winner right, got %s", list[0].Winner)
	}
}

func TestListReplaysOrder(t *testing.T) {
	db := openMemDB(t)

	summaries := []model.ReplaySummary{
		{Name: "old", Path: "/a", DecodedAt: "2026-08-29 09:00:00", Winner: "left", Method: model.MethodCrystalCluster},
		{Name: "new", Path: "/b", DecodedAt: "2026-08-30 09:00:00", Winner: "right", Method: model.MethodCrystalCluster},
	}
	for _, s := range summaries {
		if err := db.InsertReplay(s); err != nil {
			t.Fatalf("InsertReplay: %v", err)
		}
	}

	list, err := db.ListReplays()
	if err != nil {
		t.Fatalf("ListReplays: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 replays, got %d", len(list))
	}
	if list[0].Name != "new" {
		t.Errorf("expected newest first, got %s", list[0].Name)
	}
}

func TestGetReplayByPrefix(t *testing.T) {
	db := openMemDB(t)

	db.InsertReplay(model.ReplaySummary{Name: "match_20260830_a", Path: "/a", DecodedAt: "2026-08-30 09:00:00", Winner: "left", Method: model.MethodCrystalCluster})

	got, err := db.GetReplayByPrefix("match_2026")
	if err != nil {
		t.Fatalf("GetReplayByPrefix: %v", err)
	}
	if got == nil || got.Name != "match_20260830_a" {
		t.Fatalf("prefix lookup failed: %+v", got)
	}

	miss, err := db.GetReplayByPrefix("zzz")
	if err != nil {
		t.Fatalf("GetReplayByPrefix miss: %v", err)
	}
	if miss != nil {
		t.Errorf("expected nil for missing prefix, got %+v", miss)
	}
}

func TestPlayerStatsRoundTrip(t *testing.T) {
	db := openMemDB(t)

	if err := db.InsertReplay(model.ReplaySummary{Name: "m1", Path: "/a", DecodedAt: "2026-08-30 09:00:00", Winner: "left", Method: model.MethodCrystalCluster}); err != nil {
		t.Fatalf("InsertReplay: %v", err)
	}

	tk := 7
	stats := []model.PlayerStats{
		{ReplayName: "m1", Name: "AliceOfTheFold", Team: model.TeamLeft, HeroName: "Ringo", Kills: 7, Deaths: 2, Gold: 11250, ItemEvents: 14, TruthKills: &tk},
		{ReplayName: "m1", Name: "BobTheCrusher", Team: model.TeamRight, HeroName: "SAW", Kills: 3, Deaths: 5, Gold: 8400, ItemEvents: 9},
	}
	if err := db.InsertPlayerStats(stats); err != nil {
		t.Fatalf("InsertPlayerStats: %v", err)
	}

	got, err := db.GetPlayerStats("m1")
	if err != nil {
		t.Fatalf("GetPlayerStats: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}

	alice := got[0]
	if alice.Name != "AliceOfTheFold" || alice.Team != model.TeamLeft {
		t.Errorf("first row = %+v", alice)
	}
	if alice.TruthKills == nil || *alice.TruthKills != 7 {
		t.Errorf("truth kills = %v, want 7", alice.TruthKills)
	}
	if alice.TruthDeaths != nil {
		t.Errorf("truth deaths = %v, want nil", alice.TruthDeaths)
	}
	if got[1].Gold != 8400 {
		t.Errorf("bob gold = %v", got[1].Gold)
	}
}

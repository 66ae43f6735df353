package kda

import (
	"math/rand"
	"testing"

	"github.com/turnabouthero/go-vgr-metrics/internal/config"
	"github.com/turnabouthero/go-vgr-metrics/internal/model"
)

const (
	alice model.EntityID = 0x1234 // left
	bob   model.EntityID = 0x5678 // right
)

func testAggregator(t *testing.T) *Aggregator {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	return New(cfg.Decode)
}

func players() map[model.EntityID]model.PlayerRecord {
	return map[model.EntityID]model.PlayerRecord{
		alice: {Entity: alice, Name: "Alice", Team: model.TeamLeft},
		bob:   {Entity: bob, Name: "Bob", Team: model.TeamRight},
	}
}

func teamOf(id model.EntityID) model.Team {
	switch id {
	case alice:
		return model.TeamLeft
	case bob:
		return model.TeamRight
	default:
		return model.TeamUnknown
	}
}

func kill(eid model.EntityID, frame int, ts float64) model.Event {
	return model.Event{Entity: eid, Frame: frame, Timestamp: ts, HasTimestamp: ts > 0, Payload: model.KillPayload{}}
}

func death(eid model.EntityID, frame int, ts float64) model.Event {
	return model.Event{Entity: eid, Frame: frame, Timestamp: ts, HasTimestamp: ts > 0, Payload: model.DeathPayload{}}
}

// Kill from Alice at 42.0s, death of Bob at 42.3s: one kill, one death, one
// pair with a 0.3s delta.
func TestAggregate_KillDeathPair(t *testing.T) {
	a := testAggregator(t)
	events := []model.Event{
		kill(alice, 0, 42.0),
		death(bob, 1, 42.3),
	}

	records := a.Aggregate(events, players(), 0)
	if records[alice].Kills != 1 {
		t.Errorf("alice kills = %d, want 1", records[alice].Kills)
	}
	if records[bob].Deaths != 1 {
		t.Errorf("bob deaths = %d, want 1", records[bob].Deaths)
	}

	pairs := a.Pairs(events, teamOf, 0)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	p := pairs[0]
	if !p.HasVictim || p.Killer != alice || p.Victim != bob {
		t.Fatalf("pair = %+v", p)
	}
	if p.Delta < 0.29 || p.Delta > 0.31 {
		t.Errorf("delta = %v, want 0.3", p.Delta)
	}
}

// The same death re-emitted across a frame boundary counts once.
func TestAggregate_DuplicateDeathCollapses(t *testing.T) {
	a := testAggregator(t)
	events := []model.Event{
		death(bob, 3, 100.0),
		death(bob, 4, 100.0),
	}
	records := a.Aggregate(events, players(), 0)
	if records[bob].Deaths != 1 {
		t.Errorf("deaths = %d, want 1 after dedup", records[bob].Deaths)
	}
}

func TestDedupe_Idempotent(t *testing.T) {
	events := []model.Event{
		death(bob, 0, 100.0),
		death(bob, 1, 100.2),
		death(bob, 2, 100.9),
		kill(alice, 0, 100.1),
		kill(alice, 1, 100.3),
	}
	once := Dedupe(events, 0.5)
	twice := Dedupe(once, 0.5)
	if len(once) != len(twice) {
		t.Fatalf("dedupe not idempotent: %d then %d events", len(once), len(twice))
	}

	counts := func(evs []model.Event) map[model.EntityID]int {
		m := make(map[model.EntityID]int)
		for _, ev := range evs {
			m[ev.Entity]++
		}
		return m
	}
	c1, c2 := counts(once), counts(twice)
	for id, n := range c1 {
		if c2[id] != n {
			t.Errorf("entity %#04x: %d then %d", id, n, c2[id])
		}
	}
}

// Post-match deaths past duration+buffer are excluded; raising the buffer
// can only add deaths back, never remove them.
func TestAggregate_PostMatchFilterAndMonotonicity(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	events := []model.Event{
		death(bob, 10, 600.0),
		death(bob, 90, 3000.0), // ceremony noise
	}
	duration := 1200.0

	small := New(cfg.Decode) // buffer 10s
	records := small.Aggregate(events, players(), duration)
	if records[bob].Deaths != 1 {
		t.Fatalf("deaths = %d with 10s buffer, want 1", records[bob].Deaths)
	}

	cfg.Decode.DeathBuffer = 2000.0
	large := New(cfg.Decode)
	records = large.Aggregate(events, players(), duration)
	if records[bob].Deaths != 2 {
		t.Fatalf("deaths = %d with 2000s buffer, want 2", records[bob].Deaths)
	}
}

// Kills are never filtered by the post-match cutoff.
func TestAggregate_KillsNotFiltered(t *testing.T) {
	a := testAggregator(t)
	events := []model.Event{kill(alice, 90, 3000.0)}
	records := a.Aggregate(events, players(), 1200.0)
	if records[alice].Kills != 1 {
		t.Errorf("kills = %d, want 1 (kills bypass the cutoff)", records[alice].Kills)
	}
}

// One death can never satisfy two kills.
func TestPairs_InjectiveConsumption(t *testing.T) {
	a := testAggregator(t)
	events := []model.Event{
		kill(alice, 0, 100.0),
		kill(alice, 0, 101.0),
		death(bob, 0, 100.2),
	}
	pairs := a.Pairs(events, teamOf, 0)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	withVictim := 0
	for _, p := range pairs {
		if p.HasVictim {
			withVictim++
			if p.Victim != bob {
				t.Errorf("victim = %#04x", p.Victim)
			}
		}
	}
	if withVictim != 1 {
		t.Errorf("death consumed by %d kills, want exactly 1", withVictim)
	}
}

// A same-team death never pairs with the kill.
func TestPairs_CrossTeamOnly(t *testing.T) {
	a := testAggregator(t)
	events := []model.Event{
		kill(alice, 0, 100.0),
		death(alice, 0, 100.1),
	}
	pairs := a.Pairs(events, teamOf, 0)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].HasVictim {
		t.Error("same-team death must not be consumed")
	}
}

// A kill with no death inside the window is still reported, victimless.
func TestPairs_WindowBound(t *testing.T) {
	a := testAggregator(t)
	events := []model.Event{
		kill(alice, 0, 100.0),
		death(bob, 0, 110.0), // 10s away, window is 5s
	}
	pairs := a.Pairs(events, teamOf, 0)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].HasVictim {
		t.Error("death outside pairing window must not be consumed")
	}
}

// Pair output is stable under arbitrary input ordering.
func TestPairs_OrderIndependent(t *testing.T) {
	a := testAggregator(t)
	base := []model.Event{
		kill(alice, 0, 100.0),
		kill(bob, 1, 200.0),
		death(bob, 0, 100.4),
		death(alice, 1, 200.2),
		death(bob, 2, 400.0),
	}

	want := a.Pairs(base, teamOf, 0)
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]model.Event, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		got := a.Pairs(shuffled, teamOf, 0)
		if len(got) != len(want) {
			t.Fatalf("trial %d: %d pairs, want %d", trial, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("trial %d: pair %d = %+v, want %+v", trial, i, got[i], want[i])
			}
		}
	}
}

func TestEstimateDuration(t *testing.T) {
	events := []model.Event{
		death(bob, 0, 100.0),
		death(alice, 1, 950.5),
		kill(alice, 2, 1500.0), // kills do not drive the estimate
	}
	if got := EstimateDuration(events); got != 950.5 {
		t.Errorf("duration = %v, want 950.5", got)
	}
	if got := EstimateDuration(nil); got != 0 {
		t.Errorf("duration of empty set = %v, want 0", got)
	}
}

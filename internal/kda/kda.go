// Package kda derives per-entity kill/death aggregates from the decoded
// event set: duplicate collapse across frame boundaries, post-match death
// filtering, and best-effort kill-death causal pairing.
package kda

import (
	"math"
	"sort"

	"github.com/turnabouthero/go-vgr-metrics/internal/config"
	"github.com/turnabouthero/go-vgr-metrics/internal/model"
)

// Aggregator holds the filter parameters for one replay's aggregation.
type Aggregator struct {
	epsilon float64
	buffer  float64
	window  float64
}

// New builds an Aggregator from the decode configuration.
func New(cfg config.DecodeConfig) *Aggregator {
	return &Aggregator{
		epsilon: cfg.DedupeEpsilon,
		buffer:  cfg.DeathBuffer,
		window:  cfg.PairWindow,
	}
}

// Dedupe collapses events that repeat the same logical occurrence across
// adjacent frames: for one entity, events of the same kind closer together
// than epsilon count once. Events without a timestamp cannot be compared and
// pass through. The operation is idempotent.
func Dedupe(events []model.Event, epsilon float64) []model.Event {
	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}
		if a.Kind() != b.Kind() {
			return a.Kind() < b.Kind()
		}
		if a.HasTimestamp != b.HasTimestamp {
			return !a.HasTimestamp
		}
		return a.Timestamp < b.Timestamp
	})

	out := sorted[:0]
	var last *model.Event
	for i := range sorted {
		ev := sorted[i]
		if last != nil && ev.HasTimestamp && last.HasTimestamp &&
			ev.Entity == last.Entity && ev.Kind() == last.Kind() &&
			ev.Timestamp-last.Timestamp < epsilon {
			continue
		}
		out = append(out, ev)
		last = &out[len(out)-1]
	}
	return out
}

// EstimateDuration guesses the match length as the latest death timestamp.
// Returns 0 when no timestamped death exists.
func EstimateDuration(events []model.Event) float64 {
	var max float64
	for _, ev := range events {
		if ev.Kind() == model.KindDeath && ev.HasTimestamp && ev.Timestamp > max {
			max = ev.Timestamp
		}
	}
	return max
}

// deathCutoff is the latest timestamp a death may carry and still count.
// Without a known duration every death counts.
func (a *Aggregator) deathCutoff(duration float64) float64 {
	if duration <= 0 {
		return math.Inf(1)
	}
	return duration + a.buffer
}

// Aggregate computes per-entity KDA records for the given entities.
// duration bounds the authoritative death count; kills are never filtered
// because their timestamps are present less reliably.
func (a *Aggregator) Aggregate(events []model.Event, entities map[model.EntityID]model.PlayerRecord, duration float64) map[model.EntityID]*model.KDARecord {
	deduped := Dedupe(events, a.epsilon)
	cutoff := a.deathCutoff(duration)

	out := make(map[model.EntityID]*model.KDARecord, len(entities))
	for id := range entities {
		out[id] = &model.KDARecord{Entity: id}
	}

	for _, ev := range deduped {
		rec, ok := out[ev.Entity]
		if !ok {
			continue
		}
		switch ev.Kind() {
		case model.KindKill:
			rec.Kills++
			rec.KillEvents = append(rec.KillEvents, ev)
		case model.KindDeath:
			if ev.HasTimestamp && ev.Timestamp > cutoff {
				continue
			}
			rec.Deaths++
			rec.DeathEvents = append(rec.DeathEvents, ev)
		}
	}

	for _, rec := range out {
		sortByTime(rec.KillEvents)
		sortByTime(rec.DeathEvents)
	}
	return out
}

// Pairs matches kills to deaths by timestamp: for each timestamped kill in
// ascending order, the not-yet-consumed cross-team death with the smallest
// delta inside the window is linked and consumed. Kills without a qualifying
// death are emitted victimless. This is reporting linkage, not a guarantee.
func (a *Aggregator) Pairs(events []model.Event, teamOf func(model.EntityID) model.Team, duration float64) []model.KillDeathPair {
	deduped := Dedupe(events, a.epsilon)
	cutoff := a.deathCutoff(duration)

	var kills, deaths []model.Event
	for _, ev := range deduped {
		switch ev.Kind() {
		case model.KindKill:
			if ev.HasTimestamp {
				kills = append(kills, ev)
			}
		case model.KindDeath:
			if ev.HasTimestamp && ev.Timestamp <= cutoff {
				deaths = append(deaths, ev)
			}
		}
	}
	sortByTime(kills)
	sortByTime(deaths)

	consumed := make([]bool, len(deaths))
	pairs := make([]model.KillDeathPair, 0, len(kills))

	for _, kill := range kills {
		killerTeam := teamOf(kill.Entity)
		bestIdx := -1
		bestDelta := a.window
		for di, death := range deaths {
			if consumed[di] {
				continue
			}
			victimTeam := teamOf(death.Entity)
			if victimTeam == model.TeamUnknown || victimTeam == killerTeam {
				continue
			}
			delta := math.Abs(kill.Timestamp - death.Timestamp)
			if delta < bestDelta {
				bestDelta = delta
				bestIdx = di
			}
		}

		pair := model.KillDeathPair{
			Killer:   kill.Entity,
			KillTime: kill.Timestamp,
			Frame:    kill.Frame,
		}
		if bestIdx >= 0 {
			consumed[bestIdx] = true
			pair.HasVictim = true
			pair.Victim = deaths[bestIdx].Entity
			pair.DeathTime = deaths[bestIdx].Timestamp
			pair.Delta = bestDelta
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

func sortByTime(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.HasTimestamp != b.HasTimestamp {
			return !a.HasTimestamp
		}
		return a.Timestamp < b.Timestamp
	})
}

package decoder

import (
	"sort"

	"github.com/turnabouthero/go-vgr-metrics/internal/model"
)

// Summary condenses the result into the stored replay record.
func (r *Result) Summary() model.ReplaySummary {
	return model.ReplaySummary{
		Name:        r.Name,
		Path:        r.Path,
		DecodedAt:   r.DecodedAt.Format("2006-01-02 15:04:05"),
		TotalFrames: r.TotalFrames,
		Duration:    r.Duration,
		Winner:      r.Outcome.Winner.String(),
		Confidence:  r.Outcome.Confidence,
		Method:      r.Outcome.Method,
		PlayerCount: len(r.Players),
	}
}

// PlayerStats rolls the decoded aggregates into per-player rows, ordered by
// team then kills descending. Truth counters are attached when the caller
// decoded with a truth set.
func (r *Result) PlayerStats(truthKD func(name string) (kills, deaths int, ok bool)) []model.PlayerStats {
	gold := make(map[model.EntityID]float64, len(r.Players))
	items := make(map[model.EntityID]int, len(r.Players))
	for _, ev := range r.Events {
		switch p := ev.Payload.(type) {
		case model.CreditPayload:
			gold[ev.Entity] += p.Amount
		case model.ItemAcquirePayload, model.ItemEquipPayload:
			items[ev.Entity]++
		}
	}

	out := make([]model.PlayerStats, 0, len(r.Players))
	for id, rec := range r.Players {
		s := model.PlayerStats{
			ReplayName: r.Name,
			Name:       rec.Name,
			Team:       rec.Team,
			HeroName:   rec.HeroName,
			Gold:       gold[id],
			ItemEvents: items[id],
		}
		if k, ok := r.KDA[id]; ok {
			s.Kills = k.Kills
			s.Deaths = k.Deaths
		}
		if truthKD != nil {
			if tk, td, ok := truthKD(rec.Name); ok {
				s.TruthKills = &tk
				s.TruthDeaths = &td
			}
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Team != out[j].Team {
			return out[i].Team < out[j].Team
		}
		if out[i].Kills != out[j].Kills {
			return out[i].Kills > out[j].Kills
		}
		return out[i].Name < out[j].Name
	})
	return out
}

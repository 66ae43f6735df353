// Package classify assigns behavioral categories to entities from their
// aggregate event statistics. The output is advisory evidence: there is no
// ground truth for non-player entities, so a classification is never treated
// as fact downstream.
package classify

import (
	"github.com/turnabouthero/go-vgr-metrics/internal/model"
)

// Profile is one entity's aggregate view of the event stream.
type Profile struct {
	Entity     model.EntityID
	FirstFrame int
	LastFrame  int
	Events     int
	Kinds      map[model.EventKind]int
	Class      model.Classification
}

// Lifespan is the frame span between first and last appearance.
func (p *Profile) Lifespan() int { return p.LastFrame - p.FirstFrame }

// Diversity is the number of distinct event kinds observed.
func (p *Profile) Diversity() int { return len(p.Kinds) }

// Density is events per frame of lifespan.
func (p *Profile) Density() float64 {
	span := p.Lifespan()
	if span < 1 {
		span = 1
	}
	return float64(p.Events) / float64(span)
}

// Profiles aggregates the event set into per-entity profiles.
func Profiles(events []model.Event) map[model.EntityID]*Profile {
	out := make(map[model.EntityID]*Profile)
	for _, ev := range events {
		p := out[ev.Entity]
		if p == nil {
			p = &Profile{
				Entity:     ev.Entity,
				FirstFrame: ev.Frame,
				LastFrame:  ev.Frame,
				Kinds:      make(map[model.EventKind]int),
			}
			out[ev.Entity] = p
		}
		if ev.Frame < p.FirstFrame {
			p.FirstFrame = ev.Frame
		}
		if ev.Frame > p.LastFrame {
			p.LastFrame = ev.Frame
		}
		p.Events++
		p.Kinds[ev.Kind()]++
	}
	return out
}

// Classify profiles every entity in the event set and applies the decision
// table. Entities present in players are labelled as such directly, the
// table only runs for the rest. totalFrames is the replay's frame count.
func Classify(events []model.Event, totalFrames int, players map[model.EntityID]model.PlayerRecord) map[model.EntityID]*Profile {
	profiles := Profiles(events)
	for id, p := range profiles {
		if _, ok := players[id]; ok {
			p.Class = model.ClassPlayer
			continue
		}
		p.Class = classOf(p, totalFrames)
	}
	return profiles
}

// classOf applies the ordered decision table. Fractions are relative to the
// total replay frame count.
func classOf(p *Profile, totalFrames int) model.Classification {
	if totalFrames < 1 {
		totalFrames = 1
	}
	span := p.Lifespan()
	frac := float64(span) / float64(totalFrames)

	switch {
	case span <= 0:
		return model.ClassEphemeral
	case frac >= 0.8 && p.Diversity() <= 3:
		return model.ClassStructure
	case frac >= 0.8:
		return model.ClassPersistentNPC
	case frac < 0.1 && p.Density() > 5:
		return model.ClassProjectileOrEffect
	case frac < 0.1:
		return model.ClassMinion
	case frac < 0.4:
		return model.ClassJungleCreep
	default:
		return model.ClassObjectiveOrBoss
	}
}

// Package outcome infers the winner of a match from structure-destruction
// events. The match-ending moment shows up as a burst of simultaneous
// destructions in one frame (the crystal plus its base structures); the side
// whose structures dominate that burst lost.
package outcome

import (
	"sort"

	"github.com/turnabouthero/go-vgr-metrics/internal/classify"
	"github.com/turnabouthero/go-vgr-metrics/internal/config"
	"github.com/turnabouthero/go-vgr-metrics/internal/model"
)

// Detector holds the inference thresholds.
type Detector struct {
	clusterThreshold   int
	fallbackConfidence float64
	objectives         config.ObjectiveConfig
}

// New builds a Detector from configuration.
func New(cfg *config.Config) *Detector {
	return &Detector{
		clusterThreshold:   cfg.Decode.ClusterThreshold,
		fallbackConfidence: cfg.Decode.FallbackConfidence,
		objectives:         cfg.Objectives,
	}
}

// destruction is one structure's death event.
type destruction struct {
	entity model.EntityID
	frame  int
	team   model.Team
}

// Detect infers the match outcome. profiles supplies the entity
// classifications, players the entity→team ground truth for the two sides.
// The result is a soft outcome: an unresolvable match reports an
// undetermined winner, never an error.
func (d *Detector) Detect(events []model.Event, profiles map[model.EntityID]*classify.Profile, players map[model.EntityID]model.PlayerRecord, totalFrames int) model.MatchOutcome {
	out := model.MatchOutcome{
		Winner:      model.TeamUnknown,
		Loser:       model.TeamUnknown,
		TotalFrames: totalFrames,
		Method:      model.MethodUndetermined,
	}

	structTeams := structureTeams(profiles, players)
	destructions := collectDestructions(events, profiles, structTeams)
	if len(destructions) == 0 {
		return out
	}

	for _, dst := range destructions {
		switch dst.team {
		case model.TeamLeft:
			out.LeftDestroyed++
		case model.TeamRight:
			out.RightDestroyed++
		}
	}

	// Group destructions by frame and look for the first frame reaching the
	// clustering threshold.
	byFrame := make(map[int][]destruction)
	for _, dst := range destructions {
		byFrame[dst.frame] = append(byFrame[dst.frame], dst)
	}
	frames := make([]int, 0, len(byFrame))
	for f := range byFrame {
		frames = append(frames, f)
	}
	sort.Ints(frames)

	for _, f := range frames {
		cluster := byFrame[f]
		if len(cluster) < d.clusterThreshold {
			continue
		}
		left, right := 0, 0
		for _, dst := range cluster {
			switch dst.team {
			case model.TeamLeft:
				left++
			case model.TeamRight:
				right++
			}
		}
		if left == right {
			break // ambiguous cluster, fall through to totals
		}
		loser := model.TeamLeft
		dominant := left
		if right > left {
			loser = model.TeamRight
			dominant = right
		}
		out.Winner = loser.Opponent()
		out.Loser = loser
		out.DestructionFrame = f
		out.Confidence = float64(dominant) / float64(len(cluster))
		out.Method = model.MethodCrystalCluster
		return out
	}

	// No decisive cluster: compare whole-replay destruction totals at a
	// fixed, lower confidence.
	switch {
	case out.LeftDestroyed > out.RightDestroyed:
		out.Winner, out.Loser = model.TeamRight, model.TeamLeft
	case out.RightDestroyed > out.LeftDestroyed:
		out.Winner, out.Loser = model.TeamLeft, model.TeamRight
	default:
		return out // tie stays undetermined
	}
	out.Confidence = d.fallbackConfidence
	out.Method = model.MethodDestructionTotals
	return out
}

// collectDestructions gathers the death events of structure-classified
// entities, one per entity (the last death seen), in deterministic order.
func collectDestructions(events []model.Event, profiles map[model.EntityID]*classify.Profile, teams map[model.EntityID]model.Team) []destruction {
	lastDeath := make(map[model.EntityID]int)
	for _, ev := range events {
		if ev.Kind() != model.KindDeath {
			continue
		}
		p, ok := profiles[ev.Entity]
		if !ok || p.Class != model.ClassStructure {
			continue
		}
		if f, seen := lastDeath[ev.Entity]; !seen || ev.Frame > f {
			lastDeath[ev.Entity] = ev.Frame
		}
	}

	out := make([]destruction, 0, len(lastDeath))
	for id, frame := range lastDeath {
		out = append(out, destruction{entity: id, frame: frame, team: teams[id]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].frame != out[j].frame {
			return out[i].frame < out[j].frame
		}
		return out[i].entity < out[j].entity
	})
	return out
}

// structureTeams attributes structure entities to a side. Structure ids
// cluster into two contiguous ranges with a large gap between them; the
// cluster whose average id sits nearer a side's average player id belongs to
// that side.
func structureTeams(profiles map[model.EntityID]*classify.Profile, players map[model.EntityID]model.PlayerRecord) map[model.EntityID]model.Team {
	var ids []model.EntityID
	for id, p := range profiles {
		if p.Class == model.ClassStructure {
			ids = append(ids, id)
		}
	}
	out := make(map[model.EntityID]model.Team, len(ids))
	if len(ids) < 2 {
		return out
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	// Split at the largest id gap.
	split := len(ids) / 2
	maxGap := 0
	for i := 0; i < len(ids)-1; i++ {
		if gap := int(ids[i+1]) - int(ids[i]); gap > maxGap {
			maxGap = gap
			split = i + 1
		}
	}
	groupA, groupB := ids[:split], ids[split:]

	leftAvg, leftN := 0.0, 0
	rightAvg, rightN := 0.0, 0
	for id, rec := range players {
		switch rec.Team {
		case model.TeamLeft:
			leftAvg += float64(id)
			leftN++
		case model.TeamRight:
			rightAvg += float64(id)
			rightN++
		}
	}
	if leftN == 0 || rightN == 0 {
		return out
	}
	leftAvg /= float64(leftN)
	rightAvg /= float64(rightN)

	aAvg := avgID(groupA)
	bAvg := avgID(groupB)

	// Assign groups to the pairing of sides with the smaller total distance.
	aTeam, bTeam := model.TeamLeft, model.TeamRight
	if abs(aAvg-leftAvg)+abs(bAvg-rightAvg) > abs(aAvg-rightAvg)+abs(bAvg-leftAvg) {
		aTeam, bTeam = model.TeamRight, model.TeamLeft
	}
	for _, id := range groupA {
		out[id] = aTeam
	}
	for _, id := range groupB {
		out[id] = bTeam
	}
	return out
}

func avgID(ids []model.EntityID) float64 {
	var sum float64
	for _, id := range ids {
		sum += float64(id)
	}
	return sum / float64(len(ids))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

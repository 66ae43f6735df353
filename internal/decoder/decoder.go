// Package decoder runs the full per-replay pipeline: frame loading, player
// directory extraction, event scanning, classification, KDA aggregation and
// win/loss inference. One Decoder instance is safe for concurrent use; each
// Decode call owns all of its intermediate state.
package decoder

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/turnabouthero/go-vgr-metrics/internal/classify"
	"github.com/turnabouthero/go-vgr-metrics/internal/config"
	"github.com/turnabouthero/go-vgr-metrics/internal/confidence"
	"github.com/turnabouthero/go-vgr-metrics/internal/directory"
	"github.com/turnabouthero/go-vgr-metrics/internal/kda"
	"github.com/turnabouthero/go-vgr-metrics/internal/model"
	"github.com/turnabouthero/go-vgr-metrics/internal/outcome"
	"github.com/turnabouthero/go-vgr-metrics/internal/replay"
	"github.com/turnabouthero/go-vgr-metrics/internal/scanner"
	"github.com/turnabouthero/go-vgr-metrics/internal/truth"
)

// Options tune one Decode call.
type Options struct {
	// MaxFrames limits how many segments are loaded; 0 means all.
	MaxFrames int
	// Truth supplies verified match records, keyed by replay base name.
	Truth truth.Set
}

// Result is everything decoded from one replay.
type Result struct {
	Name        string
	Path        string
	DecodedAt   time.Time
	TotalFrames int

	Players  map[model.EntityID]model.PlayerRecord
	Events   []model.Event
	Profiles map[model.EntityID]*classify.Profile
	KDA      map[model.EntityID]*model.KDARecord
	Pairs    []model.KillDeathPair
	Outcome  model.MatchOutcome
	Captures []model.ObjectiveCapture

	// PlayerConfidence scores how reliable each player's decoded identity
	// and counters are.
	PlayerConfidence map[model.EntityID]confidence.Score

	Duration          float64
	DurationFromTruth bool
}

// Decoder drives the decode pipeline with one fixed configuration.
type Decoder struct {
	cfg      *config.Config
	scan     *scanner.Scanner
	dirBuild *directory.Builder
	agg      *kda.Aggregator
	detect   *outcome.Detector
	log      zerolog.Logger
}

// New builds a Decoder from configuration.
func New(cfg *config.Config, log zerolog.Logger) (*Decoder, error) {
	scan, err := scanner.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("compile catalog: %w", err)
	}
	metaOrder, err := config.ByteOrder(cfg.Decode.MetadataIDOrder)
	if err != nil {
		return nil, err
	}
	dirBuild, err := directory.New(cfg.Directory, metaOrder, cfg.HeroName)
	if err != nil {
		return nil, fmt.Errorf("compile directory markers: %w", err)
	}
	return &Decoder{
		cfg:      cfg,
		scan:     scan,
		dirBuild: dirBuild,
		agg:      kda.New(cfg.Decode),
		detect:   outcome.New(cfg),
		log:      log,
	}, nil
}

// Decode runs the full pipeline on one replay. Stages are strictly
// sequential: aggregation needs global visibility of the whole event set, so
// the scanner finishes all frames first.
func (d *Decoder) Decode(path string, opts Options) (*Result, error) {
	r, err := replay.Load(path, opts.MaxFrames)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Name:        r.Base,
		Path:        path,
		DecodedAt:   time.Now().UTC(),
		TotalFrames: r.FrameCount(),
	}

	dir := d.dirBuild.Build(r.Frames[0].Data)
	res.Players = dir.Players
	d.log.Debug().Str("replay", r.Base).Int("players", len(dir.Players)).
		Int("frames", r.FrameCount()).Msg("directory built")

	// The entity universe for this protocol: any nonzero id that is not the
	// all-ones filler pattern. Aggregation narrows to players afterwards.
	known := func(id model.EntityID) bool { return id != 0 && id != 0xFFFF }
	res.Events = d.scan.ScanReplay(r, known)
	d.log.Debug().Str("replay", r.Base).Int("events", len(res.Events)).Msg("scan complete")

	res.Profiles = classify.Classify(res.Events, res.TotalFrames, res.Players)

	matchTruth, hasTruth := opts.Truth.Match(r.Base)
	if hasTruth && matchTruth.Duration > 0 {
		res.Duration = matchTruth.Duration
		res.DurationFromTruth = true
	} else {
		res.Duration = kda.EstimateDuration(res.Events)
	}

	res.KDA = d.agg.Aggregate(res.Events, res.Players, res.Duration)
	res.Pairs = d.agg.Pairs(res.Events, dir.TeamOf, res.Duration)
	res.Outcome = d.detect.Detect(res.Events, res.Profiles, res.Players, res.TotalFrames)
	res.Captures = d.detect.DetectCaptures(res.Events, dir.TeamOf)
	res.PlayerConfidence = d.scorePlayers(res, matchTruth, hasTruth)

	d.log.Info().Str("replay", r.Base).
		Str("winner", res.Outcome.Winner.String()).
		Str("method", res.Outcome.Method).
		Float64("confidence", res.Outcome.Confidence).
		Msg("decoded")
	return res, nil
}

// scorePlayers rates each decoded player identity. Players backed by a
// verified truth record score maximally; the rest are weighed by how their
// event volume, kill ranking and name uniqueness look against their peers.
func (d *Decoder) scorePlayers(res *Result, matchTruth truth.MatchTruth, hasTruth bool) map[model.EntityID]confidence.Score {
	counts := make(map[model.EntityID]int, len(res.Players))
	total := 0
	for id := range res.Players {
		if p, ok := res.Profiles[id]; ok {
			counts[id] = p.Events
			total += p.Events
		}
	}
	peerAvg := 0.0
	if len(counts) > 0 {
		peerAvg = float64(total) / float64(len(counts))
	}

	nameCount := make(map[string]int, len(res.Players))
	for _, rec := range res.Players {
		nameCount[rec.Name]++
	}

	out := make(map[model.EntityID]confidence.Score, len(res.Players))
	for id, rec := range res.Players {
		if hasTruth {
			if _, ok := matchTruth.Player(rec.Name); ok {
				out[id] = confidence.Default(confidence.Signals{Verified: true})
				continue
			}
		}
		sig := confidence.Signals{
			RankConsistency: rankConsistency(res, id),
			Unique:          nameCount[rec.Name] == 1,
		}
		if peerAvg > 0 {
			sig.CountRatio = float64(counts[id]) / peerAvg
		}
		if hasTruth {
			sig.CrossCheckAgreement = 0 // named record missing from the truth file
		} else {
			sig.CrossCheckAgreement = 0.5 // no external record to disagree with
		}
		out[id] = confidence.Default(sig)
	}
	return out
}

// rankConsistency checks whether the player's kill count orders the same way
// as their credit volume: the two are independent decodings of the same
// underlying performance, so agreement is evidence the identity holds.
func rankConsistency(res *Result, id model.EntityID) float64 {
	kills := make(map[model.EntityID]float64, len(res.Players))
	gold := make(map[model.EntityID]float64, len(res.Players))
	ids := make([]model.EntityID, 0, len(res.Players))
	for pid := range res.Players {
		ids = append(ids, pid)
		if k, ok := res.KDA[pid]; ok {
			kills[pid] = float64(k.Kills)
		}
	}
	for _, ev := range res.Events {
		if p, ok := ev.Payload.(model.CreditPayload); ok {
			if _, isPlayer := res.Players[ev.Entity]; isPlayer {
				gold[ev.Entity] += p.Amount
			}
		}
	}
	if len(ids) < 2 {
		return 1
	}

	diff := rank(ids, id, kills) - rank(ids, id, gold)
	if diff < 0 {
		diff = -diff
	}
	return 1 - float64(diff)/float64(len(ids)-1)
}

// rank counts how many peers strictly exceed the candidate on the metric.
func rank(ids []model.EntityID, id model.EntityID, metric map[model.EntityID]float64) int {
	mine := metric[id]
	higher := 0
	for _, other := range ids {
		if other != id && metric[other] > mine {
			higher++
		}
	}
	return higher
}

// Package directory extracts the player table from the first frame of a
// replay. Player metadata blocks are located by fixed 3-byte markers; name,
// entity id, hero id and team sit at fixed offsets relative to each marker.
package directory

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/turnabouthero/go-vgr-metrics/internal/config"
	"github.com/turnabouthero/go-vgr-metrics/internal/model"
)

// Builder scans frame 0 for player metadata blocks.
type Builder struct {
	cfg       config.DirectoryConfig
	markers   [][]byte
	metaOrder binary.ByteOrder
	heroName  func(uint16) string
}

// New compiles a Builder from the directory configuration. heroName resolves
// hero ids to display names and may be nil.
func New(cfg config.DirectoryConfig, metaOrder binary.ByteOrder, heroName func(uint16) string) (*Builder, error) {
	b := &Builder{cfg: cfg, metaOrder: metaOrder, heroName: heroName}
	for _, m := range cfg.Markers {
		sig, err := hex.DecodeString(m)
		if err != nil || len(sig) != 3 {
			return nil, fmt.Errorf("marker %q: must be 3 hex bytes", m)
		}
		b.markers = append(b.markers, sig)
	}
	if len(b.markers) == 0 {
		return nil, fmt.Errorf("no player markers configured")
	}
	return b, nil
}

// Directory is the canonical entity → player table for one replay.
type Directory struct {
	Players map[model.EntityID]model.PlayerRecord

	// byPosition holds canonical ids in order of appearance in frame 0.
	byPosition []model.EntityID
}

// Build scans the zeroth frame and returns the player directory. A frame
// with no recognizable player blocks yields an empty directory, not an
// error; downstream inference degrades to low-confidence output.
func (b *Builder) Build(frame0 []byte) *Directory {
	var hits []int
	for _, marker := range b.markers {
		pos := 0
		for {
			i := bytes.Index(frame0[pos:], marker)
			if i < 0 {
				break
			}
			hits = append(hits, pos+i)
			pos += i + 1
		}
	}
	sort.Ints(hits)

	d := &Directory{Players: make(map[model.EntityID]model.PlayerRecord)}
	seenRaw := make(map[uint16]bool)

	for _, off := range hits {
		name, ok := b.readName(frame0, off+3)
		if !ok {
			continue
		}
		need := b.cfg.TeamOffset + 1
		if n := b.cfg.EntityOffset + 2; n > need {
			need = n
		}
		if n := b.cfg.HeroOffset + 2; n > need {
			need = n
		}
		if off+need > len(frame0) {
			continue
		}

		rawID := b.metaOrder.Uint16(frame0[off+b.cfg.EntityOffset:])
		if rawID == 0 {
			continue
		}
		// Alignment echoes repeat a block a few bytes later; the first
		// occurrence is the real one.
		if seenRaw[rawID] {
			continue
		}
		seenRaw[rawID] = true

		heroID := b.metaOrder.Uint16(frame0[off+b.cfg.HeroOffset:])
		team := model.TeamUnknown
		switch frame0[off+b.cfg.TeamOffset] {
		case 1:
			team = model.TeamLeft
		case 2:
			team = model.TeamRight
		}

		rec := model.PlayerRecord{
			Entity:   model.EntityID(rawID).SwapBytes(),
			RawID:    rawID,
			Name:     name,
			HeroID:   heroID,
			Team:     team,
			Position: len(d.byPosition),
		}
		if b.heroName != nil {
			rec.HeroName = b.heroName(heroID)
		}
		d.Players[rec.Entity] = rec
		d.byPosition = append(d.byPosition, rec.Entity)
	}
	return d
}

// readName decodes the printable-ASCII run starting at pos as a display
// name, rejecting short names and configured non-player prefixes.
func (b *Builder) readName(data []byte, pos int) (string, bool) {
	end := pos
	limit := pos + b.cfg.MaxNameLen
	if limit > len(data) {
		limit = len(data)
	}
	for end < limit && data[end] >= 0x20 && data[end] <= 0x7E {
		end++
	}
	name := string(data[pos:end])
	if len(name) < b.cfg.MinNameLen {
		return "", false
	}
	for _, prefix := range b.cfg.SkipPrefixes {
		if strings.HasPrefix(name, prefix) {
			return "", false
		}
	}
	return name, true
}

// Entities returns the canonical player ids in order of appearance.
func (d *Directory) Entities() []model.EntityID {
	out := make([]model.EntityID, len(d.byPosition))
	copy(out, d.byPosition)
	return out
}

// TeamOf resolves a canonical entity id to its team, or TeamUnknown.
func (d *Directory) TeamOf(id model.EntityID) model.Team {
	if rec, ok := d.Players[id]; ok {
		return rec.Team
	}
	return model.TeamUnknown
}

// ByName finds a player record by exact display name.
func (d *Directory) ByName(name string) (model.PlayerRecord, bool) {
	for _, rec := range d.Players {
		if rec.Name == name {
			return rec, true
		}
	}
	return model.PlayerRecord{}, false
}

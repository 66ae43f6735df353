// Package scanner decodes typed events from raw frame bytes by scanning for
// a configurable catalog of fixed-layout signatures. Most signature matches
// are coincidental byte noise; each match is structurally validated and a
// failed match advances exactly one byte, because a genuine record can begin
// one byte after a false start.
package scanner

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/turnabouthero/go-vgr-metrics/internal/config"
	"github.com/turnabouthero/go-vgr-metrics/internal/model"
	"github.com/turnabouthero/go-vgr-metrics/internal/replay"
)

// Check is one compiled structural constraint: the record bytes at Offset
// (relative to the signature start) must equal Want.
type Check struct {
	Offset int
	Want   []byte
}

// Descriptor is one compiled catalog entry. Field offsets are relative to
// the signature start and may be negative; a negative timestamp offset means
// the field precedes the signature in the stream.
type Descriptor struct {
	Kind      model.EventKind
	Signature []byte
	Length    int
	Checks    []Check

	EntityOffset int

	TimestampOffset int
	HasTimestamp    bool

	AmountOffset int
	HasAmount    bool

	ActionOffset int
	HasAction    bool

	ItemOffset int
	HasItem    bool

	QuantityOffset int
	HasQuantity    bool

	// Advance is how far to skip past a validated match. At least 1.
	Advance int
}

// Scanner scans frames against a compiled descriptor catalog.
type Scanner struct {
	descs   []Descriptor
	maxTS   float64
	budget  int
	eventID binary.ByteOrder
	metaID  binary.ByteOrder
	fieldBE binary.ByteOrder // non-id event fields are big-endian
	log     zerolog.Logger
}

// New compiles the configured catalog into a Scanner.
func New(cfg *config.Config, log zerolog.Logger) (*Scanner, error) {
	eventID, err := config.ByteOrder(cfg.Decode.EventIDOrder)
	if err != nil {
		return nil, err
	}
	metaID, err := config.ByteOrder(cfg.Decode.MetadataIDOrder)
	if err != nil {
		return nil, err
	}
	descs, err := Compile(cfg.Events)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		descs:   descs,
		maxTS:   cfg.Decode.MaxMatchSeconds,
		budget:  cfg.Decode.FrameScanBudget,
		eventID: eventID,
		metaID:  metaID,
		fieldBE: binary.BigEndian,
		log:     log,
	}, nil
}

// Compile turns catalog configuration entries into descriptors.
func Compile(events []config.EventConfig) ([]Descriptor, error) {
	var out []Descriptor
	for _, ev := range events {
		kind, err := parseKind(ev.Kind)
		if err != nil {
			return nil, err
		}
		sig, err := hex.DecodeString(ev.Signature)
		if err != nil || len(sig) != 3 {
			return nil, fmt.Errorf("event %q: signature must be 3 hex bytes", ev.Kind)
		}
		d := Descriptor{
			Kind:         kind,
			Signature:    sig,
			Length:       ev.Length,
			EntityOffset: ev.EntityOffset,
			Advance:      ev.AdvanceOnMatch,
		}
		if d.Advance < 1 {
			d.Advance = 1
		}
		for _, chk := range ev.Checks {
			want, err := hex.DecodeString(chk.Value)
			if err != nil {
				return nil, fmt.Errorf("event %q: bad check value %q", ev.Kind, chk.Value)
			}
			d.Checks = append(d.Checks, Check{Offset: chk.Offset, Want: want})
		}
		if ev.TimestampOffset != nil {
			d.TimestampOffset, d.HasTimestamp = *ev.TimestampOffset, true
		}
		if ev.AmountOffset != nil {
			d.AmountOffset, d.HasAmount = *ev.AmountOffset, true
		}
		if ev.ActionOffset != nil {
			d.ActionOffset, d.HasAction = *ev.ActionOffset, true
		}
		if ev.ItemOffset != nil {
			d.ItemOffset, d.HasItem = *ev.ItemOffset, true
		}
		if ev.QuantityOffset != nil {
			d.QuantityOffset, d.HasQuantity = *ev.QuantityOffset, true
		}
		out = append(out, d)
	}
	return out, nil
}

func parseKind(s string) (model.EventKind, error) {
	switch s {
	case "kill":
		return model.KindKill, nil
	case "death":
		return model.KindDeath, nil
	case "credit":
		return model.KindCredit, nil
	case "item_acquire":
		return model.KindItemAcquire, nil
	case "item_equip":
		return model.KindItemEquip, nil
	default:
		return 0, fmt.Errorf("unknown event kind %q", s)
	}
}

// ScanReplay scans every frame of r and returns the accepted events in
// (frame, offset) order. known filters entity ids: events referencing an id
// it rejects are discarded, never retained as orphans.
func (s *Scanner) ScanReplay(r *replay.Replay, known func(model.EntityID) bool) []model.Event {
	var events []model.Event
	for _, f := range r.Frames {
		base := r.GlobalOffset(f.Index, 0)
		frameEvents := s.ScanFrame(f.Index, base, f.Data, known)
		events = append(events, frameEvents...)
	}
	return events
}

// ScanFrame scans one frame's bytes. base is the global offset of the
// frame's first byte; emitted events carry global offsets.
func (s *Scanner) ScanFrame(frameIdx int, base int64, data []byte, known func(model.EntityID) bool) []model.Event {
	var events []model.Event
	budget := s.budget

	for di := range s.descs {
		d := &s.descs[di]
		pos := 0
		for {
			if budget <= 0 {
				s.log.Warn().Int("frame", frameIdx).Msg("frame scan budget exhausted")
				return s.sortFrame(events)
			}
			i := bytes.Index(data[pos:], d.Signature)
			if i < 0 {
				break
			}
			pos += i
			budget--

			ev, ok := s.decodeAt(d, frameIdx, base, data, pos, known)
			if !ok {
				pos++
				continue
			}
			events = append(events, ev)
			pos += d.Advance
		}
	}
	return s.sortFrame(events)
}

// decodeAt validates and decodes one candidate match at pos. Returns false
// when any structural constraint fails or the entity is unknown; the caller
// then advances exactly one byte.
func (s *Scanner) decodeAt(d *Descriptor, frameIdx int, base int64, data []byte, pos int, known func(model.EntityID) bool) (model.Event, bool) {
	if pos+d.Length > len(data) {
		return model.Event{}, false
	}
	for _, chk := range d.Checks {
		start := pos + chk.Offset
		if start < 0 || start+len(chk.Want) > len(data) {
			return model.Event{}, false
		}
		if !bytes.Equal(data[start:start+len(chk.Want)], chk.Want) {
			return model.Event{}, false
		}
	}

	if pos+d.EntityOffset+2 > len(data) {
		return model.Event{}, false
	}
	eid := model.EntityID(s.eventID.Uint16(data[pos+d.EntityOffset:]))
	if known != nil && !known(eid) {
		return model.Event{}, false
	}

	ev := model.Event{
		Entity: eid,
		Frame:  frameIdx,
		Offset: base + int64(pos),
	}

	if d.HasTimestamp {
		// A timestamp that cannot be read (a negative offset running past
		// the frame start) or that falls outside the plausible range is
		// absent, not grounds for rejection.
		start := pos + d.TimestampOffset
		if start >= 0 && start+4 <= len(data) {
			ts := float64(math.Float32frombits(s.fieldBE.Uint32(data[start:])))
			if ts > 0 && ts < s.maxTS {
				ev.Timestamp = ts
				ev.HasTimestamp = true
			}
		}
	}

	switch d.Kind {
	case model.KindKill:
		ev.Payload = model.KillPayload{}
	case model.KindDeath:
		ev.Payload = model.DeathPayload{}
	case model.KindCredit:
		p := model.CreditPayload{}
		if d.HasAmount && pos+d.AmountOffset+4 <= len(data) {
			p.Amount = float64(math.Float32frombits(s.fieldBE.Uint32(data[pos+d.AmountOffset:])))
		}
		if d.HasAction && pos+d.ActionOffset < len(data) {
			p.Action = data[pos+d.ActionOffset]
		}
		ev.Payload = p
	case model.KindItemAcquire:
		p := model.ItemAcquirePayload{Quantity: 1}
		if d.HasItem && pos+d.ItemOffset+2 <= len(data) {
			p.ItemID = s.metaID.Uint16(data[pos+d.ItemOffset:])
		}
		if d.HasQuantity && pos+d.QuantityOffset < len(data) {
			p.Quantity = int(data[pos+d.QuantityOffset])
		}
		ev.Payload = p
	case model.KindItemEquip:
		p := model.ItemEquipPayload{}
		if d.HasItem && pos+d.ItemOffset+2 <= len(data) {
			p.ItemID = s.metaID.Uint16(data[pos+d.ItemOffset:])
		}
		ev.Payload = p
	}
	return ev, true
}

// sortFrame orders one frame's events by stream offset. Per-descriptor
// passes find them in per-kind order, not stream order.
func (s *Scanner) sortFrame(events []model.Event) []model.Event {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Offset < events[j].Offset })
	return events
}

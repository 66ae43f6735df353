package model

import "math/bits"

// Team represents one of the two sides of a match.
type Team int

const (
	TeamUnknown Team = 0
	TeamLeft    Team = 1
	TeamRight   Team = 2
)

func (t Team) String() string {
	switch t {
	case TeamLeft:
		return "left"
	case TeamRight:
		return "right"
	default:
		return "unknown"
	}
}

// Opponent returns the other side, or TeamUnknown.
func (t Team) Opponent() Team {
	switch t {
	case TeamLeft:
		return TeamRight
	case TeamRight:
		return TeamLeft
	default:
		return TeamUnknown
	}
}

// MarshalJSON emits the team's string form so reports read "left", not 1.
func (t Team) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// ParseTeam parses the string form produced by Team.String.
func ParseTeam(s string) Team {
	switch s {
	case "left":
		return TeamLeft
	case "right":
		return TeamRight
	default:
		return TeamUnknown
	}
}

// EntityID is a 16-bit in-game entity identifier in canonical (event-stream)
// byte order. Player-metadata blocks carry the same id with its bytes
// swapped; SwapBytes converts between the two orderings.
type EntityID uint16

// SwapBytes returns the id with its two bytes exchanged. The operation is its
// own inverse, so it converts metadata order to canonical order and back.
func (id EntityID) SwapBytes() EntityID {
	return EntityID(bits.ReverseBytes16(uint16(id)))
}

// ---- Events ----

// EventKind discriminates decoded event records.
type EventKind int

const (
	KindKill EventKind = iota
	KindDeath
	KindCredit
	KindItemAcquire
	KindItemEquip
)

func (k EventKind) String() string {
	switch k {
	case KindKill:
		return "kill"
	case KindDeath:
		return "death"
	case KindCredit:
		return "credit"
	case KindItemAcquire:
		return "item_acquire"
	case KindItemEquip:
		return "item_equip"
	default:
		return "unknown"
	}
}

// Payload is the kind-specific part of an Event. Consumption sites type-switch
// over the concrete payload types; adding a kind means adding a type here and
// a case at every switch.
type Payload interface {
	Kind() EventKind
}

// KillPayload marks a kill record. The killer is Event.Entity.
type KillPayload struct{}

// DeathPayload marks a death record. The victim is Event.Entity.
type DeathPayload struct{}

// CreditPayload carries a gold/credit change for Event.Entity.
type CreditPayload struct {
	Amount float64
	Action byte
}

// ItemAcquirePayload records an item entering Event.Entity's inventory.
type ItemAcquirePayload struct {
	ItemID   uint16
	Quantity int
}

// ItemEquipPayload records an item being equipped by Event.Entity.
type ItemEquipPayload struct {
	ItemID uint16
}

func (KillPayload) Kind() EventKind        { return KindKill }
func (DeathPayload) Kind() EventKind       { return KindDeath }
func (CreditPayload) Kind() EventKind      { return KindCredit }
func (ItemAcquirePayload) Kind() EventKind { return KindItemAcquire }
func (ItemEquipPayload) Kind() EventKind   { return KindItemEquip }

// Event is one decoded, structurally validated record from the replay byte
// stream. Events are immutable once emitted; aggregation filters and groups,
// it never edits.
type Event struct {
	Entity       EntityID
	Frame        int
	Offset       int64 // global byte offset of the signature start
	Timestamp    float64
	HasTimestamp bool
	Payload      Payload
}

// Kind returns the discriminator of the event's payload.
func (e Event) Kind() EventKind { return e.Payload.Kind() }

// ---- Players and entities ----

// PlayerRecord is one player's static metadata decoded from frame 0.
// Hero, team and name never change during a match.
type PlayerRecord struct {
	Entity   EntityID // canonical order
	RawID    uint16   // metadata order, kept for traceability
	Name     string
	HeroID   uint16
	HeroName string
	Team     Team
	Position int // order of appearance in frame 0
}

// Classification is the advisory behavioral category assigned to an entity
// from its aggregate event statistics. There is no ground truth for
// non-player entities, so this is evidence, never fact.
type Classification int

const (
	ClassUnknown Classification = iota
	ClassPlayer
	ClassStructure
	ClassMinion
	ClassJungleCreep
	ClassProjectileOrEffect
	ClassPersistentNPC
	ClassObjectiveOrBoss
	ClassEphemeral
)

func (c Classification) String() string {
	switch c {
	case ClassPlayer:
		return "player"
	case ClassStructure:
		return "structure"
	case ClassMinion:
		return "minion"
	case ClassJungleCreep:
		return "jungle_creep"
	case ClassProjectileOrEffect:
		return "projectile_or_effect"
	case ClassPersistentNPC:
		return "persistent_npc"
	case ClassObjectiveOrBoss:
		return "objective_or_boss"
	case ClassEphemeral:
		return "ephemeral"
	default:
		return "unknown"
	}
}

// ---- Aggregates ----

// KDARecord is a per-entity kill/death aggregate. It is derived from the
// event set plus the current filter parameters and can be recomputed at any
// time; it is never source-of-truth state.
type KDARecord struct {
	Entity      EntityID
	Kills       int
	Deaths      int
	KillEvents  []Event
	DeathEvents []Event
}

// KillDeathPair is one best-effort causal link between a kill and a death.
// Victim is only meaningful when HasVictim is true; a kill with no qualifying
// death inside the pairing window is still reported, victimless.
type KillDeathPair struct {
	Killer    EntityID
	Victim    EntityID
	HasVictim bool
	KillTime  float64
	DeathTime float64
	Delta     float64
	Frame     int
}

// MatchOutcome is the inferred winner/loser of one replay. Winner ==
// TeamUnknown means the inference declined to guess.
type MatchOutcome struct {
	Winner           Team
	Loser            Team
	DestructionFrame int
	TotalFrames      int
	LeftDestroyed    int
	RightDestroyed   int
	Confidence       float64
	Method           string
}

// Outcome inference method labels.
const (
	MethodCrystalCluster    = "crystal_cluster"
	MethodDestructionTotals = "destruction_totals"
	MethodUndetermined      = "undetermined"
)

// ObjectiveCapture is a detected capture of a neutral objective, attributed
// to a team by the credit flow around the objective's death record.
type ObjectiveCapture struct {
	Entity     EntityID `json:"entity"`
	Timestamp  float64  `json:"timestamp"`
	Frame      int      `json:"frame"`
	Team       Team     `json:"team"` // TeamUnknown when inconclusive
	Confidence float64  `json:"confidence"`
}

// ---- Storage/report rows ----

// ReplaySummary is the lightweight stored record for list/show commands.
type ReplaySummary struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	DecodedAt   string  `json:"decoded_at"`
	TotalFrames int     `json:"total_frames"`
	Duration    float64 `json:"duration"`
	Winner      string  `json:"winner"`
	Confidence  float64 `json:"confidence"`
	Method      string  `json:"method"`
	PlayerCount int     `json:"player_count"`
}

// PlayerStats is the per-player row persisted for one decoded replay.
type PlayerStats struct {
	ReplayName string  `json:"replay_name"`
	Name       string  `json:"name"`
	Team       Team    `json:"team"`
	HeroName   string  `json:"hero_name"`
	Kills      int     `json:"kills"`
	Deaths     int     `json:"deaths"`
	Gold       float64 `json:"gold"`
	ItemEvents int     `json:"item_events"`

	// Populated from an external truth record when one is available.
	TruthKills  *int `json:"truth_kills,omitempty"`
	TruthDeaths *int `json:"truth_deaths,omitempty"`
}

// KDRatio returns kills per death, or kills when the player never died.
func (s *PlayerStats) KDRatio() float64 {
	if s.Deaths == 0 {
		return float64(s.Kills)
	}
	return float64(s.Kills) / float64(s.Deaths)
}

// Package truth reads optional externally verified match records. The
// decoder uses them to stamp maximal confidence on facts it would otherwise
// guess and to parameterize the post-match death filter; it fully functions
// without them.
package truth

import (
	"encoding/json"
	"fmt"
	"os"
)

// PlayerTruth holds one player's authoritative counters.
type PlayerTruth struct {
	Kills   int     `json:"kills"`
	Deaths  int     `json:"deaths"`
	Assists int     `json:"assists"`
	Gold    float64 `json:"gold"`
}

// MatchTruth is the verified record of one match, keyed by player display
// name.
type MatchTruth struct {
	Duration float64                `json:"duration"`
	Players  map[string]PlayerTruth `json:"players"`
}

// Set maps replay base names to their verified records.
type Set map[string]MatchTruth

// Load reads a truth file. An empty path yields an empty set.
func Load(path string) (Set, error) {
	if path == "" {
		return Set{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read truth file: %w", err)
	}
	var s Set
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse truth file %s: %w", path, err)
	}
	return s, nil
}

// Match looks up the record for a replay base name.
func (s Set) Match(name string) (MatchTruth, bool) {
	m, ok := s[name]
	return m, ok
}

// Player looks up one player's record within a match.
func (m MatchTruth) Player(name string) (PlayerTruth, bool) {
	p, ok := m.Players[name]
	return p, ok
}

// Package config loads the decoder configuration: signature catalog, scan
// thresholds, byte orderings and the hero name table. Defaults are embedded;
// a TOML file overlays them and a small set of environment variables override
// paths.
package config

import (
	_ "embed"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
)

//go:embed default.toml
var defaultTOML []byte

// Config is the full decoder configuration.
type Config struct {
	Decode     DecodeConfig      `toml:"decode"`
	Directory  DirectoryConfig   `toml:"directory"`
	Objectives ObjectiveConfig   `toml:"objectives"`
	Events     []EventConfig     `toml:"events"`
	Heroes     map[string]string `toml:"heroes"`
}

// DecodeConfig holds pipeline-wide thresholds and the per-version entity id
// byte orderings.
type DecodeConfig struct {
	MaxMatchSeconds    float64 `toml:"max_match_seconds"`
	DedupeEpsilon      float64 `toml:"dedupe_epsilon"`
	DeathBuffer        float64 `toml:"death_buffer"`
	PairWindow         float64 `toml:"pair_window"`
	ClusterThreshold   int     `toml:"cluster_threshold"`
	FallbackConfidence float64 `toml:"fallback_confidence"`
	FrameScanBudget    int     `toml:"frame_scan_budget"`
	EventIDOrder       string  `toml:"event_id_order"`
	MetadataIDOrder    string  `toml:"metadata_id_order"`
}

// DirectoryConfig describes the player metadata block layout of frame 0.
type DirectoryConfig struct {
	Markers      []string `toml:"markers"`
	EntityOffset int      `toml:"entity_offset"`
	HeroOffset   int      `toml:"hero_offset"`
	TeamOffset   int      `toml:"team_offset"`
	MinNameLen   int      `toml:"min_name_len"`
	MaxNameLen   int      `toml:"max_name_len"`
	SkipPrefixes []string `toml:"skip_prefixes"`
}

// ObjectiveConfig parameterizes neutral objective capture detection.
type ObjectiveConfig struct {
	EntityThreshold int     `toml:"entity_threshold"`
	CreditRadius    int64   `toml:"credit_radius"`
	CreditRatio     float64 `toml:"credit_ratio"`
	Confidence      float64 `toml:"confidence"`
	CreditActions   []int   `toml:"credit_actions"`
}

// EventConfig is one entry of the signature catalog. Offsets are relative to
// the signature start and may be negative. Optional field offsets are nil
// when the event kind does not carry the field.
type EventConfig struct {
	Kind            string        `toml:"kind"`
	Signature       string        `toml:"signature"`
	Length          int           `toml:"length"`
	EntityOffset    int           `toml:"entity_offset"`
	TimestampOffset *int          `toml:"timestamp_offset"`
	AmountOffset    *int          `toml:"amount_offset"`
	ActionOffset    *int          `toml:"action_offset"`
	ItemOffset      *int          `toml:"item_offset"`
	QuantityOffset  *int          `toml:"quantity_offset"`
	AdvanceOnMatch  int           `toml:"advance_on_match"`
	Checks          []CheckConfig `toml:"checks"`
}

// CheckConfig is one structural validation constraint: the bytes at Offset
// must equal the hex-encoded Value.
type CheckConfig struct {
	Offset int    `toml:"offset"`
	Value  string `toml:"value"`
}

// Env holds environment variable overrides for command-line defaults.
type Env struct {
	ConfigPath string `env:"VGR_CONFIG"`
	DBPath     string `env:"VGR_DB"`
	ReplayDir  string `env:"VGR_REPLAY_DIR"`
}

// FromEnv reads the supported environment overrides.
func FromEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	var c Config
	if err := toml.Unmarshal(defaultTOML, &c); err != nil {
		return nil, fmt.Errorf("parse embedded config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load returns the default configuration overlaid with the TOML file at
// path. An empty path yields the defaults unchanged.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	// A file that declares its own catalog replaces the default one wholesale.
	var overlay Config
	if err := toml.Unmarshal(b, &overlay); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := toml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(overlay.Events) > 0 {
		c.Events = overlay.Events
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) validate() error {
	if len(c.Events) == 0 {
		return fmt.Errorf("empty event catalog")
	}
	if _, err := ByteOrder(c.Decode.EventIDOrder); err != nil {
		return fmt.Errorf("event_id_order: %w", err)
	}
	if _, err := ByteOrder(c.Decode.MetadataIDOrder); err != nil {
		return fmt.Errorf("metadata_id_order: %w", err)
	}
	for _, ev := range c.Events {
		sig, err := hex.DecodeString(ev.Signature)
		if err != nil || len(sig) != 3 {
			return fmt.Errorf("event %q: signature must be 3 hex bytes", ev.Kind)
		}
		if ev.Length < len(sig) {
			return fmt.Errorf("event %q: length %d shorter than signature", ev.Kind, ev.Length)
		}
		for _, chk := range ev.Checks {
			if _, err := hex.DecodeString(chk.Value); err != nil {
				return fmt.Errorf("event %q: bad check value %q", ev.Kind, chk.Value)
			}
		}
	}
	for _, m := range c.Directory.Markers {
		b, err := hex.DecodeString(m)
		if err != nil || len(b) != 3 {
			return fmt.Errorf("directory marker %q: must be 3 hex bytes", m)
		}
	}
	return nil
}

// ByteOrder maps a configured ordering name to its binary.ByteOrder.
func ByteOrder(name string) (binary.ByteOrder, error) {
	switch name {
	case "big":
		return binary.BigEndian, nil
	case "little":
		return binary.LittleEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte order %q", name)
	}
}

// HeroName resolves a hero id to its display name, falling back to the hex
// form for ids absent from the table.
func (c *Config) HeroName(id uint16) string {
	if name, ok := c.Heroes[strconv.Itoa(int(id))]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", id)
}

package confidence

import (
	"math"
	"testing"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCompute_PerfectSignals(t *testing.T) {
	s := Default(Signals{
		CountRatio:          1.5,
		RankConsistency:     1.0,
		CrossCheckAgreement: 1.0,
		Unique:              true,
	})
	if !almost(s.Value, 1.0) {
		t.Errorf("value = %v, want 1.0", s.Value)
	}
	if s.Level != High {
		t.Errorf("level = %v, want high", s.Level)
	}
}

func TestCompute_CountRatioCapped(t *testing.T) {
	capped := Default(Signals{CountRatio: 1.5})
	over := Default(Signals{CountRatio: 10.0})
	if !almost(capped.Value, over.Value) {
		t.Errorf("ratio above cap changed the score: %v vs %v", capped.Value, over.Value)
	}
	if !almost(capped.Value, 0.4) {
		t.Errorf("capped count contribution = %v, want full 0.4 weight", capped.Value)
	}
}

func TestCompute_VerifiedBypassesWeighting(t *testing.T) {
	s := Default(Signals{Verified: true}) // all other signals at zero
	if s.Value != 1.0 || s.Level != High {
		t.Errorf("verified score = %+v, want maximal", s)
	}
}

func TestCompute_Levels(t *testing.T) {
	cases := []struct {
		name string
		in   Signals
		want Level
	}{
		{"zero signals", Signals{}, Low},
		{"medium band", Signals{CountRatio: 1.5, RankConsistency: 0.5}, Medium}, // 0.4 + 0.15
		{"high band", Signals{CountRatio: 1.5, RankConsistency: 1.0, CrossCheckAgreement: 0.5}, High}, // 0.8
	}
	for _, tc := range cases {
		got := Default(tc.in)
		if got.Level != tc.want {
			t.Errorf("%s: level = %v (value %v), want %v", tc.name, got.Level, got.Value, tc.want)
		}
	}
}

func TestCompute_NegativeInputsClamped(t *testing.T) {
	s := Default(Signals{CountRatio: -3, RankConsistency: -1, CrossCheckAgreement: -1})
	if s.Value != 0 {
		t.Errorf("value = %v, want 0", s.Value)
	}
}

func TestCompute_CustomWeights(t *testing.T) {
	w := Weights{Count: 1.0}
	s := Compute(Signals{CountRatio: 0.75}, w)
	if !almost(s.Value, 0.5) {
		t.Errorf("value = %v, want 0.5 (0.75/1.5 at weight 1)", s.Value)
	}
}

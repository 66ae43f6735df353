// Package confidence turns heterogeneous inference signals into a bounded,
// classified score. It is used wherever the decoder must guess instead of
// reading a verified fact.
package confidence

// Level classifies a score for reporting.
type Level int

const (
	Low Level = iota
	Medium
	High
)

func (l Level) String() string {
	switch l {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// Signals are the per-candidate inputs. CountRatio is the candidate's event
// count over the peer average; the other fractional signals live in [0,1].
// Verified marks a value sourced from an independently verified external
// record, which bypasses weighting entirely.
type Signals struct {
	CountRatio          float64
	RankConsistency     float64
	CrossCheckAgreement float64
	Unique              bool
	Verified            bool
}

// Weights is the contribution of each signal to the final score.
type Weights struct {
	Count      float64
	Rank       float64
	CrossCheck float64
	Unique     float64
}

// DefaultWeights is the standard weighting.
var DefaultWeights = Weights{Count: 0.4, Rank: 0.3, CrossCheck: 0.2, Unique: 0.1}

// Thresholds for classification.
const (
	highThreshold   = 0.8
	mediumThreshold = 0.5

	// countRatioCap bounds how much an above-average event count can help.
	countRatioCap = 1.5
)

// Score is a bounded confidence value with its classification.
type Score struct {
	Value float64
	Level Level
}

// Compute scores the signals with the given weights. A verified signal
// always yields the maximal score.
func Compute(s Signals, w Weights) Score {
	if s.Verified {
		return Score{Value: 1.0, Level: High}
	}

	ratio := s.CountRatio
	if ratio > countRatioCap {
		ratio = countRatioCap
	}
	if ratio < 0 {
		ratio = 0
	}

	value := w.Count*(ratio/countRatioCap) +
		w.Rank*clamp01(s.RankConsistency) +
		w.CrossCheck*clamp01(s.CrossCheckAgreement)
	if s.Unique {
		value += w.Unique
	}
	value = clamp01(value)

	return Score{Value: value, Level: classify(value)}
}

// Default scores the signals with DefaultWeights.
func Default(s Signals) Score {
	return Compute(s, DefaultWeights)
}

func classify(v float64) Level {
	switch {
	case v >= highThreshold:
		return High
	case v >= mediumThreshold:
		return Medium
	default:
		return Low
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

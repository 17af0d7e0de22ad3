// Package sentiment classifies post text as positive, neutral or negative.
package sentiment

import (
	"context"
	"fmt"
)

// Label is the coarse sentiment class.
type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

// Valid reports whether l is one of the three known labels.
func (l Label) Valid() bool {
	switch l {
	case Positive, Neutral, Negative:
		return true
	}
	return false
}

// Result is a label plus a signed magnitude in [-1, 1].
type Result struct {
	Label Label   `json:"label"`
	Score float64 `json:"score"`
}

// NeutralResult is what callers fall back to when classification fails.
var NeutralResult = Result{Label: Neutral, Score: 0}

// Classifier maps text to a sentiment result.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// Thresholds split a compound score into labels.
type Thresholds struct {
	PositiveMin float64 `yaml:"positive_min"`
	NegativeMax float64 `yaml:"negative_max"`
}

// DefaultThresholds returns the stock +/-0.1 split.
func DefaultThresholds() Thresholds {
	return Thresholds{PositiveMin: 0.1, NegativeMax: -0.1}
}

// Validate checks the thresholds leave room for a neutral band.
func (t Thresholds) Validate() error {
	if t.PositiveMin < -1 || t.PositiveMin > 1 || t.NegativeMax < -1 || t.NegativeMax > 1 {
		return fmt.Errorf("sentiment thresholds must be within [-1, 1]")
	}
	if t.NegativeMax >= t.PositiveMin {
		return fmt.Errorf("negative_max (%.2f) must be below positive_min (%.2f)", t.NegativeMax, t.PositiveMin)
	}
	return nil
}

// Label maps a compound score to a label.
func (t Thresholds) Label(score float64) Label {
	switch {
	case score >= t.PositiveMin:
		return Positive
	case score <= t.NegativeMax:
		return Negative
	}
	return Neutral
}

// Result builds a labelled result, clamping score into [-1, 1].
func (t Thresholds) Result(score float64) Result {
	score = clamp(score, -1, 1)
	return Result{Label: t.Label(score), Score: score}
}

// Distribution counts labels over a set of results.
func Distribution(results []Result) map[Label]int {
	dist := map[Label]int{Positive: 0, Neutral: 0, Negative: 0}
	for _, r := range results {
		dist[r.Label]++
	}
	return dist
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package sentiment

import (
	"context"
	"strings"

	"github.com/jonreiter/govader"
)

// Lexicon classifies text offline with the VADER lexicon and rules.
type Lexicon struct {
	analyzer   *govader.SentimentIntensityAnalyzer
	thresholds Thresholds
}

// NewLexicon creates a VADER-backed classifier.
func NewLexicon(thresholds Thresholds) *Lexicon {
	return &Lexicon{
		analyzer:   govader.NewSentimentIntensityAnalyzer(),
		thresholds: thresholds,
	}
}

// Classify never fails; empty text is neutral.
func (l *Lexicon) Classify(_ context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return NeutralResult, nil
	}
	return l.thresholds.Result(l.Compound(text)), nil
}

// Compound returns the VADER compound score of text in [-1, 1].
func (l *Lexicon) Compound(text string) float64 {
	return l.analyzer.PolarityScores(text).Compound
}

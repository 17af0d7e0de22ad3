package river

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/elonfeng/techriver/pkg/sentiment"
	"github.com/elonfeng/techriver/pkg/source"
)

// DefaultThreshold is the minimum importance a post needs to stay in the river.
const DefaultThreshold = 0.15

// CommentWeight is how many upvotes one comment is worth in the engagement signal.
const CommentWeight = 3

// ErrScoring marks a post whose importance could not be computed.
var ErrScoring = errors.New("scoring failure")

// Weights are the per-component multipliers of the importance score. They sum to 1.
type Weights struct {
	Engagement float64 `yaml:"engagement"`
	Recency    float64 `yaml:"recency"`
	Relevance  float64 `yaml:"relevance"`
	Sentiment  float64 `yaml:"sentiment"`
}

// DefaultWeights favours fresh, on-topic posts over raw popularity.
func DefaultWeights() Weights {
	return Weights{Engagement: 0.15, Recency: 0.45, Relevance: 0.30, Sentiment: 0.10}
}

// Validate checks every weight is non-negative and the total is 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"engagement": w.Engagement,
		"recency":    w.Recency,
		"relevance":  w.Relevance,
		"sentiment":  w.Sentiment,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weight %s must be non-negative, got %v", name, v)
		}
	}
	sum := w.Engagement + w.Recency + w.Relevance + w.Sentiment
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}

// Components holds the four weighted inputs of an importance score.
type Components struct {
	Engagement float64 `json:"engagement"`
	Recency    float64 `json:"recency"`
	Relevance  float64 `json:"relevance"`
	Sentiment  float64 `json:"sentiment"`
}

// Scorer computes importance scores in [0, 1].
type Scorer struct {
	weights Weights
	now     func() time.Time
	log     *slog.Logger
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithNow sets the clock used to age posts.
func WithNow(now func() time.Time) ScorerOption {
	return func(s *Scorer) { s.now = now }
}

// WithLogger sets the logger used to report scoring failures.
func WithLogger(l *slog.Logger) ScorerOption {
	return func(s *Scorer) {
		if l != nil {
			s.log = l
		}
	}
}

// NewScorer creates a scorer. Zero weights fall back to DefaultWeights.
func NewScorer(w Weights, opts ...ScorerOption) *Scorer {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	s := &Scorer{weights: w, now: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the configured weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score returns the weighted importance of a post. A post that cannot be
// scored is logged and gets 0 so it falls below any positive threshold.
func (s *Scorer) Score(p source.RawPost, sent sentiment.Result, tags []string) float64 {
	c, err := s.Breakdown(p, sent, tags)
	if err != nil {
		s.log.Warn("score post", "id", p.ID, "error", err)
		return 0
	}

	total := c.Engagement*s.weights.Engagement +
		c.Recency*s.weights.Recency +
		c.Relevance*s.weights.Relevance +
		c.Sentiment*s.weights.Sentiment
	return clamp01(total)
}

// Breakdown returns the unweighted components of a post's importance.
func (s *Scorer) Breakdown(p source.RawPost, sent sentiment.Result, tags []string) (Components, error) {
	if p.CreatedAt.IsZero() {
		return Components{}, fmt.Errorf("%w: post %q has no timestamp", ErrScoring, p.ID)
	}
	if math.IsNaN(sent.Score) || math.IsInf(sent.Score, 0) {
		return Components{}, fmt.Errorf("%w: post %q has sentiment score %v", ErrScoring, p.ID, sent.Score)
	}
	if !sent.Label.Valid() {
		return Components{}, fmt.Errorf("%w: post %q has sentiment label %q", ErrScoring, p.ID, sent.Label)
	}

	hours := s.now().Sub(p.CreatedAt).Hours()
	return Components{
		Engagement: Engagement(p.Score, p.Comments),
		Recency:    Recency(hours),
		Relevance:  Relevance(len(tags)),
		Sentiment:  SentimentBonus(sent),
	}, nil
}

// Engagement scores upvotes and comments, with a bonus for discussion-heavy posts.
func Engagement(upvotes, comments int) float64 {
	score := EngagementCurve(float64(upvotes) + CommentWeight*float64(comments))

	if comments > 0 {
		ratio := float64(comments) / float64(max(upvotes, 1))
		if ratio > 0.5 {
			score += math.Min((ratio-0.5)*0.1, 0.1)
		}
	}
	return math.Min(score, 1)
}

// EngagementCurve maps a raw engagement value onto [0.05, 1). It is non-decreasing.
func EngagementCurve(e float64) float64 {
	switch {
	case e <= 0:
		return 0.05
	case e <= 5:
		return 0.05 + e/5*0.10
	case e <= 25:
		return 0.15 + (e-5)/20*0.15
	case e <= 100:
		return 0.30 + math.Log10(e/25)/math.Log10(4)*0.25
	case e <= 500:
		return 0.55 + math.Log10(e/100)/math.Log10(5)*0.25
	default:
		return 0.80 + 0.20*(1-500/e)
	}
}

// Recency decays from 1.0 for posts under an hour old to a 0.05 floor after a month.
// Negative ages (clock skew) count as brand new.
func Recency(hours float64) float64 {
	switch {
	case hours <= 1:
		return 1.0
	case hours <= 24:
		return 1.0 - (hours-1)/23*0.5
	case hours <= 168:
		return 0.5 - (hours-24)/144*0.3
	case hours <= 720:
		return 0.2 - (hours-168)/552*0.15
	default:
		return 0.05
	}
}

var relevanceBands = []float64{0.1, 0.4, 0.6, 0.75, 0.9, 1.0}

// Relevance scores the number of topical tags, scaled to at most 0.8.
func Relevance(tagCount int) float64 {
	raw := relevanceBands[min(max(tagCount, 0), len(relevanceBands)-1)]
	return raw * 0.8
}

// SentimentBonus rewards positive posts more than it penalises negative ones.
func SentimentBonus(r sentiment.Result) float64 {
	mag := math.Abs(r.Score)
	switch r.Label {
	case sentiment.Positive:
		return math.Min(mag*0.3, 0.3)
	case sentiment.Negative:
		return -math.Min(mag*0.1, 0.1)
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

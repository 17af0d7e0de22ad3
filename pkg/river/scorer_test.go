package river

import (
	"bytes"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/techriver/pkg/sentiment"
	"github.com/elonfeng/techriver/pkg/source"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestScorer(opts ...ScorerOption) *Scorer {
	return NewScorer(DefaultWeights(), append([]ScorerOption{WithNow(func() time.Time { return fixedNow })}, opts...)...)
}

func post(id string, upvotes, comments int, age time.Duration) source.RawPost {
	return source.RawPost{ID: id, Title: id, Score: upvotes, Comments: comments, CreatedAt: fixedNow.Add(-age)}
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	assert.Error(t, Weights{Engagement: 0.5, Recency: 0.5, Relevance: 0.5}.Validate())
	assert.Error(t, Weights{Engagement: -0.5, Recency: 1.5}.Validate())
	assert.NoError(t, Weights{Recency: 1}.Validate())
}

func TestNewScorer_ZeroWeightsUseDefaults(t *testing.T) {
	assert.Equal(t, DefaultWeights(), NewScorer(Weights{}).Weights())
}

func TestScore_Bounds(t *testing.T) {
	s := newTestScorer()

	extremes := []struct {
		name string
		post source.RawPost
		sent sentiment.Result
		tags []string
	}{
		{"negative engagement", post("a", -500, -3, time.Hour), sentiment.NeutralResult, nil},
		{"zero everything", post("b", 0, 0, 0), sentiment.NeutralResult, nil},
		{"huge engagement", post("c", math.MaxInt32, math.MaxInt32, 0), sentiment.Result{Label: sentiment.Positive, Score: 1}, []string{"a", "b", "c", "d", "e", "f", "g"}},
		{"ancient", post("d", 10, 1, 10*365*24*time.Hour), sentiment.Result{Label: sentiment.Negative, Score: -1}, nil},
		{"future", post("e", 10, 1, -48*time.Hour), sentiment.NeutralResult, []string{"go"}},
		{"out of range sentiment", post("f", 10, 1, time.Hour), sentiment.Result{Label: sentiment.Positive, Score: 40}, nil},
	}

	for _, tt := range extremes {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.post, tt.sent, tt.tags)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestScore_WeightedSum(t *testing.T) {
	s := newTestScorer()

	// Fresh post, no engagement, no tags, neutral:
	// 0.05*0.15 + 1.0*0.45 + 0.08*0.30 + 0*0.10
	got := s.Score(post("x", 0, 0, 30*time.Minute), sentiment.NeutralResult, nil)
	assert.InDelta(t, 0.0075+0.45+0.024, got, 1e-9)
}

func TestScore_FailureIsZeroAndLogged(t *testing.T) {
	var buf bytes.Buffer
	s := newTestScorer(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	tests := []struct {
		name string
		post source.RawPost
		sent sentiment.Result
	}{
		{"missing timestamp", source.RawPost{ID: "t", Score: 900}, sentiment.NeutralResult},
		{"nan sentiment", post("n", 900, 10, 0), sentiment.Result{Label: sentiment.Positive, Score: math.NaN()}},
		{"inf sentiment", post("i", 900, 10, 0), sentiment.Result{Label: sentiment.Negative, Score: math.Inf(-1)}},
		{"unknown label", post("u", 900, 10, 0), sentiment.Result{Label: "mixed", Score: 0.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			assert.Zero(t, s.Score(tt.post, tt.sent, []string{"go"}))
			assert.Contains(t, buf.String(), "score post")

			_, err := s.Breakdown(tt.post, tt.sent, nil)
			assert.ErrorIs(t, err, ErrScoring)
		})
	}
}

func TestBreakdown(t *testing.T) {
	s := newTestScorer()

	c, err := s.Breakdown(post("p", 100, 0, 24*time.Hour), sentiment.Result{Label: sentiment.Positive, Score: 0.5}, []string{"go", "rust"})
	require.NoError(t, err)

	assert.InDelta(t, 0.55, c.Engagement, 1e-9)
	assert.InDelta(t, 0.5, c.Recency, 1e-9)
	assert.InDelta(t, 0.48, c.Relevance, 1e-9)
	assert.InDelta(t, 0.15, c.Sentiment, 1e-9)
}

func TestEngagementCurve_Monotonic(t *testing.T) {
	prev := EngagementCurve(-10)
	for e := -5.0; e <= 5000; e += 0.5 {
		cur := EngagementCurve(e)
		require.GreaterOrEqualf(t, cur, prev, "curve decreased at e=%v", e)
		require.Less(t, cur, 1.0)
		prev = cur
	}
}

func TestEngagementCurve_BandEdges(t *testing.T) {
	assert.Equal(t, 0.05, EngagementCurve(0))
	assert.InDelta(t, 0.15, EngagementCurve(5), 1e-9)
	assert.InDelta(t, 0.30, EngagementCurve(25), 1e-9)
	assert.InDelta(t, 0.55, EngagementCurve(100), 1e-9)
	assert.InDelta(t, 0.80, EngagementCurve(500), 1e-9)
	assert.InDelta(t, 0.90, EngagementCurve(1000), 1e-9)
}

func TestEngagement(t *testing.T) {
	// comments count three times
	assert.InDelta(t, EngagementCurve(40), Engagement(10, 10), 0.1+1e-9)
	assert.Equal(t, EngagementCurve(13), Engagement(10, 1))

	// zero upvotes with comments: ratio uses a denominator of 1
	withComments := Engagement(0, 4)
	assert.InDelta(t, EngagementCurve(12)+0.1, withComments, 1e-9)

	// discussion bonus is capped and the total never exceeds 1
	assert.LessOrEqual(t, Engagement(1000, 100000), 1.0)

	assert.Equal(t, 0.05, Engagement(-20, 0))
}

func TestRecency_MonotonicAndFloors(t *testing.T) {
	assert.Equal(t, 1.0, Recency(-5))
	assert.Equal(t, 1.0, Recency(1))
	assert.InDelta(t, 0.5, Recency(24), 1e-9)
	assert.InDelta(t, 0.2, Recency(168), 1e-9)
	assert.InDelta(t, 0.05, Recency(720), 1e-9)
	assert.Equal(t, 0.05, Recency(100000))

	prev := Recency(0)
	for h := 0.0; h <= 1000; h += 0.25 {
		cur := Recency(h)
		require.LessOrEqualf(t, cur, prev, "recency increased at h=%v", h)
		prev = cur
	}
}

func TestRelevance(t *testing.T) {
	want := map[int]float64{-1: 0.08, 0: 0.08, 1: 0.32, 2: 0.48, 3: 0.6, 4: 0.72, 5: 0.8, 50: 0.8}
	for n, w := range want {
		assert.InDeltaf(t, w, Relevance(n), 1e-9, "tags=%d", n)
	}
}

func TestSentimentBonus(t *testing.T) {
	assert.InDelta(t, 0.27, SentimentBonus(sentiment.Result{Label: sentiment.Positive, Score: 0.9}), 1e-9)
	assert.InDelta(t, 0.3, SentimentBonus(sentiment.Result{Label: sentiment.Positive, Score: 5}), 1e-9)
	assert.InDelta(t, -0.09, SentimentBonus(sentiment.Result{Label: sentiment.Negative, Score: -0.9}), 1e-9)
	assert.InDelta(t, -0.1, SentimentBonus(sentiment.Result{Label: sentiment.Negative, Score: -3}), 1e-9)
	assert.Zero(t, SentimentBonus(sentiment.Result{Label: sentiment.Neutral, Score: 0.05}))
}

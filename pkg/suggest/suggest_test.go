package suggest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/techriver/pkg/source"
)

type mockSearchClient struct {
	results []source.Suggestion
	err     error

	calls     int
	lastQuery string
	lastLimit int
}

func (m *mockSearchClient) Search(_ context.Context, query string, limit int) ([]source.Suggestion, error) {
	m.calls++
	m.lastQuery = query
	m.lastLimit = limit
	return m.results, m.err
}

func TestSuggest_ExactMappingWins(t *testing.T) {
	client := &mockSearchClient{}
	s := New(nil, nil, client)

	got := s.Suggest(context.Background(), "Python", 5)

	require.Len(t, got, 5)
	assert.Equal(t, []string{"Python", "learnpython", "pythontips", "Pythonprojects", "pythongamedev"}, Names(got))
	for _, sg := range got {
		assert.Equal(t, exactMappingScore, sg.RelevanceScore)
	}
	assert.Zero(t, client.calls, "enough static results, no live search")
}

func TestSuggest_PartialMapping(t *testing.T) {
	s := New(map[string][]string{
		"game dev": {"gamedev", "Unity3D"},
		"devops":   {"devops", "docker"},
	}, nil, nil)

	got := s.Suggest(context.Background(), "dev", 10)

	assert.Equal(t, []string{"devops", "docker", "gamedev", "Unity3D"}, Names(got))
	for _, sg := range got {
		assert.Equal(t, partialMappingScore, sg.RelevanceScore)
	}
}

func TestSuggest_ExactKeyKeepsHigherScoreOverPartial(t *testing.T) {
	s := New(map[string][]string{
		"go":     {"golang"},
		"go dev": {"golang", "gamedev"},
	}, nil, nil)

	got := s.Suggest(context.Background(), "go", 5)

	require.Len(t, got, 2)
	assert.Equal(t, source.Suggestion{Name: "golang", Description: "Related to go", RelevanceScore: 0.9}, got[0])
	assert.Equal(t, "gamedev", got[1].Name)
	assert.Equal(t, 0.7, got[1].RelevanceScore)
}

func TestSuggest_LiveSearchFillsAndFilters(t *testing.T) {
	client := &mockSearchClient{results: []source.Suggestion{
		{Name: "rustlang", Subscribers: 1000, Description: "Rust programming language"},
		{Name: "rustgame", Subscribers: 500, Description: "A survival video game"},
		{Name: "", Description: "software"},
		{Name: "learnrust", Description: "tips for rust developers"},
	}}
	s := New(map[string][]string{}, nil, client)

	got := s.Suggest(context.Background(), "rust", 3)

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 6, client.lastLimit)
	assert.Equal(t, "rust", client.lastQuery)

	// rustgame is dropped: nothing topical in its name or description
	assert.Equal(t, []string{"rustlang", "learnrust"}, Names(got))
	assert.Equal(t, 1000, got[0].Subscribers)
	assert.Equal(t, 1.0, got[0].RelevanceScore)
}

func TestSuggest_LiveSearchFailureKeepsStatic(t *testing.T) {
	var buf bytes.Buffer
	client := &mockSearchClient{err: errors.New("boom")}
	s := New(map[string][]string{"cloud": {"aws"}}, nil, client, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	got := s.Suggest(context.Background(), "cloud", 5)

	assert.Equal(t, []string{"aws"}, Names(got))
	assert.Equal(t, 8, client.lastLimit)
	assert.Contains(t, buf.String(), "live community search failed")
}

func TestSuggest_MergeKeepsMaxAcrossSources(t *testing.T) {
	client := &mockSearchClient{results: []source.Suggestion{
		{Name: "AWS", Subscribers: 300000, Description: "Amazon Web Services cloud discussion"},
	}}
	s := New(map[string][]string{"cloud": {"aws"}}, nil, client)

	got := s.Suggest(context.Background(), "cloud", 5)

	require.Len(t, got, 1)
	assert.Equal(t, "aws", got[0].Name)
	assert.Equal(t, 300000, got[0].Subscribers)
	assert.Equal(t, exactMappingScore, got[0].RelevanceScore)
}

func TestSuggest_NothingFound(t *testing.T) {
	s := New(map[string][]string{}, nil, &mockSearchClient{})

	assert.Empty(t, s.Suggest(context.Background(), "zzzqqq", 5))
	assert.Empty(t, s.Suggest(context.Background(), "  ", 5))
}

func TestSuggest_DefaultLimit(t *testing.T) {
	s := New(nil, nil, nil)
	assert.Len(t, s.Suggest(context.Background(), "javascript", 0), DefaultLimit)
}

func TestMatchScore(t *testing.T) {
	tests := []struct {
		name, query, sub, desc string
		want                   float64
	}{
		{"exact", "golang", "golang", "", 1.0},
		{"query in name", "go", "golang", "", 1.0},
		{"name in query", "golang tips", "golang", "", 0.8},
		{"description only", "web dev", "frontend", "all about web dev", 0.6},
		{"no match", "rust", "cooking", "recipes", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MatchScore(tt.query, tt.sub, tt.desc), 1e-9)
		})
	}
}

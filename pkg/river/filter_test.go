package river

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func scored(id string, importance float64, tags ...string) ScoredPost {
	return ScoredPost{ID: id, ImportanceScore: importance, Tags: tags}
}

func ids(posts []ScoredPost) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestFilterAndSort(t *testing.T) {
	in := []ScoredPost{
		scored("low", 0.05),
		scored("mid", 0.2),
		scored("high", 0.4),
		scored("edge", 0.15),
	}

	got := FilterAndSort(in, DefaultThreshold)

	assert.Equal(t, []string{"high", "mid", "edge"}, ids(got))
	for i, p := range got {
		assert.GreaterOrEqual(t, p.ImportanceScore, DefaultThreshold)
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].ImportanceScore, p.ImportanceScore)
		}
	}

	// input untouched
	assert.Equal(t, "low", in[0].ID)
}

func TestFilterAndSort_TiesKeepInputOrder(t *testing.T) {
	in := []ScoredPost{scored("a", 0.5), scored("b", 0.7), scored("c", 0.5), scored("d", 0.5)}

	assert.Equal(t, []string{"b", "a", "c", "d"}, ids(FilterAndSort(in, 0)))
}

func TestFilterAndSort_Empty(t *testing.T) {
	assert.Empty(t, FilterAndSort(nil, 0.15))
	assert.Empty(t, FilterAndSort([]ScoredPost{scored("a", 0.1)}, 0.15))
}

func TestTop(t *testing.T) {
	in := []ScoredPost{scored("a", 0.3), scored("b", 0.9), scored("c", 0.6), scored("d", 0.01)}

	assert.Equal(t, []string{"b", "c"}, ids(Top(in, 0.15, 2)))
	assert.Equal(t, []string{"b", "c", "a"}, ids(Top(in, 0.15, 0)))
	assert.Equal(t, []string{"b", "c", "a"}, ids(Top(in, 0.15, 10)))
}

func TestDistribution(t *testing.T) {
	assert.Equal(t, Summary{}, Distribution(nil))

	s := Distribution([]ScoredPost{scored("a", 0.2), scored("b", 0.8), scored("c", 0.4), scored("d", 0.6)})
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 0.5, s.Mean, 1e-9)
	assert.InDelta(t, 0.5, s.Median, 1e-9)
	assert.Equal(t, 0.2, s.Min)
	assert.Equal(t, 0.8, s.Max)

	odd := Distribution([]ScoredPost{scored("a", 0.9), scored("b", 0.1), scored("c", 0.3)})
	assert.Equal(t, 0.3, odd.Median)
}

func TestBucketsAndTagCounts(t *testing.T) {
	posts := []ScoredPost{
		scored("a", 0.05, "go"),
		scored("b", 0.55, "go", "rust"),
		scored("c", 1.0),
		scored("d", 0.99, "rust"),
	}

	b := Buckets(posts)
	assert.Equal(t, 1, b[0])
	assert.Equal(t, 1, b[5])
	assert.Equal(t, 2, b[9])

	assert.Equal(t, map[string]int{"go": 2, "rust": 2}, TagCounts(posts))
}

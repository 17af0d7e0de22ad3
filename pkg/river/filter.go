package river

import (
	"sort"
)

// FilterAndSort keeps posts whose importance reaches threshold and orders them
// by importance, highest first. Ties keep their input order. The input is not modified.
func FilterAndSort(posts []ScoredPost, threshold float64) []ScoredPost {
	out := make([]ScoredPost, 0, len(posts))
	for _, p := range posts {
		if p.ImportanceScore >= threshold {
			out = append(out, p)
		}
	}
	SortByImportance(out)
	return out
}

// SortByImportance stable-sorts posts in place, highest importance first.
func SortByImportance(posts []ScoredPost) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].ImportanceScore > posts[j].ImportanceScore
	})
}

// Top filters and sorts, then keeps at most limit posts. A limit <= 0 keeps all.
func Top(posts []ScoredPost, threshold float64, limit int) []ScoredPost {
	return Trim(FilterAndSort(posts, threshold), limit)
}

// Trim returns the first limit posts. A limit <= 0 keeps all.
func Trim(posts []ScoredPost, limit int) []ScoredPost {
	if limit <= 0 || len(posts) <= limit {
		return posts
	}
	return posts[:limit]
}

// Summary describes the spread of importance scores in a river.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Distribution summarises the importance scores of posts.
func Distribution(posts []ScoredPost) Summary {
	if len(posts) == 0 {
		return Summary{}
	}

	scores := make([]float64, len(posts))
	sum := 0.0
	for i, p := range posts {
		scores[i] = p.ImportanceScore
		sum += p.ImportanceScore
	}
	sort.Float64s(scores)

	n := len(scores)
	median := scores[n/2]
	if n%2 == 0 {
		median = (scores[n/2-1] + scores[n/2]) / 2
	}

	return Summary{
		Count:  n,
		Mean:   sum / float64(n),
		Median: median,
		Min:    scores[0],
		Max:    scores[n-1],
	}
}

// Buckets counts posts per tenth of the importance range. Index 9 includes 1.0.
func Buckets(posts []ScoredPost) [10]int {
	var b [10]int
	for _, p := range posts {
		i := int(p.ImportanceScore * 10)
		b[min(max(i, 0), 9)]++
	}
	return b
}

// TagCounts counts how many posts carry each tag.
func TagCounts(posts []ScoredPost) map[string]int {
	counts := make(map[string]int)
	for _, p := range posts {
		for _, t := range p.Tags {
			counts[t]++
		}
	}
	return counts
}

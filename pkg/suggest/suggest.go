// Package suggest finds related communities for a name that does not exist.
package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/elonfeng/techriver/pkg/source"
)

// DefaultLimit is the number of suggestions returned when none is requested.
const DefaultLimit = 5

const (
	exactMappingScore   = 0.9
	partialMappingScore = 0.7
)

// Searcher merges a static synonym mapping with live upstream search results.
type Searcher struct {
	mapping       map[string][]string
	topicKeywords []string
	client        source.SearchClient
	log           *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets the logger used for live search failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Searcher. A nil client disables live search; nil mapping or
// keywords fall back to the built-in defaults.
func New(mapping map[string][]string, topicKeywords []string, client source.SearchClient, opts ...Option) *Searcher {
	if mapping == nil {
		mapping = DefaultMapping
	}
	if topicKeywords == nil {
		topicKeywords = DefaultTopicKeywords
	}

	lowered := make(map[string][]string, len(mapping))
	for k, v := range mapping {
		lowered[strings.ToLower(strings.TrimSpace(k))] = v
	}
	keywords := make([]string, 0, len(topicKeywords))
	for _, k := range topicKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}

	s := &Searcher{
		mapping:       lowered,
		topicKeywords: keywords,
		client:        client,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suggest returns up to limit related communities, most relevant first.
// Live search failures are logged and the static suggestions are still returned.
func (s *Searcher) Suggest(ctx context.Context, query string, limit int) []source.Suggestion {
	if limit <= 0 {
		limit = DefaultLimit
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []source.Suggestion{}
	}

	suggestions := s.fromMapping(query)

	if n := countUnique(suggestions); n < limit && s.client != nil {
		live, err := s.fromSearch(ctx, query, 2*(limit-n))
		if err != nil {
			s.log.Warn("live community search failed", "query", query, "error", err)
		}
		suggestions = append(suggestions, live...)
	}

	out := merge(suggestions)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// fromMapping scores exact mapping keys above keys that merely overlap the query.
// Keys are visited in sorted order so results are deterministic.
func (s *Searcher) fromMapping(query string) []source.Suggestion {
	q := strings.ToLower(query)
	var out []source.Suggestion

	if names, ok := s.mapping[q]; ok {
		for _, name := range names {
			out = append(out, source.Suggestion{
				Name:           name,
				Description:    "Related to " + query,
				RelevanceScore: exactMappingScore,
			})
		}
	}

	terms := make([]string, 0, len(s.mapping))
	for term := range s.mapping {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	for _, term := range terms {
		if term == q || !(strings.Contains(term, q) || strings.Contains(q, term)) {
			continue
		}
		for _, name := range s.mapping[term] {
			out = append(out, source.Suggestion{
				Name:           name,
				Description:    "Related to " + term,
				RelevanceScore: partialMappingScore,
			})
		}
	}
	return out
}

func (s *Searcher) fromSearch(ctx context.Context, query string, limit int) ([]source.Suggestion, error) {
	results, err := s.client.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	var out []source.Suggestion
	for _, r := range results {
		if r.Name == "" || !s.isTopical(r.Name, r.Description) {
			continue
		}
		r.RelevanceScore = MatchScore(query, r.Name, r.Description)
		out = append(out, r)
	}
	return out, nil
}

func (s *Searcher) isTopical(name, description string) bool {
	text := strings.ToLower(name + " " + description)
	for _, k := range s.topicKeywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// MatchScore rates how well a community's name and description match query, in [0, 1].
func MatchScore(query, name, description string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	n := strings.ToLower(name)
	d := strings.ToLower(description)

	score := 0.0
	switch {
	case q == n:
		score += 1.0
	case strings.Contains(n, q):
		score += 0.8
	case strings.Contains(q, n):
		score += 0.6
	}
	if strings.Contains(d, q) {
		score += 0.4
	}
	for _, w := range strings.Fields(q) {
		if strings.Contains(n, w) {
			score += 0.2
		}
		if strings.Contains(d, w) {
			score += 0.1
		}
	}
	return min(score, 1.0)
}

// merge collapses suggestions with the same case-insensitive name, keeping the
// highest score, then stable-sorts by score descending.
func merge(in []source.Suggestion) []source.Suggestion {
	index := make(map[string]int, len(in))
	out := make([]source.Suggestion, 0, len(in))
	for _, sg := range in {
		key := strings.ToLower(sg.Name)
		if i, ok := index[key]; ok {
			if sg.RelevanceScore > out[i].RelevanceScore {
				out[i].RelevanceScore = sg.RelevanceScore
			}
			if out[i].Subscribers == 0 {
				out[i].Subscribers = sg.Subscribers
			}
			continue
		}
		index[key] = len(out)
		out = append(out, sg)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	return out
}

func countUnique(in []source.Suggestion) int {
	seen := make(map[string]bool, len(in))
	for _, sg := range in {
		seen[strings.ToLower(sg.Name)] = true
	}
	return len(seen)
}

// Names returns the suggestion names in order.
func Names(in []source.Suggestion) []string {
	out := make([]string, len(in))
	for i, sg := range in {
		out[i] = sg.Name
	}
	return out
}

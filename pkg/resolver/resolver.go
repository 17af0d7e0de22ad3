// Package resolver turns a community request into a ranked river of posts,
// falling back to related communities when the requested one does not exist.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/elonfeng/techriver/pkg/cache"
	"github.com/elonfeng/techriver/pkg/river"
	"github.com/elonfeng/techriver/pkg/sentiment"
	"github.com/elonfeng/techriver/pkg/source"
	"github.com/elonfeng/techriver/pkg/suggest"
)

// State names a step of a resolution. Only Done and Error are terminal.
type State string

const (
	StateCached         State = "CACHED"
	StateFetchPrimary   State = "FETCH_PRIMARY"
	StateCheckExistence State = "CHECK_EXISTENCE"
	StateFallbackSearch State = "FALLBACK_SEARCH"
	StateFallbackFetch  State = "FALLBACK_FETCH"
	StateSuggest        State = "SUGGEST"
	StateDone           State = "DONE"
	StateError          State = "ERROR"
)

// DefaultMaxSuggestions bounds both the fallback candidates tried and the
// names returned with a not-found error.
const DefaultMaxSuggestions = 5

// Scorer computes the importance of one post.
type Scorer interface {
	Score(p source.RawPost, sent sentiment.Result, tags []string) float64
}

// Tagger extracts topical tags from text.
type Tagger interface {
	ExtractTags(text string) []string
}

// Suggester finds communities related to a query.
type Suggester interface {
	Suggest(ctx context.Context, query string, limit int) []source.Suggestion
}

// Result is a successful resolution.
type Result struct {
	Source       string             `json:"source"`
	Name         string             `json:"name"`
	Posts        []river.ScoredPost `json:"posts"`
	Fallback     bool               `json:"fallback"`
	FallbackFrom []string           `json:"fallback_from"`
	TotalCount   int                `json:"total_count"`
	Cached       bool               `json:"cached"`
}

// Deps are the collaborators of a Resolver. All are required.
type Deps struct {
	Fetcher    source.Fetcher
	Checker    source.ExistenceChecker
	Suggester  Suggester
	Classifier sentiment.Classifier
	Tagger     Tagger
	Scorer     Scorer
	Cache      *cache.Cache[[]river.ScoredPost]
}

func (d Deps) validate() error {
	var missing []string
	if d.Fetcher == nil {
		missing = append(missing, "fetcher")
	}
	if d.Checker == nil {
		missing = append(missing, "checker")
	}
	if d.Suggester == nil {
		missing = append(missing, "suggester")
	}
	if d.Classifier == nil {
		missing = append(missing, "classifier")
	}
	if d.Tagger == nil {
		missing = append(missing, "tagger")
	}
	if d.Scorer == nil {
		missing = append(missing, "scorer")
	}
	if d.Cache == nil {
		missing = append(missing, "cache")
	}
	if len(missing) > 0 {
		return fmt.Errorf("resolver: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Resolver runs the cache, fetch, existence check and fallback pipeline.
// It is safe for concurrent use; the cache is the only shared state.
type Resolver struct {
	deps           Deps
	threshold      float64
	maxSuggestions int
	log            *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithThreshold sets the minimum importance a post needs to be returned.
func WithThreshold(t float64) Option {
	return func(r *Resolver) { r.threshold = t }
}

// WithMaxSuggestions bounds fallback candidates and suggested names.
func WithMaxSuggestions(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxSuggestions = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// New creates a Resolver.
func New(d Deps, opts ...Option) (*Resolver, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	r := &Resolver{
		deps:           d,
		threshold:      river.DefaultThreshold,
		maxSuggestions: DefaultMaxSuggestions,
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Cache returns the result cache.
func (r *Resolver) Cache() *cache.Cache[[]river.ScoredPost] {
	return r.deps.Cache
}

// Stats returns the result cache statistics.
func (r *Resolver) Stats() cache.Stats {
	return r.deps.Cache.Stats()
}

// Resolve returns the river for req. Errors are *Error values.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	req, err := Normalize(req)
	if err != nil {
		r.log.Info("river request rejected", "state", StateError, "error", err)
		return nil, err
	}

	key := CacheKey(req.Source, req.Community)
	log := r.log.With("key", key, "limit", req.Limit)

	if posts, ok := r.deps.Cache.Get(key); ok {
		log.Debug("cache hit", "state", StateCached, "posts", len(posts))
		return r.done(log, StateCached, &Result{
			Source:     req.Source,
			Name:       req.Community,
			Posts:      river.Trim(posts, req.Limit),
			TotalCount: len(posts),
			Cached:     true,
		}), nil
	}

	log.Debug("fetching community", "state", StateFetchPrimary)
	raw, fetchErr := r.deps.Fetcher.Fetch(ctx, req.Community)
	if fetchErr != nil {
		log.Warn("primary fetch failed", "error", fetchErr)
		raw = nil
	}

	if len(raw) > 0 {
		posts := river.FilterAndSort(r.analyze(ctx, raw), r.threshold)
		r.deps.Cache.Set(key, posts)
		return r.done(log, StateFetchPrimary, &Result{
			Source:     req.Source,
			Name:       req.Community,
			Posts:      river.Trim(posts, req.Limit),
			TotalCount: len(posts),
		}), nil
	}

	existence := r.checkExistence(ctx, log, req.Community, fetchErr)
	if existence != source.NotFound {
		if fetchErr != nil {
			return nil, r.fail(log, StateCheckExistence, &Error{
				Kind:        KindUpstream,
				Message:     "failed to fetch posts, try again later",
				Suggestions: []string{},
			})
		}
		return nil, r.fail(log, StateCheckExistence, &Error{
			Kind:        KindNotFoundEmpty,
			Message:     fmt.Sprintf("r/%s has no recent posts", req.Community),
			Suggestions: []string{},
		})
	}

	log.Debug("searching related communities", "state", StateFallbackSearch)
	candidates := r.candidates(ctx, req.Community)
	if len(candidates) == 0 {
		return nil, r.fail(log, StateFallbackSearch, r.notFound(req.Community, nil))
	}

	posts, from := r.fallback(ctx, log, candidates, req.Limit)
	if len(posts) == 0 {
		return nil, r.fail(log, StateSuggest, r.notFound(req.Community, candidates))
	}

	return r.done(log, StateFallbackFetch, &Result{
		Source:       req.Source,
		Name:         req.Community,
		Posts:        river.Trim(posts, req.Limit),
		Fallback:     true,
		FallbackFrom: from,
		TotalCount:   len(posts),
	}), nil
}

// checkExistence checks the community. A fetch that already reported the
// community missing counts as not found; check errors are indeterminate.
func (r *Resolver) checkExistence(ctx context.Context, log *slog.Logger, community string, fetchErr error) source.Existence {
	if errors.Is(fetchErr, source.ErrNotFound) {
		return source.NotFound
	}

	log.Debug("probing community", "state", StateCheckExistence)
	existence, err := r.deps.Checker.Exists(ctx, community)
	if err != nil {
		log.Warn("existence check failed", "error", err)
		return source.Indeterminate
	}
	return existence
}

// candidates returns related communities by descending relevance, without the requested one.
func (r *Resolver) candidates(ctx context.Context, community string) []source.Suggestion {
	found := r.deps.Suggester.Suggest(ctx, community, r.maxSuggestions+1)

	out := make([]source.Suggestion, 0, len(found))
	for _, s := range found {
		if strings.EqualFold(s.Name, community) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	if len(out) > r.maxSuggestions {
		out = out[:r.maxSuggestions]
	}
	return out
}

// fallback pools qualifying posts from candidates in order, one at a time,
// until the pool reaches limit. Candidate failures are skipped.
func (r *Resolver) fallback(ctx context.Context, log *slog.Logger, candidates []source.Suggestion, limit int) ([]river.ScoredPost, []string) {
	var (
		pool []river.ScoredPost
		from []string
		seen = make(map[string]bool)
	)

	for _, c := range candidates {
		if len(pool) >= limit {
			break
		}

		log.Debug("fetching fallback candidate", "state", StateFallbackFetch, "candidate", c.Name, "relevance", c.RelevanceScore)
		raw, err := r.deps.Fetcher.Fetch(ctx, c.Name)
		if err != nil {
			log.Warn("fallback fetch failed", "candidate", c.Name, "error", err)
			continue
		}

		added := 0
		for _, p := range river.FilterAndSort(r.analyze(ctx, raw), r.threshold) {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			pool = append(pool, p)
			added++
		}
		if added > 0 {
			from = append(from, c.Name)
		}
	}

	river.SortByImportance(pool)
	return pool, from
}

// analyze tags, classifies and scores every post. A classifier failure
// leaves the post neutral.
func (r *Resolver) analyze(ctx context.Context, raw []source.RawPost) []river.ScoredPost {
	out := make([]river.ScoredPost, 0, len(raw))
	for _, p := range raw {
		text := p.Text
		if text == "" {
			text = source.CombineTitleBody(p.Title, p.Body)
		}

		sent, err := r.deps.Classifier.Classify(ctx, text)
		if err != nil {
			r.log.Debug("sentiment failed, using neutral", "id", p.ID, "error", err)
			sent = sentiment.NeutralResult
		}

		tags := r.deps.Tagger.ExtractTags(text)
		importance := r.deps.Scorer.Score(p, sent, tags)
		out = append(out, river.NewScoredPost(p, importance, sent, tags))
	}
	return out
}

func (r *Resolver) notFound(community string, candidates []source.Suggestion) *Error {
	names := suggest.Names(candidates)
	if len(names) > r.maxSuggestions {
		names = names[:r.maxSuggestions]
	}
	msg := fmt.Sprintf("r/%s not found", community)
	if len(names) > 0 {
		msg += ", try: r/" + strings.Join(names, ", r/")
	}
	return &Error{Kind: KindNotFoundWithSuggestions, Message: msg, Suggestions: names}
}

func (r *Resolver) done(log *slog.Logger, from State, res *Result) *Result {
	if res.FallbackFrom == nil {
		res.FallbackFrom = []string{}
	}
	res.Posts = slices.Clone(res.Posts)
	if res.Posts == nil {
		res.Posts = []river.ScoredPost{}
	}
	log.Info("river resolved",
		"state", StateDone,
		"from", from,
		"posts", len(res.Posts),
		"total", res.TotalCount,
		"cached", res.Cached,
		"fallback", res.Fallback,
	)
	return res
}

func (r *Resolver) fail(log *slog.Logger, from State, e *Error) *Error {
	log.Info("river failed", "state", StateError, "from", from, "kind", e.Kind, "suggestions", len(e.Suggestions))
	return e
}

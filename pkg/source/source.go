package source

import (
	"context"
	"errors"
	"time"
)

// SourceType identifies which platform a community lives on.
type SourceType string

const (
	SourceReddit SourceType = "reddit"
)

// AllSourceTypes returns all known source types.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceReddit}
}

var (
	// ErrNotFound is returned by adapters when the upstream reports the community does not exist.
	ErrNotFound = errors.New("community not found")

	// ErrRateLimited is returned once the retry budget for 429 responses is spent.
	ErrRateLimited = errors.New("rate limited")
)

// RawPost is a post as fetched from the upstream, before any analysis.
type RawPost struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Text      string    `json:"text"` // normalised title + body
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	Score     int       `json:"score"`
	Comments  int       `json:"comments"`
	Author    string    `json:"author"`
	Community string    `json:"community"`
}

// Suggestion is a related community offered when the requested one cannot be found.
type Suggestion struct {
	Name           string  `json:"name"`
	Subscribers    int     `json:"subscribers"`
	Description    string  `json:"description"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Existence is the outcome of a community existence check.
type Existence int

const (
	// Indeterminate means the check could not tell. Callers treat it as Found.
	Indeterminate Existence = iota
	Found
	NotFound
)

func (e Existence) String() string {
	switch e {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	}
	return "indeterminate"
}

// Fetcher retrieves the latest posts of a community, deduplicated by content.
type Fetcher interface {
	Fetch(ctx context.Context, community string) ([]RawPost, error)
}

// ExistenceChecker checks whether a community exists.
type ExistenceChecker interface {
	Exists(ctx context.Context, community string) (Existence, error)
}

// SearchClient queries the upstream's own community search.
type SearchClient interface {
	Search(ctx context.Context, query string, limit int) ([]Suggestion, error)
}

// Client bundles the three upstream ports one adapter usually provides.
type Client interface {
	Fetcher
	ExistenceChecker
	SearchClient
}

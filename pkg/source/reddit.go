package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRedditBaseURL = "https://www.reddit.com"
	defaultUserAgent     = "techriver/1.0"
	permalinkHost        = "https://reddit.com"
)

// RedditOptions configures every Reddit adapter.
type RedditOptions struct {
	BaseURL         string
	UserAgent       string
	RequestDelay    time.Duration // minimum spacing between upstream requests
	MaxAttempts     int           // attempts per request when the upstream answers 429
	RetryBackoff    time.Duration // wait between 429 attempts when no Retry-After is sent
	PostsPerRequest int
	Timeout         time.Duration
	Logger          *slog.Logger
}

func (o RedditOptions) withDefaults() RedditOptions {
	if o.BaseURL == "" {
		o.BaseURL = defaultRedditBaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 5 * time.Second
	}
	if o.PostsPerRequest <= 0 || o.PostsPerRequest > 100 {
		o.PostsPerRequest = 100
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// RedditPublic talks to Reddit's unauthenticated JSON endpoints.
type RedditPublic struct {
	client  *http.Client
	limiter *rate.Limiter
	opts    RedditOptions
	log     *slog.Logger
}

// NewRedditPublic creates a client for the public JSON API.
func NewRedditPublic(opts RedditOptions) *RedditPublic {
	opts = opts.withDefaults()
	return &RedditPublic{
		client: &http.Client{
			Timeout: opts.Timeout,
			// Reddit redirects unknown subreddits to the search page; surface that instead of following it.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: newLimiter(opts.RequestDelay),
		opts:    opts,
		log:     opts.Logger,
	}
}

func (r *RedditPublic) Name() SourceType { return SourceReddit }

// Fetch returns the newest posts of a subreddit.
func (r *RedditPublic) Fetch(ctx context.Context, community string) ([]RawPost, error) {
	path := fmt.Sprintf("/r/%s/new.json?limit=%d", url.PathEscape(community), r.opts.PostsPerRequest)
	resp, err := r.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w", community, err)
	}
	defer resp.Body.Close()

	if isMissing(resp) {
		return nil, fmt.Errorf("fetch r/%s: %w", community, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit r/%s status %d", community, resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode r/%s: %w", community, err)
	}

	var posts []RawPost
	for _, child := range listing.Data.Children {
		post, ok := child.Data.toRawPost(community)
		if !ok {
			continue
		}
		posts = append(posts, post)
	}

	posts = Dedupe(posts)
	r.log.Debug("fetched posts", "community", community, "children", len(listing.Data.Children), "posts", len(posts))
	return posts, nil
}

// Exists requests /r/{community}/about.json.
func (r *RedditPublic) Exists(ctx context.Context, community string) (Existence, error) {
	resp, err := r.get(ctx, fmt.Sprintf("/r/%s/about.json", url.PathEscape(community)))
	if err != nil {
		return Indeterminate, fmt.Errorf("check r/%s: %w", community, err)
	}
	defer resp.Body.Close()

	if isMissing(resp) {
		return NotFound, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Indeterminate, nil
	}

	var about struct {
		Kind string `json:"kind"`
		Data struct {
			DisplayName string `json:"display_name"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&about); err != nil {
		return Indeterminate, fmt.Errorf("decode about r/%s: %w", community, err)
	}
	if about.Kind == "t5" && about.Data.DisplayName != "" {
		return Found, nil
	}
	return Indeterminate, nil
}

// Search queries /subreddits/search.json. Results carry no relevance score.
func (r *RedditPublic) Search(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("type", "sr")

	resp, err := r.get(ctx, "/subreddits/search.json?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("search subreddits %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subreddit search status %d", resp.StatusCode)
	}

	var listing struct {
		Data struct {
			Children []struct {
				Data struct {
					DisplayName       string `json:"display_name"`
					Subscribers       int    `json:"subscribers"`
					PublicDescription string `json:"public_description"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode subreddit search: %w", err)
	}

	var out []Suggestion
	for _, child := range listing.Data.Children {
		sub := child.Data
		if sub.DisplayName == "" {
			continue
		}
		out = append(out, Suggestion{
			Name:        sub.DisplayName,
			Subscribers: sub.Subscribers,
			Description: sub.PublicDescription,
		})
	}
	return out, nil
}

// get performs a paced GET, retrying a bounded number of times on 429.
func (r *RedditPublic) get(ctx context.Context, path string) (*http.Response, error) {
	for attempt := 1; ; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.opts.BaseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", r.opts.UserAgent)

		resp, err := r.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		wait := retryAfter(resp, r.opts.RetryBackoff)
		resp.Body.Close()
		if attempt >= r.opts.MaxAttempts {
			return nil, ErrRateLimited
		}

		r.log.Warn("rate limited, backing off", "path", path, "attempt", attempt, "wait", wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// isMissing reports a 404 or a redirect to the subreddit search page.
func isMissing(resp *http.Response) bool {
	if resp.StatusCode == http.StatusNotFound {
		return true
	}
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return strings.Contains(resp.Header.Get("Location"), "/subreddits/search")
	}
	return false
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Permalink         string  `json:"permalink"`
	Selftext          string  `json:"selftext"`
	Author            string  `json:"author"`
	Score             int     `json:"score"`
	NumComments       int     `json:"num_comments"`
	CreatedUTC        float64 `json:"created_utc"`
	RemovedByCategory string  `json:"removed_by_category"`
}

func (p redditPost) toRawPost(community string) (RawPost, bool) {
	if p.RemovedByCategory != "" || p.Selftext == "[removed]" {
		return RawPost{}, false
	}
	if p.ID == "" || p.Title == "" {
		return RawPost{}, false
	}

	var created time.Time
	if p.CreatedUTC > 0 {
		created = time.Unix(int64(p.CreatedUTC), 0).UTC()
	}

	return RawPost{
		ID:        p.ID,
		Title:     p.Title,
		Body:      p.Selftext,
		Text:      CombineTitleBody(p.Title, p.Selftext),
		URL:       permalinkHost + p.Permalink,
		CreatedAt: created,
		Score:     p.Score,
		Comments:  p.NumComments,
		Author:    p.Author,
		Community: community,
	}, true
}

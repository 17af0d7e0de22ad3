package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"golang.org/x/time/rate"
)

// RedditCredentials are script-app credentials for the OAuth API.
type RedditCredentials struct {
	ID       string
	Secret   string
	Username string
	Password string
}

func (c RedditCredentials) empty() bool {
	return c.ID == "" || c.Secret == ""
}

// RedditAPI uses the OAuth API through go-reddit. Without credentials it falls back to a read-only client.
type RedditAPI struct {
	client  *reddit.Client
	limiter *rate.Limiter
	opts    RedditOptions
	log     *slog.Logger
}

// NewRedditAPI creates an API-backed Reddit client.
func NewRedditAPI(creds RedditCredentials, opts RedditOptions) (*RedditAPI, error) {
	opts = opts.withDefaults()

	clientOpts := []reddit.Opt{
		reddit.WithUserAgent(opts.UserAgent),
		reddit.WithHTTPClient(&http.Client{Timeout: opts.Timeout}),
	}
	// go-reddit picks its own hosts; only a non-default base URL overrides them.
	if opts.BaseURL != defaultRedditBaseURL {
		clientOpts = append(clientOpts, reddit.WithBaseURL(opts.BaseURL+"/"))
	}

	var (
		client *reddit.Client
		err    error
	)
	if creds.empty() {
		client, err = reddit.NewReadonlyClient(clientOpts...)
	} else {
		client, err = reddit.NewClient(reddit.Credentials{
			ID:       creds.ID,
			Secret:   creds.Secret,
			Username: creds.Username,
			Password: creds.Password,
		}, clientOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("create reddit api client: %w", err)
	}

	return &RedditAPI{
		client:  client,
		limiter: newLimiter(opts.RequestDelay),
		opts:    opts,
		log:     opts.Logger,
	}, nil
}

func (a *RedditAPI) Name() SourceType { return SourceReddit }

// Fetch returns the newest posts of a subreddit.
func (a *RedditAPI) Fetch(ctx context.Context, community string) ([]RawPost, error) {
	var posts []*reddit.Post
	err := a.do(ctx, func() (*reddit.Response, error) {
		var (
			resp *reddit.Response
			err  error
		)
		posts, resp, err = a.client.Subreddit.NewPosts(ctx, community, &reddit.ListOptions{Limit: a.opts.PostsPerRequest})
		return resp, err
	})
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, fmt.Errorf("fetch r/%s: %w", community, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch r/%s: %w", community, err)
	}

	var out []RawPost
	for _, p := range posts {
		if p == nil || p.ID == "" || p.Title == "" || p.Body == "[removed]" {
			continue
		}
		var created time.Time
		if p.Created != nil {
			created = p.Created.Time.UTC()
		}
		out = append(out, RawPost{
			ID:        p.ID,
			Title:     p.Title,
			Body:      p.Body,
			Text:      CombineTitleBody(p.Title, p.Body),
			URL:       permalinkHost + p.Permalink,
			CreatedAt: created,
			Score:     p.Score,
			Comments:  p.NumberOfComments,
			Author:    p.Author,
			Community: community,
		})
	}
	return Dedupe(out), nil
}

// Exists looks the subreddit up by name.
func (a *RedditAPI) Exists(ctx context.Context, community string) (Existence, error) {
	var sub *reddit.Subreddit
	err := a.do(ctx, func() (*reddit.Response, error) {
		var (
			resp *reddit.Response
			err  error
		)
		sub, resp, err = a.client.Subreddit.Get(ctx, community)
		return resp, err
	})
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return NotFound, nil
		}
		return Indeterminate, fmt.Errorf("check r/%s: %w", community, err)
	}
	if sub == nil || sub.Name == "" {
		return Indeterminate, nil
	}
	return Found, nil
}

// Search queries the subreddit search endpoint.
func (a *RedditAPI) Search(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	var subs []*reddit.Subreddit
	err := a.do(ctx, func() (*reddit.Response, error) {
		var (
			resp *reddit.Response
			err  error
		)
		subs, resp, err = a.client.Subreddit.Search(ctx, url.QueryEscape(query), &reddit.ListSubredditOptions{
			ListOptions: reddit.ListOptions{Limit: limit},
		})
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("search subreddits %q: %w", query, err)
	}

	var out []Suggestion
	for _, s := range subs {
		if s == nil || s.Name == "" {
			continue
		}
		out = append(out, Suggestion{
			Name:        s.Name,
			Subscribers: s.Subscribers,
			Description: s.Description,
		})
	}
	return out, nil
}

// do paces one API call and retries it a bounded number of times when rate limited.
func (a *RedditAPI) do(ctx context.Context, call func() (*reddit.Response, error)) error {
	for attempt := 1; ; attempt++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}

		_, err := call()
		if err == nil || statusOf(err) != http.StatusTooManyRequests {
			return err
		}
		if attempt >= a.opts.MaxAttempts {
			return ErrRateLimited
		}

		a.log.Warn("reddit api rate limited, backing off", "attempt", attempt, "wait", a.opts.RetryBackoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.opts.RetryBackoff):
		}
	}
}

// statusOf extracts the HTTP status from a go-reddit error, or 0.
func statusOf(err error) int {
	var rateErr *reddit.RateLimitError
	if errors.As(err, &rateErr) {
		return http.StatusTooManyRequests
	}
	var errResp *reddit.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode
	}
	return 0
}

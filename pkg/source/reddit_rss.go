package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"
)

// RedditRSS fetches posts from a subreddit's Atom feed. Feeds carry no vote or comment counts.
type RedditRSS struct {
	client  *http.Client
	parser  *gofeed.Parser
	limiter *rate.Limiter
	opts    RedditOptions
	log     *slog.Logger
}

// NewRedditRSS creates a feed-based fetcher.
func NewRedditRSS(opts RedditOptions) *RedditRSS {
	opts = opts.withDefaults()
	return &RedditRSS{
		client:  &http.Client{Timeout: opts.Timeout},
		parser:  gofeed.NewParser(),
		limiter: newLimiter(opts.RequestDelay),
		opts:    opts,
		log:     opts.Logger,
	}
}

func (r *RedditRSS) Name() SourceType { return SourceReddit }

// Fetch returns the entries of /r/{community}/new/.rss.
func (r *RedditRSS) Fetch(ctx context.Context, community string) ([]RawPost, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feedURL := fmt.Sprintf("%s/r/%s/new/.rss?limit=%d", r.opts.BaseURL, url.PathEscape(community), r.opts.PostsPerRequest)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create rss request r/%s: %w", community, err)
	}
	req.Header.Set("User-Agent", r.opts.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss r/%s: %w", community, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fetch rss r/%s: %w", community, ErrNotFound)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("fetch rss r/%s: %w", community, ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss r/%s status %d", community, resp.StatusCode)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss r/%s: %w", community, err)
	}

	var posts []RawPost
	for _, entry := range parsed.Items {
		if entry.GUID == "" || entry.Title == "" {
			continue
		}

		var created time.Time
		if entry.PublishedParsed != nil {
			created = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			created = entry.UpdatedParsed.UTC()
		}

		body := htmlText(entry.Content)
		if body == "" {
			body = htmlText(entry.Description)
		}

		author := ""
		if entry.Author != nil {
			author = strings.TrimPrefix(entry.Author.Name, "/u/")
		}

		posts = append(posts, RawPost{
			ID:        strings.TrimPrefix(entry.GUID, "t3_"),
			Title:     entry.Title,
			Body:      body,
			Text:      CombineTitleBody(entry.Title, body),
			URL:       entry.Link,
			CreatedAt: created,
			Author:    author,
			Community: community,
		})
	}

	return Dedupe(posts), nil
}

// htmlText strips markup from an HTML fragment.
func htmlText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(doc.Text())
}

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiListingJSON = `{
  "kind": "Listing",
  "data": {
    "after": "",
    "children": [
      {"kind": "t3", "data": {"id": "p1", "title": "Go 1.25 released", "selftext": "Lots of news", "permalink": "/r/golang/comments/p1/", "author": "gopher", "score": 120, "num_comments": 40, "created_utc": 1760000000}},
      {"kind": "t3", "data": {"id": "p2", "title": "GO 1.25   released", "selftext": "lots of NEWS", "permalink": "/r/golang/comments/p2/", "score": 3, "created_utc": 1760000100}},
      {"kind": "t3", "data": {"id": "p3", "title": "Removed thing", "selftext": "[removed]", "permalink": "/r/golang/comments/p3/", "created_utc": 1760000200}},
      {"kind": "t3", "data": {"id": "", "title": "no id"}},
      {"kind": "t3", "data": {"id": "p6", "title": "Generics question", "permalink": "/r/golang/comments/p6/", "score": 1, "num_comments": 2, "created_utc": 1760003600}}
    ]
  }
}`

func newTestAPI(t *testing.T, handler http.HandlerFunc) *RedditAPI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api, err := NewRedditAPI(RedditCredentials{}, RedditOptions{
		BaseURL:         srv.URL,
		MaxAttempts:     3,
		RetryBackoff:    time.Millisecond,
		PostsPerRequest: 25,
	})
	require.NoError(t, err)
	return api
}

func TestRedditAPI_Fetch(t *testing.T) {
	var gotPath, gotLimit, gotUA string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotLimit = r.URL.Query().Get("limit")
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, apiListingJSON)
	})

	posts, err := api.Fetch(context.Background(), "golang")
	require.NoError(t, err)

	assert.Equal(t, "/r/golang/new", gotPath)
	assert.Equal(t, "25", gotLimit)
	assert.Equal(t, defaultUserAgent, gotUA)

	require.Len(t, posts, 2, "duplicate, removed and id-less posts are dropped")
	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, "go 1.25 released. lots of news", posts[0].Text)
	assert.Equal(t, "https://reddit.com/r/golang/comments/p1/", posts[0].URL)
	assert.Equal(t, 120, posts[0].Score)
	assert.Equal(t, 40, posts[0].Comments)
	assert.Equal(t, "gopher", posts[0].Author)
	assert.Equal(t, "golang", posts[0].Community)
	assert.Equal(t, time.Unix(1760000000, 0).UTC(), posts[0].CreatedAt)
	assert.Equal(t, "p6", posts[1].ID)
}

func TestRedditAPI_FetchNotFound(t *testing.T) {
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found", "error": 404}`)
	})

	_, err := api.Fetch(context.Background(), "nosuchsub")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedditAPI_Exists(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    Existence
		wantErr bool
	}{
		{"found", http.StatusOK, `{"kind": "t5", "data": {"display_name": "golang", "subscribers": 250000}}`, Found, false},
		{"not found", http.StatusNotFound, `{"message": "Not Found", "error": 404}`, NotFound, false},
		{"unexpected kind", http.StatusOK, `{"kind": "Listing", "data": {"children": []}}`, Indeterminate, false},
		{"server error", http.StatusInternalServerError, `{"message": "oops"}`, Indeterminate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			got, err := api.Exists(context.Background(), "golang")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "/r/golang/about", gotPath)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRedditAPI_Search(t *testing.T) {
	var gotPath, gotQ, gotLimit string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQ = r.URL.Query().Get("q")
		gotLimit = r.URL.Query().Get("limit")
		fmt.Fprint(w, `{"kind": "Listing", "data": {"children": [
			{"kind": "t5", "data": {"display_name": "golang", "subscribers": 250000, "public_description": "The Go programming language"}},
			{"kind": "t5", "data": {"display_name": "", "subscribers": 1}},
			{"kind": "t5", "data": {"display_name": "gopher", "subscribers": 10}}
		]}}`)
	})

	subs, err := api.Search(context.Background(), "go & lang", 4)
	require.NoError(t, err)

	assert.Equal(t, "/subreddits/search", gotPath)
	assert.Equal(t, "go & lang", gotQ)
	assert.Equal(t, "4", gotLimit)
	require.Len(t, subs, 2)
	assert.Equal(t, Suggestion{Name: "golang", Subscribers: 250000, Description: "The Go programming language"}, subs[0])
	assert.Equal(t, "gopher", subs[1].Name)
}

func TestRedditAPI_RateLimitRetries(t *testing.T) {
	var calls atomic.Int32
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, apiListingJSON)
	})

	posts, err := api.Fetch(context.Background(), "golang")
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRedditAPI_RateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := api.Fetch(context.Background(), "golang")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(3), calls.Load())

	_, err = api.Search(context.Background(), "go", 5)
	assert.ErrorIs(t, err, ErrRateLimited)
}

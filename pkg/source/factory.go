package source

import "fmt"

// Reddit client modes.
const (
	ModePublic = "public"
	ModeAPI    = "api"
	ModeRSS    = "rss"
)

// Modes lists the accepted client modes.
func Modes() []string {
	return []string{ModePublic, ModeAPI, ModeRSS}
}

type composite struct {
	Fetcher
	ExistenceChecker
	SearchClient
}

// Compose builds a Client from separate ports.
func Compose(f Fetcher, p ExistenceChecker, s SearchClient) Client {
	return composite{Fetcher: f, ExistenceChecker: p, SearchClient: s}
}

// NewRedditClient selects the adapter for mode. RSS mode fetches from feeds and checks/searches over the public API.
func NewRedditClient(mode string, creds RedditCredentials, opts RedditOptions) (Client, error) {
	switch mode {
	case ModePublic, "":
		return NewRedditPublic(opts), nil
	case ModeAPI:
		api, err := NewRedditAPI(creds, opts)
		if err != nil {
			return nil, err
		}
		return api, nil
	case ModeRSS:
		public := NewRedditPublic(opts)
		return Compose(NewRedditRSS(opts), public, public), nil
	default:
		return nil, fmt.Errorf("unknown reddit mode %q (use 'public', 'api' or 'rss')", mode)
	}
}

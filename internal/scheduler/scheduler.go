package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/elonfeng/techriver/pkg/alert"
	"github.com/elonfeng/techriver/pkg/resolver"
	"github.com/elonfeng/techriver/pkg/river"
	"github.com/elonfeng/techriver/pkg/source"
)

// alertedRetention is how long a post ID is remembered after it was alerted.
const alertedRetention = 7 * 24 * time.Hour

// Resolver resolves a community river.
type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) (*resolver.Result, error)
}

// Cache is the part of the result cache the scheduler maintains.
type Cache interface {
	CleanupExpired() int
	Delete(key string) bool
}

// Options configures a Scheduler.
type Options struct {
	CleanupInterval time.Duration
	WarmInterval    time.Duration
	Communities     []string
	Limit           int
	MinScore        float64
	Logger          *slog.Logger
}

// Scheduler periodically sweeps expired cache entries, refreshes the rivers of
// configured communities and alerts on new high-importance posts.
type Scheduler struct {
	resolver Resolver
	cache    Cache
	alertMgr *alert.Manager
	opts     Options
	log      *slog.Logger
	now      func() time.Time

	// alerted maps post IDs to when they were alerted. Only the Run goroutine touches it.
	alerted map[string]time.Time
}

// New creates a new scheduler.
func New(r Resolver, c Cache, alertMgr *alert.Manager, opts Options) *Scheduler {
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}
	if opts.WarmInterval <= 0 {
		opts.WarmInterval = 10 * time.Minute
	}
	if opts.Limit <= 0 {
		opts.Limit = resolver.DefaultLimit
	}
	if opts.MinScore == 0 {
		opts.MinScore = 0.8
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if alertMgr == nil {
		alertMgr = alert.NewManager(nil)
	}
	return &Scheduler{
		resolver: r,
		cache:    c,
		alertMgr: alertMgr,
		opts:     opts,
		log:      opts.Logger.With("component", "scheduler"),
		now:      time.Now,
		alerted:  make(map[string]time.Time),
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	cleanupTicker := time.NewTicker(s.opts.CleanupInterval)
	warmTicker := time.NewTicker(s.opts.WarmInterval)
	defer cleanupTicker.Stop()
	defer warmTicker.Stop()

	s.log.Info("initial warm", "communities", s.opts.Communities)
	s.WarmAndAlert(ctx)

	s.log.Info("running",
		"cleanup_every", s.opts.CleanupInterval.String(),
		"warm_every", s.opts.WarmInterval.String(),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("stopped")
			return ctx.Err()
		case <-cleanupTicker.C:
			s.Cleanup()
		case <-warmTicker.C:
			s.WarmAndAlert(ctx)
		}
	}
}

// Cleanup removes expired cache entries.
func (s *Scheduler) Cleanup() int {
	n := s.cache.CleanupExpired()
	if n > 0 {
		s.log.Debug("cache cleanup", "removed", n)
	}
	return n
}

// WarmAndAlert refetches every configured community and broadcasts posts that
// reach the alert score and were not alerted before.
func (s *Scheduler) WarmAndAlert(ctx context.Context) {
	s.forgetOldAlerts()

	for _, community := range s.opts.Communities {
		if ctx.Err() != nil {
			return
		}

		req, err := resolver.Normalize(resolver.Request{
			Source:    string(source.SourceReddit),
			Community: community,
			Limit:     s.opts.Limit,
		})
		if err != nil {
			s.log.Warn("skipping community", "community", community, "error", err)
			continue
		}

		// Drop the entry under the same key Resolve stores it under.
		s.cache.Delete(resolver.CacheKey(req.Source, req.Community))
		res, err := s.resolver.Resolve(ctx, req)
		if err != nil {
			s.log.Warn("warm failed", "community", community, "error", err)
			continue
		}
		s.log.Info("warmed", "community", community, "posts", len(res.Posts), "fallback", res.Fallback)

		s.alert(ctx, res)
	}
}

func (s *Scheduler) alert(ctx context.Context, res *resolver.Result) {
	if !s.alertMgr.HasNotifiers() {
		return
	}

	var fresh []river.ScoredPost
	for _, p := range river.Top(res.Posts, s.opts.MinScore, 0) {
		if _, done := s.alerted[p.ID]; done {
			continue
		}
		fresh = append(fresh, p)
	}
	if len(fresh) == 0 {
		return
	}

	n := alert.NewNotification(res.Name, res.Fallback, fresh)
	if err := s.alertMgr.Broadcast(ctx, n); err != nil {
		s.log.Error("alert failed", "community", res.Name, "error", err)
		return
	}

	now := s.now()
	for _, p := range fresh {
		s.alerted[p.ID] = now
	}
	s.log.Info("alerted", "community", res.Name, "posts", len(fresh), "top_score", n.Score)
}

func (s *Scheduler) forgetOldAlerts() {
	cutoff := s.now().Add(-alertedRetention)
	for id, at := range s.alerted {
		if at.Before(cutoff) {
			delete(s.alerted, id)
		}
	}
}

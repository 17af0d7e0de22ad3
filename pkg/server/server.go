package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/elonfeng/techriver/pkg/cache"
	"github.com/elonfeng/techriver/pkg/resolver"
	"github.com/elonfeng/techriver/pkg/source"
	"github.com/elonfeng/techriver/pkg/suggest"
)

// Resolver resolves a community river.
type Resolver interface {
	Resolve(ctx context.Context, req resolver.Request) (*resolver.Result, error)
}

// Suggester finds communities related to a query.
type Suggester interface {
	Suggest(ctx context.Context, query string, limit int) []source.Suggestion
}

// CacheAdmin exposes the result cache for introspection.
type CacheAdmin interface {
	Stats() cache.Stats
	CleanupExpired() int
	Delete(key string) bool
	Clear()
	Keys() []string
}

// Categorizer breaks post text down into keyword categories for the dashboard.
type Categorizer interface {
	CategoryDistribution(text string) map[string][]string
	RelevanceScore(text string) float64
}

// Server provides the HTTP API.
type Server struct {
	resolver  Resolver
	suggester Suggester
	cache     CacheAdmin
	tagger    Categorizer
	port      int
	log       *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCategorizer adds the category chart to the dashboard.
func WithCategorizer(c Categorizer) Option {
	return func(s *Server) { s.tagger = c }
}

// New creates a new HTTP server.
func New(r Resolver, s Suggester, c CacheAdmin, port int, log *slog.Logger, opts ...Option) *Server {
	if port == 0 {
		port = 8080
	}
	if log == nil {
		log = slog.Default()
	}
	srv := &Server{
		resolver:  r,
		suggester: s,
		cache:     c,
		port:      port,
		log:       log,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/river", s.handleRiver)
	mux.HandleFunc("/api/suggest", s.handleSuggest)
	mux.HandleFunc("/api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("/api/cache/cleanup", s.handleCacheCleanup)
	mux.HandleFunc("/api/cache", s.handleCacheDelete)
	mux.HandleFunc("/dashboard", s.handleDashboard)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRiver(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	req, err := riverRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.resolver.Resolve(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	q := r.URL.Query().Get("q")
	if q == "" {
		s.writeError(w, &resolver.Error{Kind: resolver.KindValidation, Message: "query parameter q is required", Suggestions: []string{}})
		return
	}
	limit, err := intParam(r, "limit", suggest.DefaultLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if limit < resolver.MinLimit || limit > resolver.MaxLimit {
		s.writeError(w, &resolver.Error{
			Kind:        resolver.KindValidation,
			Message:     fmt.Sprintf("limit must be between %d and %d", resolver.MinLimit, resolver.MaxLimit),
			Suggestions: []string{},
		})
		return
	}

	suggestions := s.suggester.Suggest(r.Context(), q, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  suggestions,
		"count": len(suggestions),
	})
}

type cacheStats struct {
	cache.Stats
	Keys []string `json:"keys"`
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, cacheStats{Stats: s.cache.Stats(), Keys: s.cache.Keys()})
}

func (s *Server) handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	removed := s.cache.CleanupExpired()
	s.log.Info("cache cleanup requested", "removed", removed)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// handleCacheDelete removes one key, or every entry when no key is given.
func (s *Server) handleCacheDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		s.cache.Clear()
		s.log.Info("cache cleared")
		writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
		return
	}

	deleted := s.cache.Delete(key)
	status := http.StatusOK
	if !deleted {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]any{"key": key, "deleted": deleted})
}

func riverRequest(r *http.Request) (resolver.Request, error) {
	q := r.URL.Query()
	limit, err := intParam(r, "limit", resolver.DefaultLimit)
	if err != nil {
		return resolver.Request{}, err
	}
	name := q.Get("name")
	if name == "" {
		name = q.Get("subreddit")
	}
	return resolver.Request{
		Source:    q.Get("source"),
		Community: name,
		Limit:     limit,
	}, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &resolver.Error{
			Kind:        resolver.KindValidation,
			Message:     fmt.Sprintf("%s must be an integer", name),
			Suggestions: []string{},
		}
	}
	return n, nil
}

// writeError maps resolution errors to status codes. Anything that is not a
// *resolver.Error is reported as a generic internal error.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	rerr, ok := resolver.AsError(err)
	if !ok {
		s.log.Error("request failed", "error", err)
		rerr = &resolver.Error{Kind: resolver.KindUpstream, Message: "internal error", Suggestions: []string{}}
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(rerr, resolver.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(rerr, resolver.ErrNotFoundEmpty), errors.Is(rerr, resolver.ErrNotFoundWithSuggestions):
		status = http.StatusNotFound
	}
	writeJSON(w, status, rerr)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

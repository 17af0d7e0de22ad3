package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/elonfeng/techriver/internal/config"
	"github.com/elonfeng/techriver/internal/scheduler"
	"github.com/elonfeng/techriver/pkg/alert"
	"github.com/elonfeng/techriver/pkg/cache"
	"github.com/elonfeng/techriver/pkg/resolver"
	"github.com/elonfeng/techriver/pkg/river"
	"github.com/elonfeng/techriver/pkg/sentiment"
	"github.com/elonfeng/techriver/pkg/server"
	"github.com/elonfeng/techriver/pkg/source"
	"github.com/elonfeng/techriver/pkg/suggest"
	"github.com/elonfeng/techriver/pkg/tagger"
)

// app holds the wired pipeline.
type app struct {
	cfg       *config.Config
	resolver  *resolver.Resolver
	suggester *suggest.Searcher
	tagger    *tagger.Tagger
	cache     *cache.Cache[[]river.ScoredPost]
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := slog.Default()

	client, err := source.NewRedditClient(cfg.Reddit.Mode, cfg.Reddit.Credentials(), source.RedditOptions{
		BaseURL:         cfg.Reddit.BaseURL,
		UserAgent:       cfg.Reddit.UserAgent,
		RequestDelay:    cfg.Reddit.ParseRateLimitDelay(),
		MaxAttempts:     cfg.Reddit.MaxAttempts,
		RetryBackoff:    cfg.Reddit.ParseRetryBackoff(),
		PostsPerRequest: cfg.Reddit.PostsPerRequest,
		Logger:          log.With("component", "reddit"),
	})
	if err != nil {
		return nil, fmt.Errorf("build reddit client: %w", err)
	}

	tg, err := tagger.New(cfg.KeywordMap())
	if err != nil {
		return nil, fmt.Errorf("build tagger: %w", err)
	}

	results := cache.New[[]river.ScoredPost](cfg.Cache.ParseTTL())
	searcher := suggest.New(cfg.SynonymMap(), cfg.TopicKeywordList(), client,
		suggest.WithLogger(log.With("component", "suggest")))

	res, err := resolver.New(resolver.Deps{
		Fetcher:    client,
		Checker:    client,
		Suggester:  searcher,
		Classifier: buildClassifier(cfg),
		Tagger:     tg,
		Scorer:     river.NewScorer(cfg.River.Weights, river.WithLogger(log.With("component", "scorer"))),
		Cache:      results,
	},
		resolver.WithThreshold(cfg.River.Threshold),
		resolver.WithLogger(log.With("component", "resolver")),
	)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, resolver: res, suggester: searcher, tagger: tg, cache: results}, nil
}

func buildClassifier(cfg *config.Config) sentiment.Classifier {
	if cfg.Sentiment.Provider == "llm" && cfg.Sentiment.LLM.APIKey != "" {
		slog.Info("llm sentiment", "provider", cfg.Sentiment.LLM.Provider, "model", cfg.Sentiment.LLM.Model)
		return sentiment.NewLLM(
			cfg.Sentiment.LLM.Provider,
			cfg.Sentiment.LLM.Model,
			cfg.Sentiment.LLM.APIKey,
			cfg.Sentiment.LLM.BaseURL,
			cfg.River.Sentiment,
		)
	}
	return sentiment.NewLexicon(cfg.River.Sentiment)
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func runRiver(ctx context.Context, src, name string, limit int, jsonOutput bool) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	res, err := a.resolver.Resolve(ctx, resolver.Request{Source: src, Community: name, Limit: limit})
	if err != nil {
		if rerr, ok := resolver.AsError(err); ok && jsonOutput {
			_ = writeJSON(rerr)
		}
		return err
	}

	if jsonOutput {
		return writeJSON(res)
	}

	if res.Fallback {
		fmt.Printf("r/%s not found, showing posts from: r/%s\n\n", name, strings.Join(res.FallbackFrom, ", r/"))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tSENTIMENT\tUPVOTES\tCOMMENTS\tAGE\tTITLE")
	for _, p := range res.Posts {
		fmt.Fprintf(w, "%.2f\t%s\t%d\t%d\t%s\t%s\n",
			p.ImportanceScore, p.SentimentLabel, p.Score, p.Comments,
			age(p.CreatedAt), source.Truncate(p.Title, 80))
	}
	return w.Flush()
}

func runSuggest(ctx context.Context, query string, limit int, jsonOutput bool) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	suggestions := a.suggester.Suggest(ctx, query, limit)
	if jsonOutput {
		return writeJSON(suggestions)
	}
	if len(suggestions) == 0 {
		fmt.Println("no related communities found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tCOMMUNITY\tSUBSCRIBERS\tDESCRIPTION")
	for _, s := range suggestions {
		fmt.Fprintf(w, "%.2f\tr/%s\t%d\t%s\n", s.RelevanceScore, s.Name, s.Subscribers, source.Truncate(s.Description, 60))
	}
	return w.Flush()
}

func runServe(ctx context.Context, port int) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	if port == 0 {
		port = a.cfg.Server.Port
	}

	srv := a.server(port)
	return srv.ListenAndServe(ctx)
}

func runDaemon(ctx context.Context, port int) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	if port == 0 {
		port = a.cfg.Server.Port
	}

	alertMgr := buildAlertManager(a.cfg)
	slog.Info("alerts configured", "notifiers", alertMgr.Names())

	sched := scheduler.New(a.resolver, a.cache, alertMgr, scheduler.Options{
		CleanupInterval: a.cfg.Schedule.ParseCleanupInterval(),
		WarmInterval:    a.cfg.Schedule.ParseWarmInterval(),
		Communities:     a.cfg.Schedule.WarmCommunities,
		Limit:           a.cfg.Schedule.WarmLimit,
		MinScore:        a.cfg.Alerts.MinScore,
		Logger:          slog.Default(),
	})

	// Start scheduler in background.
	go func() {
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("scheduler stopped", "error", err)
		}
	}()

	srv := a.server(port)
	err = srv.ListenAndServe(ctx)
	slog.Info("shutting down")
	return err
}

func (a *app) server(port int) *server.Server {
	return server.New(a.resolver, a.suggester, a.cache, port,
		slog.Default().With("component", "server"),
		server.WithCategorizer(a.tagger))
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func age(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

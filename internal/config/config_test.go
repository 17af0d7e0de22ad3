package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/techriver/pkg/river"
	"github.com/elonfeng/techriver/pkg/suggest"
	"github.com/elonfeng/techriver/pkg/tagger"
)

var overrideVars = []string{
	"TECHRIVER_CACHE_TTL", "REDDIT_MODE", "REDDIT_USER_AGENT", "REDDIT_CLIENT_ID",
	"REDDIT_CLIENT_SECRET", "REDDIT_USERNAME", "REDDIT_PASSWORD", "SLACK_WEBHOOK_URL",
	"DISCORD_WEBHOOK_URL", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range overrideVars {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "techriver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Minute, cfg.Cache.ParseTTL())
	assert.Equal(t, river.DefaultWeights(), cfg.River.Weights)
	assert.Equal(t, 2*time.Second, cfg.Reddit.ParseRateLimitDelay())
	assert.Equal(t, time.Minute, cfg.Schedule.ParseCleanupInterval())
	assert.Equal(t, 10*time.Minute, cfg.Schedule.ParseWarmInterval())

	assert.Equal(t, tagger.DefaultKeywords, cfg.KeywordMap())
	assert.Equal(t, suggest.DefaultMapping, cfg.SynonymMap())
	assert.Equal(t, suggest.DefaultTopicKeywords, cfg.TopicKeywordList())
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
cache:
  ttl: "300"
river:
  threshold: 0.2
  weights:
    engagement: 0.25
    recency: 0.25
    relevance: 0.25
    sentiment: 0.25
keywords:
  databases: [postgres, sqlite]
reddit:
  mode: rss
  rate_limit_delay: 500ms
schedule:
  warm_communities: [golang]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 300*time.Second, cfg.Cache.ParseTTL())
	assert.Equal(t, 0.2, cfg.River.Threshold)
	assert.Equal(t, river.Weights{Engagement: 0.25, Recency: 0.25, Relevance: 0.25, Sentiment: 0.25}, cfg.River.Weights)
	assert.Equal(t, map[string][]string{"databases": {"postgres", "sqlite"}}, cfg.KeywordMap())
	assert.Equal(t, "rss", cfg.Reddit.Mode)
	assert.Equal(t, 500*time.Millisecond, cfg.Reddit.ParseRateLimitDelay())
	assert.Equal(t, []string{"golang"}, cfg.Schedule.WarmCommunities)

	// untouched sections keep their defaults
	assert.Equal(t, 3, cfg.Reddit.MaxAttempts)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "cache: [not, a, map"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TECHRIVER_CACHE_TTL", "90s")
	t.Setenv("REDDIT_MODE", "api")
	t.Setenv("REDDIT_CLIENT_ID", "id")
	t.Setenv("REDDIT_CLIENT_SECRET", "secret")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.test/x")
	t.Setenv("ANTHROPIC_API_KEY", "ak")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Cache.ParseTTL())
	assert.Equal(t, "api", cfg.Reddit.Mode)
	assert.Equal(t, "id", cfg.Reddit.Credentials().ID)
	assert.Equal(t, "secret", cfg.Reddit.Credentials().Secret)
	assert.True(t, cfg.Alerts.Slack.Enabled)
	assert.Equal(t, "llm", cfg.Sentiment.Provider)
	assert.Equal(t, "anthropic", cfg.Sentiment.LLM.Provider)
	assert.Empty(t, cfg.Sentiment.LLM.Model)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"weights sum", func(c *Config) { c.River.Weights.Recency = 0.9 }, "river.weights"},
		{"threshold range", func(c *Config) { c.River.Threshold = 1.5 }, "river.threshold"},
		{"ttl", func(c *Config) { c.Cache.TTL = "0" }, "cache.ttl"},
		{"ttl garbage", func(c *Config) { c.Cache.TTL = "soon" }, "cache.ttl"},
		{"empty keywords", func(c *Config) { c.Keywords = map[string][]string{"x": {" "}} }, "keywords"},
		{"sentiment thresholds", func(c *Config) { c.River.Sentiment.PositiveMin = -0.5 }, "sentiment_thresholds"},
		{"mode", func(c *Config) { c.Reddit.Mode = "scrape" }, "reddit.mode"},
		{"attempts", func(c *Config) { c.Reddit.MaxAttempts = 0 }, "reddit.max_attempts"},
		{"posts per request", func(c *Config) { c.Reddit.PostsPerRequest = 500 }, "reddit.posts_per_request"},
		{"llm without key", func(c *Config) { c.Sentiment.Provider = "llm" }, "api_key"},
		{"unknown sentiment provider", func(c *Config) { c.Sentiment.Provider = "vibes" }, "sentiment.provider"},
		{"alert score", func(c *Config) { c.Alerts.MinScore = 2 }, "alerts.min_score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
river:
  weights:
    engagement: 0.5
    recency: 0.5
    relevance: 0.5
    sentiment: 0.5
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestParseDuration_Fallback(t *testing.T) {
	assert.Equal(t, 5*time.Minute, CacheConfig{TTL: ""}.ParseTTL())
	assert.Equal(t, 5*time.Minute, CacheConfig{TTL: "nope"}.ParseTTL())
	assert.Equal(t, 1500*time.Millisecond, CacheConfig{TTL: "1.5"}.ParseTTL())
}

package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/elonfeng/techriver/pkg/river"
	"github.com/elonfeng/techriver/pkg/sentiment"
	"github.com/elonfeng/techriver/pkg/source"
	"github.com/elonfeng/techriver/pkg/suggest"
	"github.com/elonfeng/techriver/pkg/tagger"
)

// Config is the root configuration.
type Config struct {
	Cache     CacheConfig     `yaml:"cache"`
	River     RiverConfig     `yaml:"river"`
	Reddit    RedditConfig    `yaml:"reddit"`
	Sentiment SentimentConfig `yaml:"sentiment"`
	Server    ServerConfig    `yaml:"server"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Alerts    AlertsConfig    `yaml:"alerts"`

	// Keywords maps tag categories to keywords. Nil means the built-in vocabulary.
	Keywords map[string][]string `yaml:"keywords"`
	// Synonyms maps search terms to related communities. Nil means the built-in mapping.
	Synonyms map[string][]string `yaml:"synonyms"`
	// TopicKeywords decide whether a live search result is on topic. Nil means the built-in list.
	TopicKeywords []string `yaml:"topic_keywords"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	TTL string `yaml:"ttl"`
}

// ParseTTL returns the TTL as time.Duration.
func (c CacheConfig) ParseTTL() time.Duration {
	return parseDuration(c.TTL, 5*time.Minute)
}

// RiverConfig configures importance scoring.
type RiverConfig struct {
	Threshold float64              `yaml:"threshold"`
	Weights   river.Weights        `yaml:"weights"`
	Sentiment sentiment.Thresholds `yaml:"sentiment_thresholds"`
}

// RedditConfig configures the upstream client.
type RedditConfig struct {
	Mode            string `yaml:"mode"` // "public", "api" or "rss"
	BaseURL         string `yaml:"base_url"`
	UserAgent       string `yaml:"user_agent"`
	RateLimitDelay  string `yaml:"rate_limit_delay"`
	RetryBackoff    string `yaml:"retry_backoff"`
	MaxAttempts     int    `yaml:"max_attempts"`
	PostsPerRequest int    `yaml:"posts_per_request"`
	ClientID        string `yaml:"client_id"`
	ClientSecret    string `yaml:"client_secret"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
}

// ParseRateLimitDelay returns the minimum spacing between requests.
func (r RedditConfig) ParseRateLimitDelay() time.Duration {
	return parseDuration(r.RateLimitDelay, 2*time.Second)
}

// ParseRetryBackoff returns the wait between rate-limited attempts.
func (r RedditConfig) ParseRetryBackoff() time.Duration {
	return parseDuration(r.RetryBackoff, 5*time.Second)
}

// Credentials returns the OAuth credentials.
func (r RedditConfig) Credentials() source.RedditCredentials {
	return source.RedditCredentials{
		ID:       r.ClientID,
		Secret:   r.ClientSecret,
		Username: r.Username,
		Password: r.Password,
	}
}

// SentimentConfig selects the sentiment classifier.
type SentimentConfig struct {
	Provider string    `yaml:"provider"` // "lexicon" or "llm"
	LLM      LLMConfig `yaml:"llm"`
}

// LLMConfig configures the LLM sentiment classifier.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai" or "anthropic"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"` // custom endpoint (optional)
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ScheduleConfig configures background jobs.
type ScheduleConfig struct {
	CleanupInterval string   `yaml:"cleanup_interval"`
	WarmInterval    string   `yaml:"warm_interval"`
	WarmCommunities []string `yaml:"warm_communities"`
	WarmLimit       int      `yaml:"warm_limit"`
}

// ParseCleanupInterval returns the cache cleanup interval as time.Duration.
func (s ScheduleConfig) ParseCleanupInterval() time.Duration {
	return parseDuration(s.CleanupInterval, time.Minute)
}

// ParseWarmInterval returns the cache warming interval as time.Duration.
func (s ScheduleConfig) ParseWarmInterval() time.Duration {
	return parseDuration(s.WarmInterval, 10*time.Minute)
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	MinScore float64       `yaml:"min_score"`
	Slack    SlackConfig   `yaml:"slack"`
	Discord  DiscordConfig `yaml:"discord"`
	Webhook  WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{TTL: "5m"},
		River: RiverConfig{
			Threshold: river.DefaultThreshold,
			Weights:   river.DefaultWeights(),
			Sentiment: sentiment.DefaultThresholds(),
		},
		Reddit: RedditConfig{
			Mode:            source.ModePublic,
			BaseURL:         "https://www.reddit.com",
			UserAgent:       "techriver/1.0",
			RateLimitDelay:  "2s",
			RetryBackoff:    "5s",
			MaxAttempts:     3,
			PostsPerRequest: 100,
		},
		Sentiment: SentimentConfig{
			Provider: "lexicon",
			LLM: LLMConfig{
				Provider: "openai",
				Model:    "gpt-4o-mini",
			},
		},
		Server: ServerConfig{Port: 8080},
		Schedule: ScheduleConfig{
			CleanupInterval: "1m",
			WarmInterval:    "10m",
			WarmCommunities: []string{"technology", "programming"},
			WarmLimit:       50,
		},
		Alerts: AlertsConfig{MinScore: 0.8},
	}
}

// Load reads configuration from a YAML file, applies env var overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TECHRIVER_CACHE_TTL"); v != "" {
		cfg.Cache.TTL = v
	}
	if v := os.Getenv("REDDIT_MODE"); v != "" {
		cfg.Reddit.Mode = v
	}
	if v := os.Getenv("REDDIT_USER_AGENT"); v != "" {
		cfg.Reddit.UserAgent = v
	}
	if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" {
		cfg.Reddit.ClientID = v
	}
	if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" {
		cfg.Reddit.ClientSecret = v
	}
	if v := os.Getenv("REDDIT_USERNAME"); v != "" {
		cfg.Reddit.Username = v
	}
	if v := os.Getenv("REDDIT_PASSWORD"); v != "" {
		cfg.Reddit.Password = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Sentiment.LLM.APIKey = v
		cfg.Sentiment.LLM.Provider = "openai"
		cfg.Sentiment.Provider = "llm"
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Sentiment.LLM.APIKey = v
		cfg.Sentiment.LLM.Provider = "anthropic"
		cfg.Sentiment.Provider = "llm"
		if cfg.Sentiment.LLM.Model == "gpt-4o-mini" {
			cfg.Sentiment.LLM.Model = ""
		}
	}
}

// Validate rejects configuration the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if ttl, ok := tryParseDuration(c.Cache.TTL); !ok || ttl <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be a positive duration, got %q", c.Cache.TTL))
	}
	if t := c.River.Threshold; t < 0 || t > 1 || math.IsNaN(t) {
		errs = append(errs, fmt.Errorf("river.threshold must be within [0, 1], got %v", t))
	}
	if err := c.River.Weights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("river.weights: %w", err))
	}
	if err := c.River.Sentiment.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("river.sentiment_thresholds: %w", err))
	}
	if c.Keywords != nil && keywordCount(c.Keywords) == 0 {
		errs = append(errs, errors.New("keywords must contain at least one keyword"))
	}
	if !slices.Contains(source.Modes(), c.Reddit.Mode) {
		errs = append(errs, fmt.Errorf("reddit.mode must be one of %s, got %q", strings.Join(source.Modes(), ", "), c.Reddit.Mode))
	}
	if c.Reddit.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("reddit.max_attempts must be at least 1, got %d", c.Reddit.MaxAttempts))
	}
	if n := c.Reddit.PostsPerRequest; n < 1 || n > 100 {
		errs = append(errs, fmt.Errorf("reddit.posts_per_request must be within [1, 100], got %d", n))
	}
	switch c.Sentiment.Provider {
	case "lexicon":
	case "llm":
		if c.Sentiment.LLM.APIKey == "" {
			errs = append(errs, errors.New("sentiment.llm.api_key is required for the llm provider"))
		}
		if p := c.Sentiment.LLM.Provider; p != "openai" && p != "anthropic" {
			errs = append(errs, fmt.Errorf("sentiment.llm.provider must be openai or anthropic, got %q", p))
		}
	default:
		errs = append(errs, fmt.Errorf("sentiment.provider must be lexicon or llm, got %q", c.Sentiment.Provider))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if s := c.Alerts.MinScore; s < 0 || s > 1 {
		errs = append(errs, fmt.Errorf("alerts.min_score must be within [0, 1], got %v", s))
	}

	return errors.Join(errs...)
}

// KeywordMap returns the configured tag vocabulary or the built-in one.
func (c *Config) KeywordMap() map[string][]string {
	if c.Keywords == nil {
		return tagger.DefaultKeywords
	}
	return c.Keywords
}

// SynonymMap returns the configured fallback mapping or the built-in one.
func (c *Config) SynonymMap() map[string][]string {
	if c.Synonyms == nil {
		return suggest.DefaultMapping
	}
	return c.Synonyms
}

// TopicKeywordList returns the configured topic keywords or the built-in ones.
func (c *Config) TopicKeywordList() []string {
	if c.TopicKeywords == nil {
		return suggest.DefaultTopicKeywords
	}
	return c.TopicKeywords
}

func keywordCount(m map[string][]string) int {
	n := 0
	for _, kws := range m {
		for _, k := range kws {
			if strings.TrimSpace(k) != "" {
				n++
			}
		}
	}
	return n
}

// parseDuration accepts Go durations ("90s", "5m") or plain seconds ("300").
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, ok := tryParseDuration(s)
	if !ok || d <= 0 {
		return fallback
	}
	return d
}

func tryParseDuration(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), true
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}

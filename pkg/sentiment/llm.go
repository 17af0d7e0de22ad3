package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const classifyPrompt = `You are a sentiment classifier for posts in technology communities.

Rate the overall sentiment of the post below on a scale from -1.0 (very negative) to 1.0 (very positive).
0.0 means neutral or purely informational. Bug reports and complaints are negative, praise and launches are positive.

Post:
%s

Respond with a JSON object: {"score": <number between -1 and 1>}
Return ONLY the JSON object, no other text.`

// maxPromptText bounds the post text sent to the model.
const maxPromptText = 2000

// LLM classifies sentiment with an OpenAI or Anthropic chat model.
type LLM struct {
	client     *http.Client
	provider   string // "openai" or "anthropic"
	model      string
	apiKey     string
	baseURL    string
	thresholds Thresholds
}

// NewLLM creates an LLM classifier.
func NewLLM(provider, model, apiKey, baseURL string, thresholds Thresholds) *LLM {
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-sonnet-4-20250514"
		default:
			model = "gpt-4o-mini"
		}
	}
	return &LLM{
		client:     &http.Client{Timeout: 30 * time.Second},
		provider:   provider,
		model:      model,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		thresholds: thresholds,
	}
}

// Classify asks the model for a compound score.
func (l *LLM) Classify(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return NeutralResult, nil
	}
	if len(text) > maxPromptText {
		text = text[:maxPromptText]
	}

	prompt := fmt.Sprintf(classifyPrompt, text)

	var (
		raw string
		err error
	)
	switch l.provider {
	case "anthropic":
		raw, err = l.callAnthropic(ctx, prompt)
	default:
		raw, err = l.callOpenAI(ctx, prompt)
	}
	if err != nil {
		return NeutralResult, err
	}

	score, err := parseScore(raw)
	if err != nil {
		return NeutralResult, err
	}
	return l.thresholds.Result(score), nil
}

// parseScore reads {"score": x}, tolerating a markdown code fence around it.
func parseScore(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		if idx := strings.Index(raw[3:], "\n"); idx >= 0 {
			raw = raw[3+idx+1:]
		}
		raw = strings.TrimSpace(strings.TrimSuffix(raw, "```"))
	}

	var out struct {
		Score *float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return 0, fmt.Errorf("parse llm response: %w", err)
	}
	if out.Score == nil {
		return 0, fmt.Errorf("parse llm response: missing score")
	}
	return *out.Score, nil
}

func (l *LLM) callOpenAI(ctx context.Context, prompt string) (string, error) {
	baseURL := l.baseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	payload := map[string]any{
		"model": l.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0,
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai status %d", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return result.Choices[0].Message.Content, nil
}

func (l *LLM) callAnthropic(ctx context.Context, prompt string) (string, error) {
	baseURL := l.baseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	payload := map[string]any{
		"model":      l.model,
		"max_tokens": 64,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", l.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call anthropic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic status %d", resp.StatusCode)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("anthropic: no content returned")
	}
	return result.Content[0].Text, nil
}

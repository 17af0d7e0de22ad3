package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLM_ClassifyOpenAI(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"score\": 0.6}"}}]}`)
	}))
	defer srv.Close()

	llm := NewLLM("openai", "", "sk-test", srv.URL, DefaultThresholds())
	res, err := llm.Classify(context.Background(), "Go 1.25 is out and it is lovely")
	require.NoError(t, err)

	assert.Equal(t, Result{Label: Positive, Score: 0.6}, res)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
}

func TestLLM_ClassifyAnthropicFenced(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		fmt.Fprint(w, `{"content":[{"text":"`+"```json\\n{\\\"score\\\": -0.8}\\n```"+`"}]}`)
	}))
	defer srv.Close()

	llm := NewLLM("anthropic", "", "ak-test", srv.URL, DefaultThresholds())
	res, err := llm.Classify(context.Background(), "everything is broken")
	require.NoError(t, err)

	assert.Equal(t, Negative, res.Label)
	assert.InDelta(t, -0.8, res.Score, 1e-9)
	assert.Equal(t, "ak-test", gotKey)
}

func TestLLM_ClassifyErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices":[]}`)
		}},
		{"garbage", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices":[{"message":{"content":"I think it is positive"}}]}`)
		}},
		{"missing score", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices":[{"message":{"content":"{}"}}]}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			res, err := NewLLM("openai", "m", "k", srv.URL, DefaultThresholds()).Classify(context.Background(), "text")
			assert.Error(t, err)
			assert.Equal(t, NeutralResult, res)
		})
	}
}

func TestLLM_EmptyTextSkipsCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	res, err := NewLLM("openai", "", "k", srv.URL, DefaultThresholds()).Classify(context.Background(), " ")
	require.NoError(t, err)
	assert.Equal(t, NeutralResult, res)
	assert.False(t, called)
}

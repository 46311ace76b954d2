package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SEOPilot/internal/config"
)

func TestOpenAIClientComplete(t *testing.T) {
	t.Parallel()

	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"score\": 8}"}}]}`)
	}))
	defer srv.Close()

	client := NewOpenAIClient(config.LLMConfig{
		Endpoint:     srv.URL,
		Model:        "gpt-4o-mini",
		APIKey:       "sk-test",
		SystemPrompt: "be terse",
		MaxTokens:    256,
		Timeout:      time.Second,
	})

	out, err := client.Complete(context.Background(), "score this")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"score": 8}` {
		t.Fatalf("unexpected completion %q", out)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "score this" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.MaxTokens != 256 || got.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestOpenAIClientErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http error", http.StatusTooManyRequests, `{"error":"slow down"}`, "429"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"garbage", http.StatusOK, `not json`, "decode completion"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			client := NewOpenAIClient(config.LLMConfig{Endpoint: srv.URL, Model: "m", APIKey: "k"})
			_, err := client.Complete(context.Background(), "p")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestOpenAIClientMisconfigured(t *testing.T) {
	t.Parallel()

	client := NewOpenAIClient(config.LLMConfig{Model: "m"})
	if client.endpoint != defaultOpenAIEndpoint {
		t.Fatalf("expected default endpoint, got %s", client.endpoint)
	}
	if _, err := client.Complete(context.Background(), "p"); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "sk-ant" {
			t.Errorf("unexpected api key %q", r.Header.Get("X-Api-Key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "first "}, {"type": "text", "text": "second"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 2}
		}`)
	}))
	defer srv.Close()

	client := NewAnthropicClient(config.LLMConfig{
		Endpoint: srv.URL + "/",
		APIKey:   "sk-ant",
		Model:    "gpt-4o-mini",
		Timeout:  5 * time.Second,
	})

	out, err := client.Complete(context.Background(), "write")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "first second" {
		t.Fatalf("unexpected completion %q", out)
	}
	if body["model"] != defaultAnthropicModel {
		t.Fatalf("openai model name must not leak to anthropic: %v", body["model"])
	}
	if body["max_tokens"] != float64(defaultAnthropicMaxTokens) {
		t.Fatalf("unexpected max_tokens: %v", body["max_tokens"])
	}
}

func TestNewSelectsProvider(t *testing.T) {
	t.Parallel()

	if c, err := New(config.LLMConfig{Provider: "OpenAI"}); err != nil {
		t.Fatalf("openai: %v", err)
	} else if _, ok := c.(*OpenAIClient); !ok {
		t.Fatalf("expected openai client, got %T", c)
	}
	if c, err := New(config.LLMConfig{Provider: "anthropic"}); err != nil {
		t.Fatalf("anthropic: %v", err)
	} else if _, ok := c.(*AnthropicClient); !ok {
		t.Fatalf("expected anthropic client, got %T", c)
	}
	if _, err := New(config.LLMConfig{Provider: "gemini"}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}

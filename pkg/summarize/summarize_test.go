package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSummarize(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ai-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.Model != "gpt-3.5-turbo" {
			t.Errorf("unexpected model %q", payload.Model)
		}
		if len(payload.Messages) != 1 || payload.Messages[0].Role != "user" {
			t.Errorf("unexpected messages %+v", payload.Messages)
		}
		if !strings.Contains(payload.Messages[0].Content, "main.go") {
			t.Errorf("expected file path in prompt")
		}
		if !strings.Contains(payload.Messages[0].Content, "package main") {
			t.Errorf("expected file content in prompt")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"We shipped a new entry point."}}]}`))
	}))
	defer ts.Close()

	summarizer := NewChatSummarizer(Config{APIKey: "ai-key", BaseURL: ts.URL})
	summary, err := summarizer.Summarize(context.Background(), "main.go", "package main\n")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary != "We shipped a new entry point." {
		t.Fatalf("unexpected summary %q", summary)
	}
}

func TestSummarizeEmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer ts.Close()

	summarizer := NewChatSummarizer(Config{APIKey: "ai-key", BaseURL: ts.URL})
	summary, err := summarizer.Summarize(context.Background(), "main.go", "package main\n")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary != "" {
		t.Fatalf("expected empty summary, got %q", summary)
	}
}

func TestSummarizeProviderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer ts.Close()

	summarizer := NewChatSummarizer(Config{APIKey: "ai-key", BaseURL: ts.URL})
	if _, err := summarizer.Summarize(context.Background(), "main.go", "x"); err == nil {
		t.Fatalf("expected error on 429")
	}
}

package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pushrelay/pkg/apperrors"
)

const defaultBaseURL = "https://api.openai.com"

// Summarizer produces a human-readable summary of one changed file. An
// empty summary with a nil error means the collaborator had nothing to say.
type Summarizer interface {
	Summarize(ctx context.Context, filePath, fileContent string) (string, error)
}

// Config holds credentials for the text-generation API. The key is always
// injected at startup; it must never live in source.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// ChatSummarizer asks a chat-completions API to describe code changes.
type ChatSummarizer struct {
	cfg    Config
	client *http.Client
}

func NewChatSummarizer(cfg Config) *ChatSummarizer {
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ChatSummarizer{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Summarize sends one completion request for the changed file.
func (s *ChatSummarizer) Summarize(ctx context.Context, filePath, fileContent string) (string, error) {
	prompt := fmt.Sprintf(
		"Analyze the following code changes in %s:\n\n%s\n\nWrite a newsletter as if you're a product manager displaying the new updates that were just added to the code.",
		filePath, fileContent,
	)
	raw, err := json.Marshal(map[string]interface{}{
		"model":    s.cfg.Model,
		"messages": []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	base := strings.TrimRight(s.cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", apperrors.NewProviderError("summarize", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", nil
	}
	return payload.Choices[0].Message.Content, nil
}

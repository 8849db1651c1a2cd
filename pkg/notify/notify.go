package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"pushrelay/pkg/apperrors"
)

const defaultBaseURL = "https://api.sendgrid.com"

// Notifier forwards one notification email downstream and reports the
// provider status code.
type Notifier interface {
	Send(ctx context.Context, from, to, subject, htmlBody string) (int, error)
}

// Config holds credentials for the hosted mail API.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// MailNotifier sends email through a hosted mail API.
type MailNotifier struct {
	cfg    Config
	client *http.Client
}

func NewMailNotifier(cfg Config) *MailNotifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &MailNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type mailAddress struct {
	Email string `json:"email"`
}

type mailPersonalization struct {
	To []mailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailPayload struct {
	Personalizations []mailPersonalization `json:"personalizations"`
	From             mailAddress           `json:"from"`
	Subject          string                `json:"subject"`
	Content          []mailContent         `json:"content"`
}

// Send posts one email. It is a single synchronous call with no retry;
// the caller logs and moves on when it fails.
func (n *MailNotifier) Send(ctx context.Context, from, to, subject, htmlBody string) (int, error) {
	payload := mailPayload{
		Personalizations: []mailPersonalization{{To: []mailAddress{{Email: to}}}},
		From:             mailAddress{Email: from},
		Subject:          subject,
		Content:          []mailContent{{Type: "text/html", Value: htmlBody}},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	base := strings.TrimRight(n.cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v3/mail/send", bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, apperrors.NewProviderError("send mail", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.StatusCode, nil
}

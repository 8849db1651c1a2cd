package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pushrelay/pkg/apperrors"
)

const (
	defaultBaseURL    = "https://api.github.com"
	defaultWebBaseURL = "https://github.com"
)

// OAuthConfig carries the client credentials and endpoints for the
// authorization-code flow.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	// BaseURL is the REST API base, default https://api.github.com.
	BaseURL string
	// WebBaseURL is the web base hosting the OAuth endpoints, default
	// https://github.com.
	WebBaseURL string
	// Timeout bounds each outbound call.
	Timeout time.Duration
}

func (c OAuthConfig) apiBase() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		return defaultBaseURL
	}
	return base
}

func (c OAuthConfig) webBase() string {
	base := strings.TrimRight(c.WebBaseURL, "/")
	if base != "" {
		return base
	}
	api := strings.TrimRight(c.BaseURL, "/")
	if api == "" || api == defaultBaseURL {
		return defaultWebBaseURL
	}
	api = strings.TrimSuffix(api, "/api/v3")
	return strings.TrimSuffix(api, "/api")
}

func (c OAuthConfig) httpClient() *http.Client {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Token is an issued provider access token.
type Token struct {
	AccessToken string
	TokenType   string
	Scopes      []string
}

// Account is the authenticated identity behind a token.
type Account struct {
	Login  string
	ID     int64
	Scopes []string
}

// AuthorizeURL builds the provider authorization redirect target.
func AuthorizeURL(cfg OAuthConfig, state string) (string, error) {
	if cfg.ClientID == "" {
		return "", apperrors.ErrMissingCredentials
	}
	u, err := url.Parse(cfg.webBase() + "/login/oauth/authorize")
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", cfg.ClientID)
	if len(cfg.Scopes) > 0 {
		q.Set("scope", strings.Join(cfg.Scopes, " "))
	}
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Exchange trades a one-time authorization code for an access token. The
// call is never retried: a failure surfaces to the user, who re-initiates
// the login.
func Exchange(ctx context.Context, cfg OAuthConfig, code string) (Token, error) {
	if code == "" {
		return Token{}, apperrors.ErrMissingCode
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return Token{}, apperrors.ErrMissingCredentials
	}

	values := url.Values{}
	values.Set("client_id", cfg.ClientID)
	values.Set("client_secret", cfg.ClientSecret)
	values.Set("code", code)

	endpoint := cfg.webBase() + "/login/oauth/access_token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := cfg.httpClient().Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Token{}, apperrors.NewProviderError("token exchange", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken      string `json:"access_token"`
		TokenType        string `json:"token_type"`
		Scope            string `json:"scope"`
		ErrorCode        string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Token{}, fmt.Errorf("token exchange: %w", err)
	}
	if payload.AccessToken == "" {
		// The provider reports a bad or reused code as 200 with an error
		// field instead of the token.
		if payload.ErrorCode != "" {
			return Token{}, fmt.Errorf("%w: %s (%s)", apperrors.ErrMalformedResponse, payload.ErrorCode, payload.ErrorDescription)
		}
		return Token{}, apperrors.ErrMalformedResponse
	}
	return Token{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
		Scopes:      splitScopes(payload.Scope),
	}, nil
}

// ResolveIdentity fetches the account behind an access token. The granted
// scope set comes back in the X-OAuth-Scopes response header.
func ResolveIdentity(ctx context.Context, cfg OAuthConfig, accessToken string) (Account, error) {
	if accessToken == "" {
		return Account{}, apperrors.ErrUnauthorized
	}
	endpoint := cfg.apiBase() + "/user"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Account{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := cfg.httpClient().Do(req)
	if err != nil {
		return Account{}, fmt.Errorf("identity lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return Account{}, fmt.Errorf("identity lookup: %w", apperrors.ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Account{}, apperrors.NewProviderError("identity lookup", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Login string `json:"login"`
		ID    int64  `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Account{}, fmt.Errorf("identity lookup: %w", err)
	}
	if payload.Login == "" {
		return Account{}, fmt.Errorf("identity lookup: %w", apperrors.ErrMalformedResponse)
	}
	return Account{
		Login:  payload.Login,
		ID:     payload.ID,
		Scopes: splitScopes(resp.Header.Get("X-OAuth-Scopes")),
	}, nil
}

func splitScopes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	scopes := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	return scopes
}

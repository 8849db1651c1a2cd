package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"pushrelay/pkg/apperrors"
)

// Client is the official GitHub SDK client.
type Client = gh.Client

// NewClient builds a GitHub SDK client authenticated with an access token.
func NewClient(ctx context.Context, accessToken, baseURL string) (*Client, error) {
	if accessToken == "" {
		return nil, apperrors.ErrUnauthorized
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	httpClient := oauth2.NewClient(ctx, ts)

	base := strings.TrimRight(baseURL, "/")
	if base != "" && base != defaultBaseURL {
		return gh.NewEnterpriseClient(base, base, httpClient)
	}
	return gh.NewClient(httpClient), nil
}

// wrapAPIError maps SDK errors onto the local taxonomy: 401 becomes
// ErrUnauthorized so callers prompt re-authentication, any other non-2xx
// keeps its status and message for diagnostics.
func wrapAPIError(op string, err error) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		if ghErr.Response.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%s: %w", op, apperrors.ErrUnauthorized)
		}
		return apperrors.NewProviderError(op, ghErr.Response.StatusCode, ghErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func splitFullName(fullName string) (owner, name string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository name %q, want owner/name", fullName)
	}
	return parts[0], parts[1], nil
}

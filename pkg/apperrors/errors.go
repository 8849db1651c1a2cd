package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the interactive flows. None of these are retried
// automatically: the user re-initiates the request.
var (
	// ErrMissingCode means the OAuth redirect arrived without a code.
	ErrMissingCode = errors.New("authorization code missing")
	// ErrMissingCredentials means the OAuth client id or secret is unset.
	ErrMissingCredentials = errors.New("oauth client credentials missing")
	// ErrMalformedResponse means the provider response lacked the expected
	// token field.
	ErrMalformedResponse = errors.New("provider response missing access token")
	// ErrUnauthorized means the provider rejected the access token; the
	// caller must prompt re-authentication.
	ErrUnauthorized = errors.New("access token rejected by provider")
	// ErrNoToken means no stored token exists for the identity.
	ErrNoToken = errors.New("no stored token for identity")
)

// ProviderError carries a non-2xx provider status and response body for
// diagnostics.
type ProviderError struct {
	Op     string
	Status int
	Body   string
}

func NewProviderError(op string, status int, body string) *ProviderError {
	return &ProviderError{Op: op, Status: status, Body: body}
}

func (e *ProviderError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: provider returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: provider returned %d: %s", e.Op, e.Status, e.Body)
}

// AsProviderError unwraps err into a ProviderError when possible.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// ConfigError reports a missing or invalid required configuration value.
// It is raised at startup so a misconfigured process never serves traffic.
type ConfigError struct {
	Reason string
}

func NewConfigError(reason string) *ConfigError {
	return &ConfigError{Reason: reason}
}

func (e *ConfigError) Error() string {
	return "configuration: " + e.Reason
}

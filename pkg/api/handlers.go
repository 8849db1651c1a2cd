package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"

	"pushrelay/internal"
	"pushrelay/pkg/apperrors"
	"pushrelay/pkg/github"
	"pushrelay/pkg/session"
	"pushrelay/pkg/storage"
)

// HomeHandler serves the minimal login page.
type HomeHandler struct{}

func (h *HomeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	internal.IncRequest("home")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>pushrelay</title></head>
<body>
<button onclick="window.location.href='/login'">Login with GitHub</button>
</body>
</html>`)
}

// LoginHandler redirects the user into the provider authorization flow.
type LoginHandler struct {
	OAuth  github.OAuthConfig
	Logger *log.Logger
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	internal.IncRequest("login")
	target, err := github.AuthorizeURL(h.OAuth, randomState())
	if err != nil {
		renderError(w, h.Logger, http.StatusInternalServerError, "login is not configured", err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// CallbackHandler is the OAuth redirect target: it exchanges the code,
// resolves the identity, persists the token, and opens a session.
type CallbackHandler struct {
	OAuth    github.OAuthConfig
	Store    storage.TokenStore
	Sessions *session.Manager
	Logger   *log.Logger
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = log.Default()
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	internal.IncRequest("callback")

	code := r.URL.Query().Get("code")
	token, err := github.Exchange(r.Context(), h.OAuth, code)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, apperrors.ErrMissingCode) || errors.Is(err, apperrors.ErrMissingCredentials) {
			status = http.StatusBadRequest
		}
		renderError(w, logger, status, "token exchange failed", err)
		return
	}

	account, err := github.ResolveIdentity(r.Context(), h.OAuth, token.AccessToken)
	if err != nil {
		renderError(w, logger, http.StatusBadGateway, "identity lookup failed", err)
		return
	}

	scopes := token.Scopes
	if len(scopes) == 0 {
		scopes = account.Scopes
	}
	record := storage.TokenRecord{
		Identity:    account.Login,
		AccessToken: token.AccessToken,
		Scopes:      scopes,
	}
	if err := h.Store.Upsert(r.Context(), record); err != nil {
		renderError(w, logger, http.StatusInternalServerError, "could not persist token", err)
		return
	}
	if err := h.Sessions.SetIdentity(w, account.Login); err != nil {
		renderError(w, logger, http.StatusInternalServerError, "could not open session", err)
		return
	}

	logger.Printf("login succeeded identity=%s scopes=%v", account.Login, scopes)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<html><body><h1>Logged in successfully as %s! Access token: %s...</h1></body></html>",
		html.EscapeString(account.Login), html.EscapeString(tokenPreview(token.AccessToken)))
}

// CheckTokenHandler reports the stored token's identity and scopes for the
// current session and whether the provider still accepts it.
type CheckTokenHandler struct {
	OAuth    github.OAuthConfig
	Store    storage.TokenStore
	Sessions *session.Manager
	Logger   *log.Logger
}

func (h *CheckTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	internal.IncRequest("check_token")

	record, ok := currentToken(r, h.Sessions, h.Store, h.Logger, w)
	if !ok {
		return
	}

	valid := true
	if _, err := github.ResolveIdentity(r.Context(), h.OAuth, record.AccessToken); err != nil {
		if !errors.Is(err, apperrors.ErrUnauthorized) {
			renderError(w, h.Logger, http.StatusBadGateway, "token check failed", err)
			return
		}
		valid = false
	}

	writeJSON(w, map[string]interface{}{
		"identity": record.Identity,
		"scopes":   record.Scopes,
		"valid":    valid,
	})
}

// currentToken resolves the session identity to its stored token. A missing
// session or record is terminal for the request: the response asks the user
// to authenticate and the handler stops.
func currentToken(r *http.Request, sessions *session.Manager, store storage.TokenStore, logger *log.Logger, w http.ResponseWriter) (*storage.TokenRecord, bool) {
	identity, ok := sessions.Identity(r)
	if !ok {
		http.Error(w, "not logged in, visit /login first", http.StatusUnauthorized)
		return nil, false
	}
	record, err := store.Get(r.Context(), identity)
	if err != nil {
		renderError(w, logger, http.StatusInternalServerError, "token lookup failed", err)
		return nil, false
	}
	if record == nil {
		http.Error(w, "no stored token, visit /login first", http.StatusUnauthorized)
		return nil, false
	}
	return record, true
}

func renderError(w http.ResponseWriter, logger *log.Logger, status int, message string, err error) {
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("%s: %v", message, err)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<html><body><h1>Error: %s</h1><p>%s</p></body></html>",
		html.EscapeString(message), html.EscapeString(err.Error()))
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func tokenPreview(token string) string {
	if len(token) <= 10 {
		return token
	}
	return token[:10]
}

func randomState() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

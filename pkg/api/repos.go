package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"pushrelay/internal"
	"pushrelay/pkg/apperrors"
	"pushrelay/pkg/github"
	"pushrelay/pkg/session"
	"pushrelay/pkg/storage"
)

// ReposHandler lists every repository visible to the session's token,
// walking all provider pages.
type ReposHandler struct {
	OAuth    github.OAuthConfig
	Store    storage.TokenStore
	Sessions *session.Manager
	Logger   *log.Logger
}

func (h *ReposHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	internal.IncRequest("list_repos")

	record, ok := currentToken(r, h.Sessions, h.Store, h.Logger, w)
	if !ok {
		return
	}

	client, err := github.NewClient(r.Context(), record.AccessToken, h.OAuth.BaseURL)
	if err != nil {
		renderError(w, h.Logger, http.StatusInternalServerError, "client setup failed", err)
		return
	}
	refs, err := github.ListAllRepos(r.Context(), client)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			http.Error(w, "token expired or revoked, visit /login again", http.StatusUnauthorized)
			return
		}
		renderError(w, h.Logger, http.StatusBadGateway, "repository listing failed", err)
		return
	}

	writeJSON(w, refs)
}

// SetupWebhooksHandler registers a push webhook on each requested
// repository and reports one outcome per repository, in request order.
type SetupWebhooksHandler struct {
	OAuth     github.OAuthConfig
	Store     storage.TokenStore
	Sessions  *session.Manager
	TargetURL string
	Logger    *log.Logger
}

type setupWebhooksRequest struct {
	Repos []string `json:"repos"`
}

func (h *SetupWebhooksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	internal.IncRequest("setup_webhooks")

	var req setupWebhooksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	repos := make([]string, 0, len(req.Repos))
	for _, name := range req.Repos {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			repos = append(repos, trimmed)
		}
	}
	if len(repos) == 0 {
		http.Error(w, "no repositories requested", http.StatusBadRequest)
		return
	}
	if h.TargetURL == "" {
		renderError(w, h.Logger, http.StatusInternalServerError, "webhook target url is not configured",
			apperrors.NewConfigError("webhook.target_url is required"))
		return
	}

	record, ok := currentToken(r, h.Sessions, h.Store, h.Logger, w)
	if !ok {
		return
	}
	client, err := github.NewClient(r.Context(), record.AccessToken, h.OAuth.BaseURL)
	if err != nil {
		renderError(w, h.Logger, http.StatusInternalServerError, "client setup failed", err)
		return
	}

	outcomes := github.RegisterPushHooks(r.Context(), client, repos, h.TargetURL)
	for _, outcome := range outcomes {
		if outcome.Kind != github.OutcomeRegistered && h.Logger != nil {
			h.Logger.Printf("hook registration repo=%s kind=%s reason=%q status=%d",
				outcome.Repo, outcome.Kind, outcome.Reason, outcome.Status)
		}
	}
	writeJSON(w, outcomes)
}

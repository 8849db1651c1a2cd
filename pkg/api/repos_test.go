package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pushrelay/pkg/github"
	"pushrelay/pkg/session"
	"pushrelay/pkg/storage"
)

func TestReposHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/user/repos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"full_name":"org/alpha","private":true,"default_branch":"main","permissions":{"admin":true}},{"full_name":"org/beta","permissions":{"admin":false}}]`))
	})
	cfg, _ := testProvider(t, mux)

	store := storage.NewMemoryStore()
	sessions := session.NewManager("session-secret", false)
	cookie := seedSession(t, sessions, store, "octocat", "gho_token")

	handler := &ReposHandler{OAuth: cfg, Store: store, Sessions: sessions}
	req := httptest.NewRequest(http.MethodGet, "/list_repos", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var refs []github.RepositoryRef
	if err := json.NewDecoder(rec.Body).Decode(&refs); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 repos, got %d", len(refs))
	}
	if refs[0].FullName != "org/alpha" || !refs[0].Admin || !refs[0].Private {
		t.Fatalf("unexpected first repo %+v", refs[0])
	}
	if refs[1].FullName != "org/beta" || refs[1].Admin {
		t.Fatalf("unexpected second repo %+v", refs[1])
	}
}

func TestReposHandlerTokenRevoked(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/user/repos", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	})
	cfg, _ := testProvider(t, mux)

	store := storage.NewMemoryStore()
	sessions := session.NewManager("session-secret", false)
	cookie := seedSession(t, sessions, store, "octocat", "gho_revoked")

	handler := &ReposHandler{OAuth: cfg, Store: store, Sessions: sessions}
	req := httptest.NewRequest(http.MethodGet, "/list_repos", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked token, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/login") {
		t.Fatalf("expected re-login hint, got %q", rec.Body.String())
	}
}

func TestReposHandlerWithoutSession(t *testing.T) {
	cfg, _ := testProvider(t, http.NewServeMux())
	handler := &ReposHandler{
		OAuth:    cfg,
		Store:    storage.NewMemoryStore(),
		Sessions: session.NewManager("session-secret", false),
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list_repos", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}
}

func TestSetupWebhooksMixedOutcomes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/org/alpha", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"full_name":"org/alpha","permissions":{"admin":true}}`))
	})
	mux.HandleFunc("/api/v3/repos/org/alpha/hooks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7}`))
	})
	mux.HandleFunc("/api/v3/repos/org/beta", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"full_name":"org/beta","permissions":{"admin":true}}`))
	})
	mux.HandleFunc("/api/v3/repos/org/beta/hooks", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	})
	cfg, _ := testProvider(t, mux)

	store := storage.NewMemoryStore()
	sessions := session.NewManager("session-secret", false)
	cookie := seedSession(t, sessions, store, "octocat", "gho_token")

	handler := &SetupWebhooksHandler{
		OAuth:     cfg,
		Store:     store,
		Sessions:  sessions,
		TargetURL: "https://relay.example.com/webhook",
	}
	req := httptest.NewRequest(http.MethodPost, "/setup_webhooks",
		strings.NewReader(`{"repos":["org/alpha","org/beta"]}`))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var outcomes []github.RegistrationOutcome
	if err := json.NewDecoder(rec.Body).Decode(&outcomes); err != nil {
		t.Fatalf("decode outcomes: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected one outcome per requested repo, got %d", len(outcomes))
	}
	if outcomes[0].Repo != "org/alpha" || outcomes[0].Kind != github.OutcomeRegistered || outcomes[0].HookID != 7 {
		t.Fatalf("unexpected first outcome %+v", outcomes[0])
	}
	if outcomes[1].Repo != "org/beta" || outcomes[1].Kind != github.OutcomeFailed || outcomes[1].Status != http.StatusInternalServerError {
		t.Fatalf("unexpected second outcome %+v", outcomes[1])
	}
}

func TestSetupWebhooksEmptyRequest(t *testing.T) {
	cfg, _ := testProvider(t, http.NewServeMux())
	handler := &SetupWebhooksHandler{
		OAuth:     cfg,
		Store:     storage.NewMemoryStore(),
		Sessions:  session.NewManager("session-secret", false),
		TargetURL: "https://relay.example.com/webhook",
	}
	req := httptest.NewRequest(http.MethodPost, "/setup_webhooks", strings.NewReader(`{"repos":[]}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty repo list, got %d", rec.Code)
	}
}

func TestSetupWebhooksRequiresPost(t *testing.T) {
	cfg, _ := testProvider(t, http.NewServeMux())
	handler := &SetupWebhooksHandler{
		OAuth:     cfg,
		Store:     storage.NewMemoryStore(),
		Sessions:  session.NewManager("session-secret", false),
		TargetURL: "https://relay.example.com/webhook",
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/setup_webhooks", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", rec.Code)
	}
}

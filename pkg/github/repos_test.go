package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient points an SDK client at a stub API server. The enterprise
// client mounts the REST API under /api/v3/, so stub handlers register there.
func newTestClient(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	client, err := NewClient(context.Background(), "gho_token", ts.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, ts
}

func TestPagerWalksPages(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/api/v3/user/repos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/api/v3/user/repos?page=2>; rel="next", <%s/api/v3/user/repos?page=2>; rel="last"`, server.URL, server.URL))
			w.Write([]byte(`[{"full_name":"org/alpha","private":false,"default_branch":"main","permissions":{"admin":true}}]`))
		case "2":
			w.Write([]byte(`[{"full_name":"org/beta","private":true,"default_branch":"main","permissions":{"admin":false}}]`))
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})
	client, ts := newTestClient(t, mux)
	server = ts

	pager := NewRepoPager(client)

	first, done, err := pager.Next(context.Background())
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if done {
		t.Fatalf("expected more pages after the first")
	}
	if len(first) != 1 || first[0].FullName != "org/alpha" || !first[0].Admin {
		t.Fatalf("unexpected first page %+v", first)
	}

	second, done, err := pager.Next(context.Background())
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if !done {
		t.Fatalf("expected pagination to finish on the second page")
	}
	if len(second) != 1 || second[0].FullName != "org/beta" || second[0].Admin {
		t.Fatalf("unexpected second page %+v", second)
	}

	// Exhausted pagers keep reporting done without hitting the provider.
	extra, done, err := pager.Next(context.Background())
	if err != nil || !done || len(extra) != 0 {
		t.Fatalf("expected empty terminal page, got %v %v %v", extra, done, err)
	}
}

func TestPagerRestartable(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/user/repos", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"full_name":"org/alpha","permissions":{"admin":true}}]`))
	})
	client, _ := newTestClient(t, mux)

	for i := 0; i < 2; i++ {
		refs, done, err := NewRepoPager(client).Next(context.Background())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !done || len(refs) != 1 {
			t.Fatalf("unexpected page %v done=%v", refs, done)
		}
	}
	if calls != 2 {
		t.Fatalf("expected one provider call per fresh pager, got %d", calls)
	}
}

func TestListAllRepos(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/user/repos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"full_name":"org/alpha","permissions":{"admin":true}},{"full_name":"org/beta"}]`))
	})
	client, _ := newTestClient(t, mux)

	refs, err := ListAllRepos(context.Background(), client)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 repos, got %d", len(refs))
	}
	if refs[0].FullName != "org/alpha" || refs[1].FullName != "org/beta" {
		t.Fatalf("unexpected order %+v", refs)
	}
}

func TestGetRepoInvalidName(t *testing.T) {
	client, _ := newTestClient(t, http.NewServeMux())
	if _, err := GetRepo(context.Background(), client, "not-a-full-name"); err == nil {
		t.Fatalf("expected error for name without owner")
	}
}

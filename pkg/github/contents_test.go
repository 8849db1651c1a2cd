package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"testing"
)

func TestFetchFileContent(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("package main\n"))
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/org/repo/contents/main.go", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ref"); got != "abc123" {
			t.Errorf("expected ref abc123, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"type":"file","name":"main.go","path":"main.go","encoding":"base64","content":%q}`, encoded)
	})
	client, _ := newTestClient(t, mux)

	content, err := FetchFileContent(context.Background(), client, "org/repo", "main.go", "abc123")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if content != "package main\n" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestFetchFileContentDirectory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/org/repo/contents/src", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"type":"file","name":"a.go","path":"src/a.go"}]`))
	})
	client, _ := newTestClient(t, mux)

	if _, err := FetchFileContent(context.Background(), client, "org/repo", "src", ""); err == nil {
		t.Fatalf("expected error for directory path")
	}
}

func TestFetchFileContentNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/org/repo/contents/missing.txt", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})
	client, _ := newTestClient(t, mux)

	if _, err := FetchFileContent(context.Background(), client, "org/repo", "missing.txt", ""); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

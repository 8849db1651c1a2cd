package webhook

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/webhooks/v6/github"

	"pushrelay/internal"
	ghclient "pushrelay/pkg/github"
	"pushrelay/pkg/notify"
	"pushrelay/pkg/storage"
	"pushrelay/pkg/summarize"
)

// Config wires the push-event handler's collaborators. Notifier and
// Summarizer may be nil, which disables the corresponding dispatch.
type Config struct {
	Secret     string
	Filter     *internal.Filter
	Store      storage.TokenStore
	APIBaseURL string
	Notifier   notify.Notifier
	NotifyFrom string
	NotifyTo   string
	Summarizer summarize.Summarizer
	Logger     *log.Logger
}

// GitHubHandler receives push events and relays them downstream. It always
// acknowledges receipt with 200: the provider treats anything else as a
// delivery failure and retries redundantly, so internal errors are logged
// and swallowed.
type GitHubHandler struct {
	hook       *github.Webhook
	filter     *internal.Filter
	store      storage.TokenStore
	apiBaseURL string
	notifier   notify.Notifier
	notifyFrom string
	notifyTo   string
	summarizer summarize.Summarizer
	logger     *log.Logger
}

func NewGitHubHandler(cfg Config) (*GitHubHandler, error) {
	hook, err := github.New(github.Options.Secret(cfg.Secret))
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &GitHubHandler{
		hook:       hook,
		filter:     cfg.Filter,
		store:      cfg.Store,
		apiBaseURL: cfg.APIBaseURL,
		notifier:   cfg.Notifier,
		notifyFrom: cfg.NotifyFrom,
		notifyTo:   cfg.NotifyTo,
		summarizer: cfg.Summarizer,
		logger:     logger,
	}, nil
}

func (h *GitHubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	internal.IncRequest("webhook")

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("webhook body read failed: %v", err)
		w.WriteHeader(http.StatusOK)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(rawBody))

	payload, err := h.hook.Parse(r, github.PushEvent, github.PingEvent)
	if err != nil {
		h.logger.Printf("webhook parse failed: %v", err)
		internal.IncIgnoredEvent("parse_error")
		w.WriteHeader(http.StatusOK)
		return
	}

	switch event := payload.(type) {
	case github.PingPayload:
		h.logger.Printf("ping from hook id=%d", event.HookID)
	case github.PushPayload:
		h.process(r.Context(), rawBody, event)
	default:
		internal.IncIgnoredEvent("unhandled_event")
	}
	w.WriteHeader(http.StatusOK)
}

// process runs the push event to completion. There is no way to abort
// mid-flight; per-file failures are logged and skipped.
func (h *GitHubHandler) process(ctx context.Context, rawBody []byte, push github.PushPayload) {
	if !h.filter.Match(rawBody) {
		h.logger.Printf("ignoring push to %s on %s", push.Repository.FullName, push.Ref)
		internal.IncIgnoredEvent("filtered")
		return
	}

	repo := push.Repository.FullName
	pusher := push.Pusher.Name
	h.logger.Printf("push repo=%s pusher=%s ref=%s commits=%d", repo, pusher, push.Ref, len(push.Commits))
	for _, commit := range push.Commits {
		h.logger.Printf("commit %s added=%v removed=%v modified=%v",
			shortSHA(commit.ID), commit.Added, commit.Removed, commit.Modified)
	}

	// The notification does not depend on a stored token.
	h.notifyPush(ctx, push)
	h.summarizeFiles(ctx, push)
}

func (h *GitHubHandler) notifyPush(ctx context.Context, push github.PushPayload) {
	if h.notifier == nil {
		return
	}
	repo := push.Repository.FullName
	subject := "New push to " + repo

	var body strings.Builder
	fmt.Fprintf(&body, "<p>New push to %s by %s</p><ul>",
		html.EscapeString(repo), html.EscapeString(push.Pusher.Name))
	for _, commit := range push.Commits {
		fmt.Fprintf(&body, "<li>%s</li>", html.EscapeString(commit.Message))
	}
	body.WriteString("</ul>")

	status, err := h.notifier.Send(ctx, h.notifyFrom, h.notifyTo, subject, body.String())
	if err != nil {
		h.logger.Printf("notification failed status=%d: %v", status, err)
		internal.IncDispatchError("notifier")
		return
	}
	h.logger.Printf("notification sent status=%d repo=%s", status, repo)
}

// summarizeFiles fetches the content of each added or modified file and
// forwards it to the summarizer. Removed files are never fetched. A missing
// token for the pusher makes content fetching impossible; the event has
// already been acknowledged and notified, so it just logs and stops.
func (h *GitHubHandler) summarizeFiles(ctx context.Context, push github.PushPayload) {
	if h.summarizer == nil {
		return
	}
	pusher := push.Pusher.Name
	record, err := h.store.Get(ctx, pusher)
	if err != nil {
		h.logger.Printf("token lookup for pusher %q failed: %v", pusher, err)
		return
	}
	if record == nil {
		h.logger.Printf("no stored token for pusher %q, skipping file summaries", pusher)
		return
	}
	client, err := ghclient.NewClient(ctx, record.AccessToken, h.apiBaseURL)
	if err != nil {
		h.logger.Printf("client setup for pusher %q failed: %v", pusher, err)
		return
	}

	repo := push.Repository.FullName
	for _, commit := range push.Commits {
		paths := make([]string, 0, len(commit.Added)+len(commit.Modified))
		paths = append(paths, commit.Added...)
		paths = append(paths, commit.Modified...)
		for _, path := range paths {
			content, err := ghclient.FetchFileContent(ctx, client, repo, path, commit.ID)
			if err != nil {
				h.logger.Printf("fetch %s@%s failed: %v", path, shortSHA(commit.ID), err)
				internal.IncFetchError("contents")
				continue
			}
			summary, err := h.summarizer.Summarize(ctx, path, content)
			if err != nil {
				h.logger.Printf("summarize %s failed: %v", path, err)
				internal.IncDispatchError("summarizer")
				continue
			}
			if summary != "" {
				h.logger.Printf("summary for %s:\n%s", path, summary)
			}
		}
	}
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}

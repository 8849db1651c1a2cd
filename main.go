package main

import (
	"context"
	"expvar"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"pushrelay/internal"
	"pushrelay/pkg/api"
	ghclient "pushrelay/pkg/github"
	"pushrelay/pkg/notify"
	"pushrelay/pkg/session"
	"pushrelay/pkg/storage"
	"pushrelay/pkg/storage/tokens"
	"pushrelay/pkg/summarize"
	"pushrelay/webhook"
)

func main() {
	logger := internal.NewLogger("server")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := internal.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	filter, err := internal.CompileFilter(cfg.Webhook.Filter)
	if err != nil {
		logger.Fatalf("compile webhook filter: %v", err)
	}

	var store storage.TokenStore
	if cfg.Storage.DSN != "" {
		dbStore, err := tokens.Open(tokens.Config{
			Driver:      cfg.Storage.Driver,
			DSN:         cfg.Storage.DSN,
			Table:       cfg.Storage.Table,
			AutoMigrate: true,
		})
		if err != nil {
			logger.Fatalf("open token store: %v", err)
		}
		store = dbStore
		logger.Printf("token store driver=%s table=%s", cfg.Storage.Driver, cfg.Storage.Table)
	} else {
		store = storage.NewMemoryStore()
		logger.Printf("DATABASE_URL not set, tokens kept in memory")
	}
	defer store.Close()

	oauthCfg := ghclient.OAuthConfig{
		ClientID:     cfg.GitHub.ClientID,
		ClientSecret: cfg.GitHub.ClientSecret,
		Scopes:       cfg.GitHub.Scopes,
		BaseURL:      cfg.GitHub.BaseURL,
		WebBaseURL:   cfg.GitHub.WebBaseURL,
		Timeout:      time.Duration(cfg.GitHub.OutboundTimeoutMS) * time.Millisecond,
	}
	secureCookies := strings.HasPrefix(cfg.Webhook.TargetURL, "https://")
	sessions := session.NewManager(cfg.Session.SecretKey, secureCookies)

	var notifier notify.Notifier
	if cfg.Notifier.Enabled {
		notifier = notify.NewMailNotifier(notify.Config{
			APIKey:  cfg.Notifier.APIKey,
			BaseURL: cfg.Notifier.BaseURL,
		})
		logger.Printf("notifier enabled from=%s to=%s", cfg.Notifier.From, cfg.Notifier.To)
	}
	var summarizer summarize.Summarizer
	if cfg.Summarizer.Enabled {
		summarizer = summarize.NewChatSummarizer(summarize.Config{
			APIKey:  cfg.Summarizer.APIKey,
			Model:   cfg.Summarizer.Model,
			BaseURL: cfg.Summarizer.BaseURL,
		})
		logger.Printf("summarizer enabled model=%s", cfg.Summarizer.Model)
	}

	hookHandler, err := webhook.NewGitHubHandler(webhook.Config{
		Filter:     filter,
		Store:      store,
		APIBaseURL: cfg.GitHub.BaseURL,
		Notifier:   notifier,
		NotifyFrom: cfg.Notifier.From,
		NotifyTo:   cfg.Notifier.To,
		Summarizer: summarizer,
		Logger:     internal.NewLogger("webhook"),
	})
	if err != nil {
		logger.Fatalf("webhook handler: %v", err)
	}

	authLogger := internal.NewLogger("auth")
	apiLogger := internal.NewLogger("api")

	mux := http.NewServeMux()
	mux.Handle("/", &api.HomeHandler{})
	mux.Handle("/login", &api.LoginHandler{OAuth: oauthCfg, Logger: authLogger})
	mux.Handle("/callback", &api.CallbackHandler{OAuth: oauthCfg, Store: store, Sessions: sessions, Logger: authLogger})
	mux.Handle("/list_repos", &api.ReposHandler{OAuth: oauthCfg, Store: store, Sessions: sessions, Logger: apiLogger})
	mux.Handle("/setup_webhooks", &api.SetupWebhooksHandler{
		OAuth:     oauthCfg,
		Store:     store,
		Sessions:  sessions,
		TargetURL: cfg.Webhook.TargetURL,
		Logger:    apiLogger,
	})
	mux.Handle("/check_token", &api.CheckTokenHandler{OAuth: oauthCfg, Store: store, Sessions: sessions, Logger: apiLogger})
	mux.Handle(cfg.Webhook.Path, hookHandler)
	if cfg.Server.MetricsEnabled {
		mux.Handle(cfg.Server.MetricsPath, expvar.Handler())
	}

	var handler http.Handler = http.MaxBytesHandler(mux, cfg.Server.MaxBodyBytes)
	handler = internal.NewRateLimitHandler(handler, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutMS) * time.Millisecond,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutMS) * time.Millisecond,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderMS) * time.Millisecond,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Printf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	<-shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/cexll/checklist-gate/internal/config"
	"github.com/cexll/checklist-gate/internal/dispatcher"
	"github.com/cexll/checklist-gate/internal/evalstore"
	"github.com/cexll/checklist-gate/internal/evaluator"
	"github.com/cexll/checklist-gate/internal/github"
	"github.com/cexll/checklist-gate/internal/session"
	"github.com/cexll/checklist-gate/internal/uistate"
	"github.com/cexll/checklist-gate/internal/web"
	"github.com/cexll/checklist-gate/internal/webhook"
)

var (
	loadDotEnv         = godotenv.Load
	openStateStore     = uistate.Open
	newDispatcher      = dispatcher.New
	newWebHandler      = web.NewHandler
	defaultListenServe = http.ListenAndServe
)

func main() {
	if err := run(context.Background(), defaultListenServe); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(ctx context.Context, serve func(string, http.Handler) error) error {
	// Load .env file (ignore error if file doesn't exist)
	_ = loadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log.Printf("Starting checklist-gate server...")
	log.Printf("Port: %d", cfg.Port)
	log.Printf("Trigger keyword: %s", cfg.TriggerKeyword)
	log.Printf("GitHub App ID: %s", cfg.GitHubAppID)
	log.Printf("Gate contexts: %v (while incomplete: %s, hint label: %q)", cfg.GateContexts, cfg.GateFailureState, cfg.GateHintLabel)
	log.Printf("Dispatcher workers: %d, queue size: %d, max attempts: %d", cfg.DispatcherWorkers, cfg.DispatcherQueueSize, cfg.DispatcherMaxAttempts)

	states, err := openStateStore(ctx, cfg.StateDBPath)
	if err != nil {
		return fmt.Errorf("failed to open UI state store: %w", err)
	}
	defer states.Close()
	if cfg.StateDBPath != "" {
		log.Printf("UI state: sqlite %s", cfg.StateDBPath)
	} else {
		log.Printf("UI state: in memory")
	}

	passes := evalstore.NewStore()

	appAuth := github.NewAppAuth(cfg.GitHubAppID, cfg.GitHubPrivateKey, cfg.GitHubRateLimit)
	appAuth.BaseURL = cfg.GitHubAPIURL

	celebrations := session.NewCelebrations(session.Options{
		TTL:         cfg.SessionTTL,
		RearmOnDrop: cfg.SessionRearmOnDrop,
	})

	eval := evaluator.New(appAuth, states, celebrations, passes, evaluator.Options{
		Status: github.StatusOptions{
			Contexts:     cfg.GateContexts,
			FailureState: cfg.GateFailureState,
			HintLabel:    cfg.GateHintLabel,
		},
		Keyword:            cfg.TriggerKeyword,
		CelebrationComment: cfg.CelebrationComment,
		RequireWrite:       cfg.CommandRequireWrite,
		WatchInterval:      cfg.WatchInterval,
		WatchTimeout:       cfg.WatchTimeout,
	})

	// Initialize dispatcher (job queue with retries)
	dispatcherConfig := dispatcher.Config{
		Workers:           cfg.DispatcherWorkers,
		QueueSize:         cfg.DispatcherQueueSize,
		WatchWorkers:      cfg.DispatcherWatchWorkers,
		WatchQueueSize:    cfg.DispatcherWatchQueueSize,
		MaxAttempts:       cfg.DispatcherMaxAttempts,
		InitialBackoff:    cfg.DispatcherRetryInitial,
		BackoffMultiplier: cfg.DispatcherBackoffMultiplier,
		MaxBackoff:        cfg.DispatcherRetryMax,
	}
	jobDispatcher := newDispatcher(eval, dispatcherConfig)
	defer jobDispatcher.Shutdown(ctx)

	handler := webhook.NewHandler(cfg.GitHubWebhookSecret, cfg.TriggerKeyword, jobDispatcher, passes)

	webHandler, err := newWebHandler(passes)
	if err != nil {
		return fmt.Errorf("failed to initialize web handler: %w", err)
	}

	// Setup router
	r := mux.NewRouter()

	// Webhook endpoint
	r.HandleFunc("/webhook", handler.Handle).Methods("POST")

	// Evaluation views
	webHandler.RegisterRoutes(r)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Root endpoint with info
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"service":"checklist-gate","status":"running","trigger":%q}`, cfg.TriggerKeyword)
	}).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Server listening on %s", addr)
	log.Printf("Webhook endpoint: http://localhost%s/webhook", addr)
	log.Printf("Health check: http://localhost%s/health", addr)
	log.Printf("Pull requests UI: http://localhost%s/ui", addr)

	if err := serve(addr, r); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dvloznov/subscription-assistant/internal/api/handlers"
	"github.com/dvloznov/subscription-assistant/internal/api/middleware"
	"github.com/dvloznov/subscription-assistant/internal/config"
	"github.com/dvloznov/subscription-assistant/internal/digest"
	"github.com/dvloznov/subscription-assistant/internal/engine"
	"github.com/dvloznov/subscription-assistant/internal/importer"
	"github.com/dvloznov/subscription-assistant/internal/jobs/inmemory"
	"github.com/dvloznov/subscription-assistant/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	log := logger.New("subscription-assistant")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	// The engine owns all subscription state for this process. Everything
	// below is transport plumbing around it.
	eng := engine.New()

	// Statement import jobs run on a single background worker.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Import.QueueSize, jobStore)
	imp := importer.New(eng, log)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()

	go func() {
		log.Info().Msg("Starting statement import worker")
		if err := jobQueue.Start(workerCtx, imp.Handler()); err != nil {
			log.Error().Err(err).Msg("Import worker stopped with error")
		}
	}()

	// Initialize handlers
	transactionsHandler := handlers.NewTransactionsHandler(eng, log)
	emailsHandler := handlers.NewEmailsHandler(eng, log)
	subscriptionsHandler := handlers.NewSubscriptionsHandler(eng, log)
	dashboardHandler := handlers.NewDashboardHandler(eng, cfg.Dashboard.HorizonDays, log)
	statementsHandler := handlers.NewStatementsHandler(jobQueue, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			transactionsHandler.Register(w, r)
		case http.MethodGet:
			transactionsHandler.List(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/emails", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			emailsHandler.Ingest(w, r)
		case http.MethodGet:
			emailsHandler.List(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			subscriptionsHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/subscriptions/", func(w http.ResponseWriter, r *http.Request) {
		// Path shape: /api/subscriptions/{id}/decision
		rest := strings.TrimPrefix(r.URL.Path, "/api/subscriptions/")
		id, action, found := strings.Cut(rest, "/")
		if !found || action != "decision" || id == "" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		subscriptionsHandler.Decide(w, r, id)
	})

	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			dashboardHandler.Get(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/statements/import", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			statementsHandler.EnqueueImport(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Renewal digest on a cron schedule, disabled by an empty expression.
	scheduler := cron.New()
	if cfg.Digest.Cron != "" {
		renewalDigest := digest.New(eng, cfg.Dashboard.HorizonDays, log)
		if _, err := scheduler.AddFunc(cfg.Digest.Cron, renewalDigest.Run); err != nil {
			log.Fatal().Err(err).Str("cron", cfg.Digest.Cron).Msg("Invalid digest schedule")
		}
		scheduler.Start()
		log.Info().Str("cron", cfg.Digest.Cron).Msg("Renewal digest scheduled")
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()
	<-scheduler.Stop().Done()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for the in-flight import
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}

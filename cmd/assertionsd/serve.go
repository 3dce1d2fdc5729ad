package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/notewire/assertions/internal/auth"
	"github.com/notewire/assertions/internal/config"
	"github.com/notewire/assertions/internal/database"
	"github.com/notewire/assertions/internal/delivery"
	"github.com/notewire/assertions/internal/feed"
	"github.com/notewire/assertions/internal/graph"
	"github.com/notewire/assertions/internal/httpapi"
	"github.com/notewire/assertions/internal/idempotency"
	"github.com/notewire/assertions/internal/jobs"
	"github.com/notewire/assertions/internal/models"
	"github.com/notewire/assertions/internal/notify"
	"github.com/notewire/assertions/internal/observability"
	"github.com/notewire/assertions/internal/publish"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP/WebSocket server and background maintenance jobs",
	RunE:  runServe,
}

// enabledAdapters lists the outbox adapters every notification fans
// out to. Push is wired against an unconfigured provider (see
// internal/delivery.PushAdapter) and rows enqueued against it age out
// to failed rather than ever delivering, until a provider is named.
var enabledAdapters = []models.OutboxAdapter{models.AdapterWebSocket, models.AdapterPush}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mode := config.DetectMode()
	hook := observability.NewSlogHook(nil)

	graphClient, err := graph.NewClientWithDatabase(ctx, cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, cfg.Graph.Database)
	if err != nil {
		return fmt.Errorf("connect to graph store: %w", err)
	}
	defer graphClient.Close(ctx)

	if err := graphClient.EnsureConstraints(ctx); err != nil {
		return fmt.Errorf("ensure graph constraints: %w", err)
	}

	pgClient, err := database.NewClient(ctx, cfg.Relational.Host, cfg.Relational.Port, cfg.Relational.Database, cfg.Relational.User, cfg.Relational.Password, cfg.Relational.SSLMode)
	if err != nil {
		return fmt.Errorf("connect to relational store: %w", err)
	}
	defer pgClient.Close()

	graphStore := graph.NewNeo4jStore(graphClient)
	sessions := auth.NewSessionStore(pgClient)
	notifications := database.NewNotificationStore(pgClient)
	outbox := database.NewOutboxStore(pgClient)
	idempotencyStore := database.NewIdempotencyStore(pgClient)
	drafts := database.NewDraftStore(pgClient)
	jobRuns := database.NewJobRunStore(pgClient)

	registry := delivery.NewRegistry()
	notifyPipeline := notify.New(notifications, outbox, registry, enabledAdapters, hook)
	reconciler := idempotency.New(idempotencyStore, graphStore, hook)
	orchestrator := publish.New(idempotencyStore, reconciler, graphStore, notifyPipeline, drafts, hook)
	projector := feed.New(mode, hook)
	healthReporter := jobs.NewHealthReporter(jobRuns)

	outboxWorker := delivery.NewWorker(outbox, map[models.OutboxAdapter]delivery.Adapter{
		models.AdapterWebSocket: delivery.NewWebSocketAdapter(registry),
		models.AdapterPush:      delivery.NewPushAdapter(),
	}, hook)

	scheduler := jobs.NewScheduler(jobs.New(jobRuns), drafts, idempotencyStore, outbox, jobs.Intervals{
		DraftCleanup:       cfg.Jobs.DraftCleanupInterval,
		IdempotencyCleanup: cfg.Jobs.IdempotencyCleanupInterval,
		OutboxCleanup:      cfg.Jobs.OutboxCleanupInterval,
		OutboxRetention:    cfg.Jobs.OutboxRetention,
	})

	router := httpapi.NewRouter(httpapi.Deps{
		Config:       cfg.Server,
		Mode:         mode,
		HealthConfig: cfg.Health,
		Sessions:     sessions,
		Orchestrator: orchestrator,
		GraphStore:   graphStore,
		Projector:    projector,
		Health:       healthReporter,
		Registry:     registry,
		Notify:       notifyPipeline,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	heartbeatStop := make(chan struct{})
	go registry.Heartbeat(heartbeatStop)
	go outboxWorker.Run(ctx)
	scheduler.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("assertionsd listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}

	return shutdown(server, scheduler, heartbeatStop, registry)
}

// shutdown implements spec.md §5's graceful shutdown order: stop
// accepting new connections, stop background workers, close every
// live WebSocket with the going-away code, then release store
// handles. The outbox worker and scheduler are context-driven (the
// same ctx that triggered shutdown already stopped them); this just
// waits for the scheduler's goroutines to finish and closes transport.
func shutdown(server *http.Server, scheduler *jobs.Scheduler, heartbeatStop chan struct{}, registry *delivery.Registry) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http server shutdown did not complete cleanly")
	}

	close(heartbeatStop)
	scheduler.Stop()
	registry.CloseAll(websocket.CloseGoingAway, "server shutting down")

	logger.Info("assertionsd stopped")
	return nil
}

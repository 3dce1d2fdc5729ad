package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/notewire/assertions/internal/auth"
	"github.com/notewire/assertions/internal/config"
	"github.com/notewire/assertions/internal/delivery"
	"github.com/notewire/assertions/internal/feed"
	"github.com/notewire/assertions/internal/graph"
	"github.com/notewire/assertions/internal/jobs"
	"github.com/notewire/assertions/internal/publish"
)

// Deps bundles every collaborator the router wires into handlers. All
// fields are required except Health, which may be nil when job health
// reporting is disabled.
type Deps struct {
	Config       config.ServerConfig
	Mode         config.Mode
	HealthConfig config.HealthConfig

	Sessions     auth.SessionLookup
	Orchestrator *publish.Orchestrator
	GraphStore   graph.Store
	Projector    *feed.Projector
	Health       *jobs.HealthReporter
	Registry     *delivery.Registry
	Notify       reactionNotifier
}

// NewRouter builds the full chi.Mux for the assertions daemon, wiring
// CORS, the authentication middleware, and every route spec.md §6
// names.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(slog.Default().With("component", "httpapi")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{d.Config.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Test-User-Id", "X-Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.HealthConfig.Enabled {
		r.Get("/health/jobs", newHealthHandler(d.Health))
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(d.Sessions, d.Mode))

		ph := &publishHandler{orchestrator: d.Orchestrator}
		r.Post("/publish", ph.Publish)

		fh := &feedHandler{store: d.GraphStore, projector: d.Projector}
		r.Get("/home", fh.Home)
		r.Get("/thread/{assertionId}", fh.Thread)
		r.Get("/assertions/{assertionId}/history", fh.History)
		r.Delete("/assertions/{assertionId}", fh.Delete)

		rh := &reactionsHandler{store: d.GraphStore, notify: d.Notify}
		r.Post("/reactions", rh.Add)
		r.Delete("/reactions", rh.Remove)
		r.Get("/reactions/{assertionId}", rh.Get)

		wh := &wsHandler{registry: d.Registry}
		r.Get("/ws/notifications", wh.Upgrade)
	})

	return r
}

// requestLogger logs each request at info level after it completes,
// grounded on the teacher's own structured-request-logging middleware
// rather than chi's default text logger.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"durationMs", time.Since(start).Milliseconds(),
			)
		})
	}
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"dispatch-worklist-service/internal/api/handlers"
	"dispatch-worklist-service/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an
// http.Handler. This is the API composition root (handlers stay unaware of
// concrete adapters).
func NewRouter(resolver *services.Resolver, ingestor *services.Ingestor, scheduler *services.Scheduler, defaultPageSize int, log *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(log))

	worklist := &handlers.WorklistHandler{
		Scheduler:       scheduler,
		DefaultPageSize: defaultPageSize,
		Log:             log,
	}
	resolve := &handlers.ResolveHandler{
		Resolver: resolver,
		Ingestor: ingestor,
		Log:      log,
	}

	r.Get("/health", handlers.Health(log))
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/worklist", worklist.List)
		r.Post("/resolve", resolve.Resolve)
		r.Post("/ingest", resolve.Ingest)
	})

	return r
}

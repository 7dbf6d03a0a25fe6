// Package api exposes the intake listener and operational query endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"osprey-cad/api/handlers"
	"osprey-cad/config"
	"osprey-cad/core/ingest"
	"osprey-cad/core/store"
	"osprey-cad/core/utils"
)

type ServerDeps struct {
	Pipeline  *ingest.Pipeline
	Incidents store.IncidentsStore
	Archive   store.ArchiveStore
	Units     store.UnitsStore
	Logger    *utils.Logger
}

type Server struct {
	cfg    *config.AppConfig
	deps   ServerDeps
	logger *utils.Logger
	srv    *http.Server
}

func NewServer(cfg *config.AppConfig, deps ServerDeps) *Server {
	return &Server{cfg: cfg, deps: deps, logger: deps.Logger}
}

type routeHandlers struct {
	messages  *handlers.MessagesHandler
	incidents *handlers.IncidentsHandler
	failures  *handlers.FailuresHandler
	units     *handlers.UnitsHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		messages:  handlers.NewMessagesHandler(s.cfg, s.deps.Pipeline, s.logger),
		incidents: handlers.NewIncidentsHandler(s.deps.Incidents, s.logger),
		failures:  handlers.NewFailuresHandler(s.deps.Archive, s.deps.Pipeline, s.logger),
		units:     handlers.NewUnitsHandler(s.deps.Units, s.logger),
	}
}

func (s *Server) Router() http.Handler {
	h := s.newRouteHandlers()
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.requestLogMiddleware)

	r.Get("/api/health", s.handleHealth)

	r.Group(func(pr chi.Router) {
		pr.Use(s.authMiddleware)
		pr.Post("/api/messages", h.messages.Ingest)
		pr.Get("/api/incidents", h.incidents.List)
		pr.Get("/api/incidents/{number}", h.incidents.Get)
		pr.Get("/api/failures", h.failures.List)
		pr.Post("/api/failures/{id}/replay", h.failures.Replay)
		pr.Get("/api/units", h.units.List)
		pr.Put("/api/units/{alias}", h.units.Upsert)
		pr.Delete("/api/units/{alias}", h.units.Delete)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Infof("listening on %s", s.cfg.ListenAddr)
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

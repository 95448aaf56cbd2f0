package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eargollo/redup/internal/api/handlers"
)

// Server serves a persisted duplicate report over HTTP.
type Server struct {
	addr string
	srv  *http.Server
}

// New wires all routes and returns a Server ready to Run.
func New(addr string, db *sql.DB, version string) *Server {
	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           Router(db, version),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Router returns the HTTP handler for db. Exposed for tests.
func Router(db *sql.DB, version string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	summaryH := &handlers.SummaryHandler{DB: db, Version: version}
	groupsH := &handlers.GroupsHandler{DB: db}

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", summaryH.ServeHTTP)
		r.Get("/groups", groupsH.List)
		r.Get("/groups/{id}", groupsH.Get)
	})
	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

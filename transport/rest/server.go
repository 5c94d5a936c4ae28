package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

type Server struct {
	logger   *slog.Logger
	handlers *handlers

	mu         sync.Mutex
	closed     bool
	httpServer *http.Server
}

// New wires the HTTP surface. snapshotRepo and archiveRepo may be nil when
// the matching backend is disabled.
func New(logger *slog.Logger, registry sessionRegistry, snapshotRepo snapshotRepo, archiveRepo archiveRepo) *Server {
	return &Server{
		logger: logger.With("component", "rest"),
		handlers: &handlers{
			logger:       logger.With("component", "rest"),
			registry:     registry,
			snapshotRepo: snapshotRepo,
			archiveRepo:  archiveRepo,
		},
	}
}

func (that *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/ping", that.handlers.PingHandler).Methods(http.MethodGet)
	router.HandleFunc("/stats", that.handlers.StatsHandler).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{id}", that.handlers.SessionHandler).Methods(http.MethodGet)
	router.HandleFunc("/matches/{id:[0-9]+}", that.handlers.MatchHandler).Methods(http.MethodGet)

	return router
}

// Start - starts HTTP server. It returns nil after Shutdown.
func (that *Server) Start(port string) error {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return nil
	}

	that.httpServer = &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	srv := that.httpServer
	that.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Shutdown(ctx context.Context) error {
	that.mu.Lock()
	that.closed = true
	srv := that.httpServer
	that.mu.Unlock()

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

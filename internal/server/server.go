package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

type Option func(*Server)

func WithMigrateDown(m func() error) Option {
	return func(s *Server) {
		s.migrateDown = m
	}
}

type Server struct {
	router      *http.ServeMux
	migrateDown func() error
}

func NewServer(h *Handler, jwtSecret string, opts ...Option) *Server {
	s := &Server{
		router: http.NewServeMux(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes(h, jwtSecret)
	return s
}

func (s *Server) setupRoutes(h *Handler, jwtSecret string) {
	auth := AuthMiddleware(jwtSecret)

	s.router.HandleFunc("/unifiedHub", h.handleUnifiedHub)

	s.router.Handle("POST /groups", auth(http.HandlerFunc(h.handleNewGroup)))
	s.router.Handle("DELETE /groups/{group_id}", auth(http.HandlerFunc(h.handleDeleteGroup)))
	s.router.Handle("POST /groups/{group_id}/participants", auth(http.HandlerFunc(h.handleAddParticipant)))
	s.router.Handle("DELETE /groups/{group_id}/participants", auth(http.HandlerFunc(h.handleRemoveParticipant)))
	s.router.Handle("GET /groups/{group_id}/participants", auth(http.HandlerFunc(h.handleGetParticipants)))
	s.router.Handle("PATCH /groups/{group_id}/roles", auth(http.HandlerFunc(h.handleUpdateRole)))
	s.router.Handle("POST /groups/{group_id}/admin", auth(http.HandlerFunc(h.handlePromoteAdmin)))
	s.router.Handle("GET /conversations/{conversation_id}/messages", auth(http.HandlerFunc(h.handleRecentMessages)))
	s.router.Handle("POST /profile/sync", auth(http.HandlerFunc(h.handleSyncProfile)))
}

func (s *Server) Run(addr string) error {
	server := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to start server", "error", err)
			return
		}
	}()
	slog.Info("Server is running", "addr", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit

	ctx, shutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdown()

	if s.migrateDown != nil {
		if err := s.migrateDown(); err != nil {
			slog.Warn("Failed to migrate down", "error", err)
		}
	}

	slog.Info("Server exited")
	return server.Shutdown(ctx)
}

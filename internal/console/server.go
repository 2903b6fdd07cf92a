package console

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Server wraps the console router in an http.Server with sane
// timeouts and signal-driven graceful shutdown.
type Server struct {
	handler *Handler
	logger  *slog.Logger
	port    int
}

// NewServer creates a Server for the given handler.
func NewServer(h *Handler, port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{handler: h, logger: logger, port: port}
}

// Serve starts the HTTP server and blocks until SIGINT/SIGTERM.
func (s *Server) Serve() error {
	addr := fmt.Sprintf(":%d", s.port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting console", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
	}
	s.logger.Info("shutting down console")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

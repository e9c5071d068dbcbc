package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/kong/ctable/internal/log"
)

const (
	ReadHeaderTimeout = 10 * time.Second
	ShutdownTimeout   = 5 * time.Second
)

// NewMux mounts handler at the site root. Other paths are not found.
func NewMux(handler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/{$}", handler)
	return mux
}

// Serve listens on addr and serves handler until ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return ServeListener(ctx, listener, handler, logger)
}

// ServeListener serves handler on listener until ctx is done, then shuts the
// server down gracefully. It returns nil after a clean shutdown.
func ServeListener(ctx context.Context, listener net.Listener, handler http.Handler, logger *slog.Logger) error {
	logger = log.OrDiscard(logger)
	server := &http.Server{
		ReadHeaderTimeout: ReadHeaderTimeout,
		Handler:           handler,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			serveErrCh <- serveErr
		}
		close(serveErrCh)
	}()
	logger.Debug("table server started", "listen_address", listener.Addr().String())

	select {
	case <-ctx.Done():
		logger.Debug("received shutdown signal for table server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("table server shutdown failed: %w", err)
		}
		logger.Debug("table server shut down")
		return nil
	case serveErr := <-serveErrCh:
		if serveErr == nil {
			logger.Debug("table server exited")
			return nil
		}
		logger.Debug("table server exited unexpectedly", "error", serveErr)
		return fmt.Errorf("table server stopped unexpectedly: %w", serveErr)
	}
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// HTTPServerTask serves srv until ctx is done, then drains in-flight
// requests for at most drainTimeout. A nil listener listens on srv.Addr.
func HTTPServerTask(srv *http.Server, ln net.Listener, drainTimeout time.Duration, logger *slog.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		serveErr := make(chan error, 1)
		go func() {
			logger.Info("🌍 [HTTP] Server listening", "addr", srv.Addr)
			var err error
			if ln != nil {
				err = srv.Serve(ln)
			} else {
				err = srv.ListenAndServe()
			}
			serveErr <- err
		}()

		select {
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("http server failed: %w", err)
		case <-ctx.Done():
		}

		logger.Info("🛑 [HTTP] Draining connections...", "timeout", drainTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}

		logger.Info("✅ [HTTP] Server stopped")
		return nil
	}
}

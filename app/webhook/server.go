package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"nuclight.org/wa-stylist-relay/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// Serve runs an HTTP server on addr until ctx is done.
func Serve(ctx context.Context, log logger.Logger, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info("webhook server listening", "addr", addr)

	select {
	case <-ctx.Done():
		log.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	}
}

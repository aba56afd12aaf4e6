package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"BullionLedger/internal/logger"
)

// Serve runs handler on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.With("addr", addr).Info("http server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Get().WithError(err).Error("http server stopped")
	}
}

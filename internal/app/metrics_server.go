package app

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const metricsShutdownTimeout = 5 * time.Second

// ServeMetrics exposes /metrics on cfg.MetricsAddr until ctx is done. It
// returns immediately when no address is configured.
func (a *App) ServeMetrics(ctx context.Context) error {
	if a.cfg.MetricsAddr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.log.InfoObj("metrics listener starting", "metrics_addr", a.cfg.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.log.ErrorObj("metrics listener failed", "error", err)
		return err
	}
	return nil
}

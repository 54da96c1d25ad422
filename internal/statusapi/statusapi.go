// Package statusapi serves the controller's observability endpoints —
// spec.md §4.I: a plain-text status snapshot and a Prometheus /metrics
// handler. Adapted from the teacher's HTTP server setup in proxy.go
// (promhttp.Handle plus an http.Server wired to ctx cancellation).
package statusapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ephemeral-minigames/controller/internal/registry"
	"github.com/ephemeral-minigames/controller/pkg/logger"
)

// Config controls the status/metrics listener.
type Config struct {
	Listen string
}

// DefaultConfig matches spec.md §4.I's default port.
func DefaultConfig() Config {
	return Config{Listen: ":25580"}
}

// Run serves the status and metrics endpoints until ctx is canceled.
func Run(ctx context.Context, cfg Config, reg *registry.Registry) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", statusHandler(reg))
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Listen, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("statusapi: listening on %s", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// statusHandler writes one "name,status" line per registry entry, sorted
// by name (registry.Snapshot's own order), text/plain.
func statusHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, entry := range reg.Snapshot() {
			fmt.Fprintf(w, "%s,%s\n", entry.Name, entry.Status)
		}
	}
}

// Package health exposes a small operator HTTP surface: liveness,
// readiness, and per-endpoint delivery metrics.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tinyland-inc/wishbot/pkg/logger"
	"github.com/tinyland-inc/wishbot/pkg/metrics"
)

// Server serves /health, /ready and /metrics.
type Server struct {
	srv     *http.Server
	meters  *metrics.DeliveryMeterStore
	ready   func() bool
	started time.Time
}

// NewServer builds the operator server. ready reports whether the bot
// is accepting traffic; nil means always ready.
func NewServer(host string, port int, meters *metrics.DeliveryMeterStore, ready func() bool) *Server {
	s := &Server{
		meters:  meters,
		ready:   ready,
		started: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start listens in the background. Listen failures are logged, not
// fatal: the bot works without its operator surface.
func (s *Server) Start() {
	go func() {
		logger.InfoCF("health", "operator server listening", map[string]any{"addr": s.srv.Addr})
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("health", "operator server stopped", map[string]any{"error": err.Error()})
		}
	}()
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.ready != nil && !s.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var snapshot map[string]*metrics.EndpointMeter
	if s.meters != nil {
		snapshot = s.meters.Snapshot()
	}
	writeJSON(w, http.StatusOK, map[string]any{"endpoints": snapshot})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.DebugCF("health", "response encode failed", map[string]any{"error": err.Error()})
	}
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xiaoxue1272/histories-collector/internal/service"
)

// StatsSource exposes a point-in-time snapshot of the ingest counters
type StatsSource interface {
	Stats() service.Stats
}

// Server provides the ops HTTP endpoints: liveness, readiness, Prometheus
// metrics and an ingest counters snapshot
type Server struct {
	stats  StatsSource
	logger *log.Logger

	ready  atomic.Bool
	server *http.Server
}

// NewServer creates a new ops server
func NewServer(addr string, stats StatsSource, logger *log.Logger) *Server {
	s := &Server{
		stats:  stats,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/stats", s.handleStats)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Handler returns the ops handler, for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// MarkReady flips /ready to 200. Called once the store is pinged and
// bootstrapped.
func (s *Server) MarkReady() {
	s.ready.Store(true)
}

// Start starts the HTTP server (blocking)
func (s *Server) Start() error {
	s.logger.Info("ops server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// handleHealth reports liveness: the process is up
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports readiness: bootstrap finished and writes can proceed
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready.Load() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
}

// handleStats returns the current ingest counters
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

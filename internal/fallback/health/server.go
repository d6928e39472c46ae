// Package health exposes the diagnostics path over HTTP: service
// status, aggregate health, and prometheus metrics. The data path never
// depends on it.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vietddude/fetcher/internal/fallback/orchestrator"
)

// Aggregate health values.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusCritical = "critical"
)

// StatusFunc supplies the current per-source service status.
type StatusFunc func() map[string]map[string]orchestrator.SourceStatus

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	status StatusFunc
	server *http.Server
}

// NewServer creates a new health server.
func NewServer(status StatusFunc, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		status: status,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.status()
	status := StatusHealthy

	// Worst case wins: some sources down = degraded, a data type with
	// every source down = critical.
	for _, perSource := range report {
		allDown := len(perSource) > 0
		for _, src := range perSource {
			if src.Available {
				allDown = false
			} else {
				status = StatusDegraded
			}
		}
		if allDown {
			status = StatusCritical
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.status())
}

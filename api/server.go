// Package api exposes the pipeline's live state over HTTP for the dashboard.
// The surface is read only; all writes happen through the schedulers.
package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"pump-detector/database"
)

// Server handles HTTP API requests
type Server struct {
	store       *database.Store
	metricsPath string
}

// NewServer creates a new API server instance. metricsPath points at the
// backtest artifact; the endpoint 404s until a backtest has run.
func NewServer(store *database.Store, metricsPath string) *Server {
	return &Server{
		store:       store,
		metricsPath: metricsPath,
	}
}

// Start starts the HTTP server on the specified address
func (s *Server) Start(host string, port int) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/candidates", s.handleGetCandidates)
	mux.HandleFunc("GET /api/candidates/{symbol}/signals", s.handleGetCandidateSignals)
	mux.HandleFunc("GET /api/backtest/metrics", s.handleGetBacktestMetrics)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Add middleware
	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	serverAddr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("🚀 API Server starting on %s", serverAddr)
	return http.ListenAndServe(serverAddr, handler)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

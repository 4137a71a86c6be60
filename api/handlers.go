package api

import (
	"net/http"
	"os"
	"time"

	"pump-detector/database"
)

// handleGetCandidates returns active candidates ordered by score.
// Query params: confidence (HIGH or MEDIUM), limit (default 50).
func (s *Server) handleGetCandidates(w http.ResponseWriter, r *http.Request) {
	filter := database.CandidateFilter{
		Confidence: r.URL.Query().Get("confidence"),
	}

	minLimit, maxLimit := 1, 500
	limit := getIntParam(r, "limit", 50, &minLimit, &maxLimit)

	candidates, err := s.store.ListActiveCandidates(filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load candidates", err)
		return
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	respondJSON(w, map[string]interface{}{
		"count":      len(candidates),
		"candidates": candidates,
	})
}

// handleGetCandidateSignals returns the 7-day signal window backing one symbol
func (s *Server) handleGetCandidateSignals(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		respondWithError(w, http.StatusBadRequest, "symbol is required", nil)
		return
	}

	now := time.Now().UTC()
	signals, err := s.store.ListSignalsForSymbol(symbol, now.Add(-database.AnalysisWindow), now)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load signals", err)
		return
	}

	respondJSON(w, map[string]interface{}{
		"symbol":  symbol,
		"count":   len(signals),
		"signals": signals,
	})
}

// handleGetBacktestMetrics serves the latest backtest artifact verbatim
func (s *Server) handleGetBacktestMetrics(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(s.metricsPath)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "no backtest metrics available", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.HealthCheck(); err != nil {
		respondWithError(w, http.StatusServiceUnavailable, "database unreachable", err)
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

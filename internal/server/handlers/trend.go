// internal/server/handlers/trend.go

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tickerpulse/internal/domain/trend"
)

const maxLeaderboardLimit = 100

// TrendHandler handles trending-ticker HTTP requests
type TrendHandler struct {
	snapshots trend.Store
}

// NewTrendHandler creates a new trend handler
func NewTrendHandler(snapshots trend.Store) *TrendHandler {
	return &TrendHandler{
		snapshots: snapshots,
	}
}

// GetTrending returns the snapshot leaderboard for one period.
func (h *TrendHandler) GetTrending(w http.ResponseWriter, r *http.Request) {
	period := trend.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = trend.Period24h
	}
	if !period.Valid() {
		respondWithError(w, http.StatusBadRequest, "Invalid period", nil)
		return
	}

	community := r.URL.Query().Get("community")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	snapshots, err := h.snapshots.Top(r.Context(), period, community, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get trending tickers", err)
		return
	}
	if snapshots == nil {
		snapshots = []trend.Snapshot{}
	}

	respondWithJSON(w, http.StatusOK, snapshots)
}

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := map[string]string{"error": message}

	jsonResponse, _ := json.Marshal(response)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}

// internal/server/handlers/mention.go

package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tickerpulse/internal/domain/mention"
)

const maxMentionLimit = 200

// MentionHandler handles ticker-mention HTTP requests
type MentionHandler struct {
	mentions mention.Store
}

// NewMentionHandler creates a new mention handler
func NewMentionHandler(mentions mention.Store) *MentionHandler {
	return &MentionHandler{
		mentions: mentions,
	}
}

// GetTickerMentions returns recent mentions of one ticker, newest first.
func (h *MentionHandler) GetTickerMentions(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))
	if ticker == "" {
		respondWithError(w, http.StatusBadRequest, "Missing ticker", nil)
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid since timestamp", err)
			return
		}
		since = parsed
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	if limit > maxMentionLimit {
		limit = maxMentionLimit
	}

	mentions, err := h.mentions.ListByTicker(r.Context(), ticker, since, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get mentions", err)
		return
	}
	if mentions == nil {
		mentions = []mention.Mention{}
	}

	respondWithJSON(w, http.StatusOK, mentions)
}

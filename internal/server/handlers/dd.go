// internal/server/handlers/dd.go

package handlers

import (
	"net/http"
	"strconv"

	"tickerpulse/internal/domain/dd"
)

const maxDDLimit = 100

// DDHandler handles due-diligence post HTTP requests
type DDHandler struct {
	posts dd.Store
}

// NewDDHandler creates a new DD handler
func NewDDHandler(posts dd.Store) *DDHandler {
	return &DDHandler{
		posts: posts,
	}
}

// GetDDPosts returns classified posts matching the query filters, newest first.
func (h *DDHandler) GetDDPosts(w http.ResponseWriter, r *http.Request) {
	filter := dd.Filter{
		Ticker:    r.URL.Query().Get("ticker"),
		Community: r.URL.Query().Get("community"),
	}

	if confStr := r.URL.Query().Get("min_confidence"); confStr != "" {
		conf, err := strconv.ParseFloat(confStr, 64)
		if err != nil || conf < 0 || conf > 1 {
			respondWithError(w, http.StatusBadRequest, "Invalid min_confidence", err)
			return
		}
		filter.MinConfidence = conf
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	if limit > maxDDLimit {
		limit = maxDDLimit
	}
	filter.Limit = limit

	posts, err := h.posts.List(r.Context(), filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get DD posts", err)
		return
	}
	if posts == nil {
		posts = []dd.Post{}
	}

	respondWithJSON(w, http.StatusOK, posts)
}

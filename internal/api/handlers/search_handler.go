package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bacmr/maktaba/internal/services"
)

type SearchHandler struct {
	retrieval *services.RetrievalService
}

func NewSearchHandler(retrieval *services.RetrievalService) *SearchHandler {
	return &SearchHandler{retrieval: retrieval}
}

// Search embeds the query and returns the closest chunks, optionally scoped
// to one document, a page window within it, or an education level.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req services.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	matches, err := h.retrieval.Search(r.Context(), req)
	if err != nil {
		http.Error(w, fmt.Sprintf("search failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"matches": matches})
}

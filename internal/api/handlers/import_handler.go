package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bacmr/maktaba/internal/core"
	"github.com/bacmr/maktaba/internal/scraper"
	"github.com/bacmr/maktaba/internal/services"
)

type ImportHandler struct {
	docs    *services.DocumentService
	scraper *scraper.Scraper
}

func NewImportHandler(docs *services.DocumentService, sc *scraper.Scraper) *ImportHandler {
	return &ImportHandler{docs: docs, scraper: sc}
}

// Discover crawls the public textbook catalog and returns the books found,
// without downloading or importing anything.
func (h *ImportHandler) Discover(w http.ResponseWriter, r *http.Request) {
	books, err := h.scraper.DiscoverBooks(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("discovery failed: %v", err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count": len(books),
		"books": books,
	})
}

type ImportRequest struct {
	URL            string `json:"url"`
	Title          string `json:"title"`
	Subject        string `json:"subject,omitempty"`
	EducationLevel string `json:"education_level,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	YearNumber     int    `json:"year_number,omitempty"`
}

// Import downloads one PDF by URL and queues it for ingestion. Returns 409
// with the existing document when the URL or content was seen before.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		req.Title = req.URL
	}

	doc, job, err := h.docs.Import(r.Context(), services.ImportInput{
		URL:            req.URL,
		Title:          req.Title,
		Subject:        req.Subject,
		EducationLevel: req.EducationLevel,
		Specialization: req.Specialization,
		YearNumber:     req.YearNumber,
	})
	if errors.Is(err, core.ErrDuplicateDocument) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"error":    "document already exists",
			"document": doc,
		})
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("import failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"document": doc,
		"job":      job,
	})
}

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/bacmr/maktaba/internal/core"
	"github.com/bacmr/maktaba/internal/services"
)

type ChatHandler struct {
	retrieval *services.RetrievalService
	llm       core.Generator
}

func NewChatHandler(retrieval *services.RetrievalService, llm core.Generator) *ChatHandler {
	return &ChatHandler{retrieval: retrieval, llm: llm}
}

type ChatRequest struct {
	Query          string `json:"query"`
	DocumentID     string `json:"document_id,omitempty"`
	EducationLevel string `json:"education_level,omitempty"`
}

// Ask retrieves the chunks closest to the question and asks the model to
// answer from them alone, returning the answer with its source references.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	searchReq := services.SearchRequest{
		Query:          req.Query,
		DocumentID:     req.DocumentID,
		EducationLevel: req.EducationLevel,
		Limit:          5,
	}

	matches, err := h.retrieval.Search(ctx, searchReq)
	if err != nil {
		http.Error(w, fmt.Sprintf("search failed: %v", err), http.StatusInternalServerError)
		return
	}
	if len(matches) == 0 {
		json.NewEncoder(w).Encode(map[string]any{
			"answer":  "I could not find anything relevant in the library.",
			"sources": []string{},
		})
		return
	}

	var sb strings.Builder
	sources := make([]string, 0, len(matches))
	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("[%s]\n", m.Chunk.SourceRef))
		sb.WriteString(m.Chunk.Text)
		sb.WriteString("\n---\n")
		sources = append(sources, m.Chunk.SourceRef)
	}

	systemPrompt := "You are a study assistant for Mauritanian school textbooks. Answer only from the provided excerpts, cite the bracketed source of each fact you use, and say so plainly when the excerpts do not contain the answer."
	userPrompt := fmt.Sprintf("Excerpts:\n%s\nQuestion: %s", sb.String(), req.Query)

	answer, err := h.llm.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		http.Error(w, fmt.Sprintf("generation failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"answer":  answer,
		"sources": sources,
	})
}

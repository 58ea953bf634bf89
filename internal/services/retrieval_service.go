package services

import (
	"context"
	"fmt"

	"github.com/bacmr/maktaba/internal/core"
	"github.com/bacmr/maktaba/internal/models"
)

// RetrievalService embeds a free-text query and runs filtered vector search over
// chunks of READY documents. Read-only; safe to call at any time, independent of
// any running ingestion.
type RetrievalService struct {
	store    core.Store
	embedder core.Embedder
}

func NewRetrievalService(store core.Store, embedder core.Embedder) *RetrievalService {
	return &RetrievalService{store: store, embedder: embedder}
}

// SearchRequest narrows retrieval. DocumentID plus a page window restricts to
// that window of that document; DocumentID alone to the document; EducationLevel
// alone to documents at that level.
type SearchRequest struct {
	Query          string `json:"query"`
	DocumentID     string `json:"document_id,omitempty"`
	EducationLevel string `json:"education_level,omitempty"`
	PageStart      *int   `json:"page_start,omitempty"`
	PageEnd        *int   `json:"page_end,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}

func (s *RetrievalService) Search(ctx context.Context, req SearchRequest) ([]models.ChunkMatch, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("query is empty")
	}

	queryVec, err := s.embedder.EmbedText(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.store.SearchChunks(ctx, queryVec, req.Limit, models.SearchFilters{
		DocumentID:     req.DocumentID,
		EducationLevel: req.EducationLevel,
		PageStart:      req.PageStart,
		PageEnd:        req.PageEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return matches, nil
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bacmr/maktaba/internal/core"
	"github.com/bacmr/maktaba/internal/models"
)

type stubEmbedder struct {
	lastText string
	vec      []float32
}

func (s *stubEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	s.lastText = text
	return s.vec, nil
}

type searchCaptureStore struct {
	core.Store
	lastVec     []float32
	lastLimit   int
	lastFilters models.SearchFilters
	result      []models.ChunkMatch
}

func (s *searchCaptureStore) SearchChunks(_ context.Context, queryVec []float32, limit int, filters models.SearchFilters) ([]models.ChunkMatch, error) {
	s.lastVec = queryVec
	s.lastLimit = limit
	s.lastFilters = filters
	return s.result, nil
}

func TestSearchEmbedsQueryAndPassesFilters(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{0.1, 0.2, 0.3}}
	store := &searchCaptureStore{result: []models.ChunkMatch{
		{Chunk: models.DocumentChunk{Text: "Newton"}, Distance: 0.12, DocumentTitle: "Physique"},
	}}
	svc := NewRetrievalService(store, emb)

	ps, pe := 10, 20
	matches, err := svc.Search(context.Background(), SearchRequest{
		Query:      "what is inertia",
		DocumentID: "doc-1",
		PageStart:  &ps,
		PageEnd:    &pe,
		Limit:      5,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "Physique", matches[0].DocumentTitle)

	require.Equal(t, "what is inertia", emb.lastText)
	require.Equal(t, emb.vec, store.lastVec)
	require.Equal(t, 5, store.lastLimit)
	require.Equal(t, "doc-1", store.lastFilters.DocumentID)
	require.Equal(t, &ps, store.lastFilters.PageStart)
	require.Equal(t, &pe, store.lastFilters.PageEnd)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	svc := NewRetrievalService(&searchCaptureStore{}, &stubEmbedder{})

	_, err := svc.Search(context.Background(), SearchRequest{Query: ""})
	require.Error(t, err)
}

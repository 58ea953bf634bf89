package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bacmr/maktaba/internal/core"
	"github.com/bacmr/maktaba/internal/ingestion"
	"github.com/bacmr/maktaba/internal/models"
)

// stubStore embeds core.Store so only the methods a test exercises need an
// implementation; anything unexpected panics loudly.
type stubStore struct {
	core.Store
	mu sync.Mutex

	byChecksum map[string]*models.Document
	bySource   map[string]*models.Document
	docs       []*models.Document
	jobs       []*models.IngestionJob
}

func newStubStore() *stubStore {
	return &stubStore{
		byChecksum: make(map[string]*models.Document),
		bySource:   make(map[string]*models.Document),
	}
}

func (s *stubStore) GetDocumentByChecksum(_ context.Context, checksum string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byChecksum[checksum], nil
}

func (s *stubStore) GetDocumentBySourceURL(_ context.Context, sourceURL string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bySource[sourceURL], nil
}

func (s *stubStore) CreateDocument(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	s.byChecksum[doc.Checksum] = doc
	if doc.SourceURL != "" {
		s.bySource[doc.SourceURL] = doc
	}
	return nil
}

func (s *stubStore) CreateIngestionJob(_ context.Context, job *models.IngestionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return nil
}

// The async dispatch kick after upload lands here; an empty queue is fine.
func (s *stubStore) ClaimQueuedJob(context.Context) (*models.IngestionJob, error) {
	return nil, nil
}

type stubBlobStore struct {
	core.BlobStore
	mu    sync.Mutex
	saved map[string][]byte
}

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{saved: make(map[string][]byte)}
}

func (s *stubBlobStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[key] = data
	return nil
}

func newTestDocService(store *stubStore, blobs *stubBlobStore) *DocumentService {
	runner := ingestion.NewRunner(store, blobs, nil, nil, ingestion.RunnerConfig{})
	return NewDocumentService(store, blobs, runner)
}

func TestUploadCreatesDocumentAndJob(t *testing.T) {
	store := newStubStore()
	blobs := newStubBlobStore()
	svc := newTestDocService(store, blobs)

	data := []byte("%PDF-1.4 fake content")
	doc, job, err := svc.Upload(context.Background(), UploadInput{
		Title:          "Physique 4eme",
		Subject:        "physique",
		EducationLevel: "secondary",
		YearNumber:     4,
		FileName:       "physique.pdf",
		Data:           data,
	})
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.NotNil(t, job)

	sum := sha256.Sum256(data)
	require.Equal(t, hex.EncodeToString(sum[:]), doc.Checksum)
	require.Equal(t, models.DocStatusUploaded, doc.Status)
	require.Equal(t, int64(len(data)), doc.ByteSize)
	require.True(t, strings.HasPrefix(doc.StorageKey, "books/"))
	require.True(t, strings.HasSuffix(doc.StorageKey, "/physique.pdf"))

	require.Equal(t, doc.ID, job.DocumentID)
	require.Equal(t, models.JobStatusQueued, job.Status)

	require.Equal(t, data, blobs.saved[doc.StorageKey])
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	svc := newTestDocService(newStubStore(), newStubBlobStore())

	_, _, err := svc.Upload(context.Background(), UploadInput{Title: "x"})
	require.Error(t, err)
}

func TestUploadDuplicateChecksum(t *testing.T) {
	store := newStubStore()
	blobs := newStubBlobStore()
	svc := newTestDocService(store, blobs)

	data := []byte("%PDF-1.4 same bytes")
	sum := sha256.Sum256(data)
	existing := &models.Document{ID: "doc-old", Checksum: hex.EncodeToString(sum[:])}
	store.byChecksum[existing.Checksum] = existing

	doc, job, err := svc.Upload(context.Background(), UploadInput{
		Title:    "Re-upload",
		FileName: "again.pdf",
		Data:     data,
	})
	require.ErrorIs(t, err, core.ErrDuplicateDocument)
	require.Equal(t, "doc-old", doc.ID)
	require.Nil(t, job)
	require.Empty(t, blobs.saved, "duplicate must not store bytes")
	require.Empty(t, store.jobs, "duplicate must not create a job")
}

func TestImportDuplicateURLSkipsDownload(t *testing.T) {
	store := newStubStore()
	svc := newTestDocService(store, newStubBlobStore())

	// An unreachable URL: if dedup short-circuits before downloading, the
	// request is never made and no error surfaces.
	url := "http://192.0.2.1/never-fetched.pdf"
	existing := &models.Document{ID: "doc-old", SourceURL: url}
	store.bySource[url] = existing

	doc, _, err := svc.Import(context.Background(), ImportInput{URL: url, Title: "dup"})
	require.ErrorIs(t, err, core.ErrDuplicateDocument)
	require.Equal(t, "doc-old", doc.ID)
}

func TestImportDownloadsAndUploads(t *testing.T) {
	data := []byte("%PDF-1.4 downloaded content")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "maktaba-bot/1.0", r.Header.Get("User-Agent"))
		w.Write(data)
	}))
	defer srv.Close()

	store := newStubStore()
	blobs := newStubBlobStore()
	svc := newTestDocService(store, blobs)

	url := srv.URL + "/books/manuel.pdf"
	doc, job, err := svc.Import(context.Background(), ImportInput{
		URL:            url,
		Title:          "Manuel",
		Subject:        "math",
		EducationLevel: "high_school",
		YearNumber:     7,
	})
	require.NoError(t, err)
	require.Equal(t, url, doc.SourceURL)
	require.Equal(t, int64(len(data)), doc.ByteSize)
	require.NotNil(t, job)
	require.True(t, strings.HasSuffix(doc.StorageKey, "/manuel.pdf"))
}

func TestImportFailedDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	svc := newTestDocService(newStubStore(), newStubBlobStore())

	_, _, err := svc.Import(context.Background(), ImportInput{URL: srv.URL + "/x.pdf", Title: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 404")
}

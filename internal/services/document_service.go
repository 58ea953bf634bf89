package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/bacmr/maktaba/internal/core"
	"github.com/bacmr/maktaba/internal/ingestion"
	"github.com/bacmr/maktaba/internal/models"
)

// DocumentService owns the document lifecycle outside the runner: creation with
// duplicate detection, detail views and admin deletion with full cascade.
type DocumentService struct {
	store  core.Store
	blobs  core.BlobStore
	runner *ingestion.Runner
	client *http.Client
}

func NewDocumentService(store core.Store, blobs core.BlobStore, runner *ingestion.Runner) *DocumentService {
	return &DocumentService{
		store:  store,
		blobs:  blobs,
		runner: runner,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

// UploadInput carries the PDF bytes plus the classification metadata the admin
// surface collects.
type UploadInput struct {
	Title          string
	Subject        string
	EducationLevel string
	Specialization string
	YearNumber     int
	SourceURL      string
	FileName       string
	Data           []byte
}

// Upload deduplicates by content checksum (and source URL for imports), stores
// the bytes, and creates the document with its QUEUED ingestion job. Returns
// ErrDuplicateDocument with the existing document when the file is already
// known; no bytes are stored and no job is created in that case.
func (s *DocumentService) Upload(ctx context.Context, in UploadInput) (*models.Document, *models.IngestionJob, error) {
	if len(in.Data) == 0 {
		return nil, nil, fmt.Errorf("empty file")
	}

	sum := sha256.Sum256(in.Data)
	checksum := hex.EncodeToString(sum[:])

	existing, err := s.store.GetDocumentByChecksum(ctx, checksum)
	if err != nil {
		return nil, nil, fmt.Errorf("checksum lookup: %w", err)
	}
	if existing != nil {
		return existing, nil, core.ErrDuplicateDocument
	}

	if in.SourceURL != "" {
		existing, err := s.store.GetDocumentBySourceURL(ctx, in.SourceURL)
		if err != nil {
			return nil, nil, fmt.Errorf("source url lookup: %w", err)
		}
		if existing != nil {
			return existing, nil, core.ErrDuplicateDocument
		}
	}

	docID := uuid.NewString()
	fileName := path.Base(in.FileName)
	if fileName == "" || fileName == "." || fileName == "/" {
		fileName = "document.pdf"
	}
	storageKey := fmt.Sprintf("books/%s/%s", docID, fileName)

	if err := s.blobs.Save(ctx, storageKey, in.Data); err != nil {
		return nil, nil, fmt.Errorf("store blob: %w", err)
	}

	doc := &models.Document{
		ID:             docID,
		Title:          in.Title,
		Subject:        in.Subject,
		EducationLevel: in.EducationLevel,
		Specialization: in.Specialization,
		YearNumber:     in.YearNumber,
		StorageKey:     storageKey,
		SourceURL:      in.SourceURL,
		Checksum:       checksum,
		Status:         models.DocStatusUploaded,
		ByteSize:       int64(len(in.Data)),
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, nil, fmt.Errorf("create document: %w", err)
	}

	job := &models.IngestionJob{
		ID:         uuid.NewString(),
		DocumentID: docID,
		Status:     models.JobStatusQueued,
	}
	if err := s.store.CreateIngestionJob(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("create ingestion job: %w", err)
	}

	// Kick the dispatcher; if another worker already drained the queue this is
	// a harmless no-op.
	go func() {
		if _, err := s.runner.DispatchNext(context.Background()); err != nil {
			log.Printf("DocumentService: dispatch after upload failed: %v", err)
		}
	}()

	return doc, job, nil
}

// ImportInput describes an externally sourced PDF to download and ingest.
type ImportInput struct {
	URL            string
	Title          string
	Subject        string
	EducationLevel string
	Specialization string
	YearNumber     int
}

// Import deduplicates by source URL before downloading a single byte, then runs
// the regular upload path (which also deduplicates by checksum).
func (s *DocumentService) Import(ctx context.Context, in ImportInput) (*models.Document, *models.IngestionJob, error) {
	if in.URL == "" {
		return nil, nil, fmt.Errorf("import url is empty")
	}

	existing, err := s.store.GetDocumentBySourceURL(ctx, in.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("source url lookup: %w", err)
	}
	if existing != nil {
		return existing, nil, core.ErrDuplicateDocument
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.URL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("User-Agent", "maktaba-bot/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("download %s: %w", in.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("download %s: status %d", in.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read download body: %w", err)
	}

	return s.Upload(ctx, UploadInput{
		Title:          in.Title,
		Subject:        in.Subject,
		EducationLevel: in.EducationLevel,
		Specialization: in.Specialization,
		YearNumber:     in.YearNumber,
		SourceURL:      in.URL,
		FileName:       path.Base(in.URL),
		Data:           data,
	})
}

func (s *DocumentService) List(ctx context.Context) ([]models.Document, error) {
	return s.store.ListDocuments(ctx)
}

// DocumentDetail is the admin detail view: the document, its jobs newest first,
// and how many chunks are currently stored.
type DocumentDetail struct {
	Document   models.Document       `json:"document"`
	Jobs       []models.IngestionJob `json:"jobs"`
	ChunkCount int                   `json:"chunk_count"`
}

func (s *DocumentService) Detail(ctx context.Context, id string) (*DocumentDetail, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	jobs, err := s.store.ListJobsForDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountChunks(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{Document: *doc, Jobs: jobs, ChunkCount: count}, nil
}

// Delete removes the document together with its chunks, jobs and stored blob.
// The pipeline itself never deletes documents; this is the admin path.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document not found: %s", id)
	}

	if err := s.blobs.Delete(ctx, doc.StorageKey); err != nil {
		// The database row is the source of truth; a dangling blob is logged,
		// not fatal.
		log.Printf("DocumentService: deleting blob %q failed: %v", doc.StorageKey, err)
	}

	return s.store.DeleteDocument(ctx, id)
}

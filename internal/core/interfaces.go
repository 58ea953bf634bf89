package core

import (
	"context"
	"time"

	"github.com/bacmr/maktaba/internal/models"
)

// Store defines all persistence operations the services need. It abstracts
// Postgres/pgvector so higher layers never depend on a specific DB.
type Store interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentByChecksum(ctx context.Context, checksum string) (*models.Document, error)
	GetDocumentBySourceURL(ctx context.Context, sourceURL string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status string) error
	UpdateDocumentPageCount(ctx context.Context, id string, pageCount int) error
	DeleteDocument(ctx context.Context, id string) error

	CreateIngestionJob(ctx context.Context, job *models.IngestionJob) error
	GetIngestionJob(ctx context.Context, id string) (*models.IngestionJob, error)
	ListIngestionJobs(ctx context.Context, status string) ([]models.IngestionJob, error)
	ListJobsForDocument(ctx context.Context, documentID string) ([]models.IngestionJob, error)
	ClaimQueuedJob(ctx context.Context) (*models.IngestionJob, error)
	UpdateJobProgress(ctx context.Context, id string, patch models.JobPatch) error
	MarkStalledJobs(ctx context.Context, timeout time.Duration) (int, error)
	RequeueJob(ctx context.Context, id string) (*models.IngestionJob, error)

	InsertChunks(ctx context.Context, chunks []models.DocumentChunk) error
	DeleteChunksFromIndex(ctx context.Context, documentID string, fromIndex int) error
	SearchChunks(ctx context.Context, queryVec []float32, limit int, filters models.SearchFilters) ([]models.ChunkMatch, error)
	CountChunks(ctx context.Context, documentID string) (int, error)

	Close() error
}

// BlobStore is the opaque byte store PDF files live in. Keys are opaque strings
// owned by the caller; a blob-store error during ingestion is job-fatal.
type BlobStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Embedder converts text into a fixed-dimension vector via an external model.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a grounded natural-language answer from a prompt pair.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Page is one page of extracted text. Pages whose extracted text is empty are
// omitted by parsers but still count toward the total.
type Page struct {
	PageNumber int
	Text       string
}

// Parser extracts per-page plain text from a PDF byte stream.
type Parser interface {
	Parse(data []byte) (pages []Page, totalPages int, err error)
}

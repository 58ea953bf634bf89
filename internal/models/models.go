package models

import (
	"time"
)

// Document statuses, driven exclusively by the ingestion runner.
const (
	DocStatusUploaded  = "UPLOADED"
	DocStatusIngesting = "INGESTING"
	DocStatusReady     = "READY"
	DocStatusFailed    = "FAILED"
)

// IngestionJob statuses.
const (
	JobStatusQueued    = "QUEUED"
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
	JobStatusPaused    = "PAUSED"
)

// Document represents an uploaded or imported PDF textbook.
type Document struct {
	ID             string    `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	Subject        string    `db:"subject" json:"subject"`
	EducationLevel string    `db:"education_level" json:"education_level"` // elementary | secondary | high_school
	Specialization string    `db:"specialization" json:"specialization,omitempty"`
	YearNumber     int       `db:"year_number" json:"year_number"`
	StorageKey     string    `db:"storage_key" json:"storage_key"`
	SourceURL      string    `db:"source_url" json:"source_url,omitempty"`
	Checksum       string    `db:"checksum" json:"checksum"`
	Status         string    `db:"status" json:"status"`
	PageCount      int       `db:"page_count" json:"page_count"`
	ByteSize       int64     `db:"byte_size" json:"byte_size"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// IngestionJob tracks resumable progress for one ingestion attempt of a document.
// NextChunkIndex is the first unprocessed chunk index; a requeued job resumes from
// it rather than restarting.
type IngestionJob struct {
	ID                string     `db:"id" json:"id"`
	DocumentID        string     `db:"document_id" json:"document_id"`
	Status            string     `db:"status" json:"status"`
	TotalPages        int        `db:"total_pages" json:"total_pages"`
	PagesDone         int        `db:"pages_done" json:"pages_done"`
	TotalChunks       int        `db:"total_chunks" json:"total_chunks"`
	ChunksDone        int        `db:"chunks_done" json:"chunks_done"`
	NextPageToProcess int        `db:"next_page_to_process" json:"next_page_to_process"`
	NextChunkIndex    int        `db:"next_chunk_index" json:"next_chunk_index"`
	ErrorMessage      string     `db:"error_message" json:"error_message,omitempty"`
	LastHeartbeatAt   *time.Time `db:"last_heartbeat_at" json:"last_heartbeat_at,omitempty"`
	StartedAt         *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt       *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Progress returns completion as a fraction in [0,1]; 0 until totalChunks is known.
func (j *IngestionJob) Progress() float64 {
	if j.TotalChunks <= 0 {
		return 0
	}
	return float64(j.ChunksDone) / float64(j.TotalChunks)
}

// JobPatch is a typed partial update for an ingestion job. Only non-nil fields are
// written; updated_at always advances.
type JobPatch struct {
	Status            *string
	TotalPages        *int
	PagesDone         *int
	TotalChunks       *int
	ChunksDone        *int
	NextPageToProcess *int
	NextChunkIndex    *int
	ErrorMessage      *string
	LastHeartbeatAt   *time.Time
	CompletedAt       *time.Time
}

// DocumentChunk is one page-spanning slice of document text plus its embedding.
// Chunk indices assigned by one ingestion pass are contiguous integers from 0.
type DocumentChunk struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	ChunkIndex int       `db:"chunk_index" json:"chunk_index"`
	PageStart  int       `db:"page_start" json:"page_start"`
	PageEnd    int       `db:"page_end" json:"page_end"`
	Text       string    `db:"text" json:"text"`
	Embedding  []float32 `db:"embedding" json:"-"` // pgvector column
	TokenCount int       `db:"token_count" json:"token_count"`
	SourceRef  string    `db:"source_ref" json:"source_ref"` // e.g. "Physique 7eme p12-14"
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SearchFilters narrow a vector search. Filters are mutually exclusive and applied
// in priority order: document+page window, then document, then education level.
type SearchFilters struct {
	DocumentID     string
	EducationLevel string
	PageStart      *int
	PageEnd        *int
}

// ChunkMatch is one ranked search result with its citation metadata.
type ChunkMatch struct {
	Chunk         DocumentChunk `json:"chunk"`
	Distance      float64       `json:"distance"`
	DocumentTitle string        `json:"document_title"`
}

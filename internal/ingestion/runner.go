package ingestion

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bacmr/maktaba/internal/core"
	"github.com/bacmr/maktaba/internal/models"
)

// RunnerConfig tunes the ingestion pipeline.
//
// BatchSize is the unit of resumability: each batch is embedded, inserted and
// checkpointed as one step, so a crash mid-batch redoes at most one batch.
type RunnerConfig struct {
	BatchSize         int
	MaxTokens         int
	OverlapTokens     int
	HeartbeatInterval time.Duration
}

// Runner drives one claimed ingestion job through parse, chunk, embed and store,
// checkpointing progress after every batch. All dependencies are injected; the
// process entry point owns their lifecycles.
type Runner struct {
	store    core.Store
	blobs    core.BlobStore
	embedder core.Embedder
	parser   core.Parser
	cfg      RunnerConfig
}

func NewRunner(store core.Store, blobs core.BlobStore, embedder core.Embedder, parser core.Parser, cfg RunnerConfig) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = 0
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 15 * time.Second
	}
	return &Runner{store: store, blobs: blobs, embedder: embedder, parser: parser, cfg: cfg}
}

// DispatchNext atomically claims the oldest queued job and starts processing it
// in the background. Returns the claimed job, or nil when the queue is empty.
// Safe under concurrent callers: the claim skips rows another dispatcher holds.
func (r *Runner) DispatchNext(ctx context.Context) (*models.IngestionJob, error) {
	job, err := r.store.ClaimQueuedJob(ctx)
	if err != nil {
		return nil, fmt.Errorf("claim queued job: %w", err)
	}
	if job == nil {
		return nil, nil
	}

	log.Printf("IngestionRunner: claimed job %s (document %s)", job.ID, job.DocumentID)
	go r.runJob(job.ID)

	return job, nil
}

// runJob executes the full state machine for one claimed job. Errors past the
// INGESTING transition are recorded on the job and document, never propagated.
// The job outlives any request, so it runs on a background context.
func (r *Runner) runJob(jobID string) {
	ctx := context.Background()

	job, err := r.store.GetIngestionJob(ctx, jobID)
	if err != nil || job == nil {
		log.Printf("IngestionRunner: job %s not loadable: %v", jobID, err)
		return
	}
	doc, err := r.store.GetDocument(ctx, job.DocumentID)
	if err != nil || doc == nil {
		log.Printf("IngestionRunner: document %s for job %s not loadable: %v", job.DocumentID, jobID, err)
		return
	}

	// Chain to the next queued job whatever the outcome. Registered first so it
	// runs after the heartbeat stops; its errors never touch this job's state.
	defer func() {
		go func() {
			if _, err := r.DispatchNext(context.Background()); err != nil {
				log.Printf("IngestionRunner: auto-dispatch next job failed: %v", err)
			}
		}()
	}()

	stopHeartbeat := r.startHeartbeat(jobID)
	defer stopHeartbeat()

	if err := r.process(ctx, job, doc); err != nil {
		log.Printf("IngestionRunner: job %s failed: %v", jobID, err)
		status := models.JobStatusFailed
		msg := err.Error()
		if uerr := r.store.UpdateJobProgress(ctx, jobID, models.JobPatch{Status: &status, ErrorMessage: &msg}); uerr != nil {
			log.Printf("IngestionRunner: recording failure for job %s failed: %v", jobID, uerr)
		}
		if uerr := r.store.UpdateDocumentStatus(ctx, doc.ID, models.DocStatusFailed); uerr != nil {
			log.Printf("IngestionRunner: marking document %s failed: %v", doc.ID, uerr)
		}
		return
	}

	log.Printf("IngestionRunner: job %s completed", jobID)
}

// process is the main path: parse, chunk, then embed and store the chunks in
// checkpointed batches starting from the job's resume offset.
func (r *Runner) process(ctx context.Context, job *models.IngestionJob, doc *models.Document) error {
	if err := r.store.UpdateDocumentStatus(ctx, doc.ID, models.DocStatusIngesting); err != nil {
		return fmt.Errorf("mark document ingesting: %w", err)
	}

	data, err := r.blobs.Get(ctx, doc.StorageKey)
	if err != nil {
		return fmt.Errorf("fetch blob %q: %w", doc.StorageKey, err)
	}

	pages, totalPages, err := r.parser.Parse(data)
	if err != nil {
		return err
	}
	if err := r.store.UpdateJobProgress(ctx, job.ID, models.JobPatch{TotalPages: &totalPages}); err != nil {
		return fmt.Errorf("record total pages: %w", err)
	}
	if err := r.store.UpdateDocumentPageCount(ctx, doc.ID, totalPages); err != nil {
		return fmt.Errorf("record document page count: %w", err)
	}

	// Chunking is cheap and deterministic, so every run recomputes it in full;
	// only the embed/store phase is checkpointed.
	allChunks := ChunkPages(pages, r.cfg.MaxTokens, r.cfg.OverlapTokens)
	totalChunks := len(allChunks)
	if err := r.store.UpdateJobProgress(ctx, job.ID, models.JobPatch{TotalChunks: &totalChunks}); err != nil {
		return fmt.Errorf("record total chunks: %w", err)
	}

	startIndex := job.NextChunkIndex
	if startIndex > 0 {
		// A prior run may have written a partial batch past the checkpoint;
		// clear the tail before regenerating it.
		if err := r.store.DeleteChunksFromIndex(ctx, doc.ID, startIndex); err != nil {
			return fmt.Errorf("clear stale chunks from %d: %w", startIndex, err)
		}
		log.Printf("IngestionRunner: job %s resuming from chunk %d of %d", job.ID, startIndex, totalChunks)
	}

	for i := startIndex; i < totalChunks; i += r.cfg.BatchSize {
		end := i + r.cfg.BatchSize
		if end > totalChunks {
			end = totalChunks
		}
		batch := allChunks[i:end]

		rows := make([]models.DocumentChunk, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for bi := range batch {
			bi := bi
			ch := batch[bi]
			globalIdx := i + bi
			g.Go(func() error {
				embedding, err := r.embedder.EmbedText(gctx, ch.Text)
				if err != nil {
					return err
				}
				rows[bi] = models.DocumentChunk{
					ID:         uuid.NewString(),
					DocumentID: doc.ID,
					ChunkIndex: globalIdx,
					PageStart:  ch.PageStart,
					PageEnd:    ch.PageEnd,
					Text:       ch.Text,
					Embedding:  embedding,
					TokenCount: ch.TokenCount,
					SourceRef:  sourceRef(doc.Title, ch.PageStart, ch.PageEnd),
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if err := r.store.InsertChunks(ctx, rows); err != nil {
			return fmt.Errorf("insert chunk batch at %d: %w", i, err)
		}

		// Checkpoint to the end of the batch: the batch is the unit of
		// resumability.
		done := end
		lastPage := batch[len(batch)-1].PageEnd
		pagesDone := lastPage
		if totalPages < pagesDone {
			pagesDone = totalPages
		}
		now := time.Now()
		if err := r.store.UpdateJobProgress(ctx, job.ID, models.JobPatch{
			ChunksDone:        &done,
			PagesDone:         &pagesDone,
			NextChunkIndex:    &done,
			NextPageToProcess: &lastPage,
			LastHeartbeatAt:   &now,
		}); err != nil {
			return fmt.Errorf("checkpoint at chunk %d: %w", done, err)
		}
	}

	status := models.JobStatusCompleted
	now := time.Now()
	if err := r.store.UpdateJobProgress(ctx, job.ID, models.JobPatch{
		Status:      &status,
		ChunksDone:  &totalChunks,
		PagesDone:   &totalPages,
		CompletedAt: &now,
	}); err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	if err := r.store.UpdateDocumentStatus(ctx, doc.ID, models.DocStatusReady); err != nil {
		return fmt.Errorf("mark document ready: %w", err)
	}
	return nil
}

// startHeartbeat writes a fresh heartbeat timestamp on a fixed interval so the
// stall reaper can tell a slow batch from a dead worker. The returned stop
// function must always be called; a leaked heartbeat keeps a dead job RUNNING.
func (r *Runner) startHeartbeat(jobID string) (stop func()) {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(r.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				now := time.Now()
				if err := r.store.UpdateJobProgress(context.Background(), jobID, models.JobPatch{LastHeartbeatAt: &now}); err != nil {
					log.Printf("IngestionRunner: heartbeat for job %s failed: %v", jobID, err)
				}
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

func sourceRef(title string, pageStart, pageEnd int) string {
	if pageEnd != pageStart {
		return fmt.Sprintf("%s p%d-%d", title, pageStart, pageEnd)
	}
	return fmt.Sprintf("%s p%d", title, pageStart)
}

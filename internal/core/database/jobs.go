package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bacmr/maktaba/internal/models"
)

const jobColumns = `id, document_id, status, total_pages, pages_done, total_chunks, chunks_done,
	next_page_to_process, next_chunk_index, error_message, last_heartbeat_at,
	started_at, completed_at, created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (*models.IngestionJob, error) {
	var j models.IngestionJob
	err := row.Scan(
		&j.ID, &j.DocumentID, &j.Status, &j.TotalPages, &j.PagesDone, &j.TotalChunks, &j.ChunksDone,
		&j.NextPageToProcess, &j.NextChunkIndex, &j.ErrorMessage, &j.LastHeartbeatAt,
		&j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (c *Client) CreateIngestionJob(ctx context.Context, job *models.IngestionJob) error {
	if job == nil {
		return errors.New("nil job")
	}
	const q = `
		INSERT INTO ingestion_jobs (id, document_id, status)
		VALUES ($1, $2, $3)
	`
	_, err := c.db.ExecContext(ctx, q, job.ID, job.DocumentID, job.Status)
	return err
}

func (c *Client) GetIngestionJob(ctx context.Context, id string) (*models.IngestionJob, error) {
	q := `SELECT ` + jobColumns + ` FROM ingestion_jobs WHERE id = $1`
	return scanJob(c.db.QueryRowContext(ctx, q, id))
}

func (c *Client) ListIngestionJobs(ctx context.Context, status string) ([]models.IngestionJob, error) {
	if status != "" {
		q := `SELECT ` + jobColumns + ` FROM ingestion_jobs WHERE status = $1 ORDER BY created_at DESC`
		return c.queryJobs(ctx, q, status)
	}
	q := `SELECT ` + jobColumns + ` FROM ingestion_jobs ORDER BY created_at DESC`
	return c.queryJobs(ctx, q)
}

func (c *Client) ListJobsForDocument(ctx context.Context, documentID string) ([]models.IngestionJob, error) {
	q := `SELECT ` + jobColumns + ` FROM ingestion_jobs WHERE document_id = $1 ORDER BY created_at DESC`
	return c.queryJobs(ctx, q, documentID)
}

func (c *Client) queryJobs(ctx context.Context, q string, args ...any) ([]models.IngestionJob, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.IngestionJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// ClaimQueuedJob atomically claims the oldest QUEUED job and flips it to RUNNING.
// FOR UPDATE SKIP LOCKED makes concurrent claimers skip rows a racing transaction
// already selected, so at most one caller wins any given job; losers claim a
// different job or get nil.
func (c *Client) ClaimQueuedJob(ctx context.Context) (*models.IngestionJob, error) {
	q := `
		UPDATE ingestion_jobs
		SET status = 'RUNNING',
		    started_at = now(),
		    last_heartbeat_at = now(),
		    updated_at = now()
		WHERE id = (
			SELECT id FROM ingestion_jobs
			WHERE status = 'QUEUED'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns
	return scanJob(c.db.QueryRowContext(ctx, q))
}

// UpdateJobProgress merges only the fields set in the patch; updated_at always
// advances.
func (c *Client) UpdateJobProgress(ctx context.Context, id string, patch models.JobPatch) error {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.TotalPages != nil {
		add("total_pages", *patch.TotalPages)
	}
	if patch.PagesDone != nil {
		add("pages_done", *patch.PagesDone)
	}
	if patch.TotalChunks != nil {
		add("total_chunks", *patch.TotalChunks)
	}
	if patch.ChunksDone != nil {
		add("chunks_done", *patch.ChunksDone)
	}
	if patch.NextPageToProcess != nil {
		add("next_page_to_process", *patch.NextPageToProcess)
	}
	if patch.NextChunkIndex != nil {
		add("next_chunk_index", *patch.NextChunkIndex)
	}
	if patch.ErrorMessage != nil {
		add("error_message", *patch.ErrorMessage)
	}
	if patch.LastHeartbeatAt != nil {
		add("last_heartbeat_at", *patch.LastHeartbeatAt)
	}
	if patch.CompletedAt != nil {
		add("completed_at", *patch.CompletedAt)
	}

	q := fmt.Sprintf(`UPDATE ingestion_jobs SET %s WHERE id = $1`, strings.Join(sets, ", "))
	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("job not found: %s", id)
	}
	return nil
}

// MarkStalledJobs pauses every RUNNING job whose heartbeat is older than the
// timeout. Run it on a periodic trigger; it shares no state with any runner.
func (c *Client) MarkStalledJobs(ctx context.Context, timeout time.Duration) (int, error) {
	cutoff := time.Now().Add(-timeout)
	msg := fmt.Sprintf("job timed out: no heartbeat for %s", timeout)
	const q = `
		UPDATE ingestion_jobs
		SET status = 'PAUSED', error_message = $1, updated_at = now()
		WHERE status = 'RUNNING' AND last_heartbeat_at < $2
	`
	res, err := c.db.ExecContext(ctx, q, msg, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// RequeueJob sends a PAUSED or FAILED job back to QUEUED, clearing the error but
// keeping next_chunk_index so work resumes rather than restarts. Returns nil for
// jobs in any other state.
func (c *Client) RequeueJob(ctx context.Context, id string) (*models.IngestionJob, error) {
	q := `
		UPDATE ingestion_jobs
		SET status = 'QUEUED', error_message = '', updated_at = now()
		WHERE id = $1 AND status IN ('PAUSED', 'FAILED')
		RETURNING ` + jobColumns
	return scanJob(c.db.QueryRowContext(ctx, q, id))
}

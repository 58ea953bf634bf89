package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/bacmr/maktaba/internal/models"
)

// InsertChunks bulk-inserts chunks in a single transaction. No-op on empty input.
func (c *Client) InsertChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_chunks
			(id, document_id, chunk_index, page_start, page_end, text, embedding, token_count, source_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		var vec any
		if len(ch.Embedding) > 0 {
			vec = pgvector.NewVector(ch.Embedding)
		}
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.ChunkIndex, ch.PageStart, ch.PageEnd, ch.Text, vec, ch.TokenCount, ch.SourceRef,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// DeleteChunksFromIndex drops every chunk of the document with chunk_index >=
// fromIndex. A resumed ingestion calls this before regenerating the tail so a
// prior partial batch write cannot leave stale rows behind.
func (c *Client) DeleteChunksFromIndex(ctx context.Context, documentID string, fromIndex int) error {
	const q = `DELETE FROM document_chunks WHERE document_id = $1 AND chunk_index >= $2`
	_, err := c.db.ExecContext(ctx, q, documentID, fromIndex)
	return err
}

func (c *Client) CountChunks(ctx context.Context, documentID string) (int, error) {
	const q = `SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`
	var n int
	err := c.db.QueryRowContext(ctx, q, documentID).Scan(&n)
	return n, err
}

// SearchChunks runs nearest-neighbor search over chunks of READY documents,
// ordered by ascending cosine distance. Filters apply in priority order: document
// plus page window, document alone, education level, none.
func (c *Client) SearchChunks(ctx context.Context, queryVec []float32, limit int, filters models.SearchFilters) ([]models.ChunkMatch, error) {
	if limit <= 0 {
		limit = 8
	}
	vec := pgvector.NewVector(queryVec)
	args := []any{vec, limit}

	filterSQL := ""
	switch {
	case filters.DocumentID != "" && filters.PageStart != nil && filters.PageEnd != nil:
		filterSQL = " AND dc.document_id = $3 AND dc.page_start >= $4 AND dc.page_end <= $5"
		args = append(args, filters.DocumentID, *filters.PageStart, *filters.PageEnd)
	case filters.DocumentID != "":
		filterSQL = " AND dc.document_id = $3"
		args = append(args, filters.DocumentID)
	case filters.EducationLevel != "":
		filterSQL = " AND d.education_level = $3"
		args = append(args, filters.EducationLevel)
	}

	q := `
		SELECT dc.id, dc.document_id, dc.chunk_index, dc.page_start, dc.page_end,
		       dc.text, dc.token_count, dc.source_ref, dc.created_at,
		       dc.embedding <=> $1 AS distance,
		       d.title
		FROM document_chunks dc
		JOIN documents d ON d.id = dc.document_id
		WHERE dc.embedding IS NOT NULL
		  AND d.status = 'READY'` + filterSQL + `
		ORDER BY dc.embedding <=> $1
		LIMIT $2`

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var out []models.ChunkMatch
	for rows.Next() {
		var m models.ChunkMatch
		if err := rows.Scan(
			&m.Chunk.ID, &m.Chunk.DocumentID, &m.Chunk.ChunkIndex, &m.Chunk.PageStart, &m.Chunk.PageEnd,
			&m.Chunk.Text, &m.Chunk.TokenCount, &m.Chunk.SourceRef, &m.Chunk.CreatedAt,
			&m.Distance, &m.DocumentTitle,
		); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

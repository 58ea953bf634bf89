package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bacmr/maktaba/internal/models"
)

const documentColumns = `id, title, subject, education_level, specialization, year_number,
	storage_key, source_url, checksum, status, page_count, byte_size, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	var d models.Document
	err := row.Scan(
		&d.ID, &d.Title, &d.Subject, &d.EducationLevel, &d.Specialization, &d.YearNumber,
		&d.StorageKey, &d.SourceURL, &d.Checksum, &d.Status, &d.PageCount, &d.ByteSize,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, title, subject, education_level, specialization, year_number,
			 storage_key, source_url, checksum, status, page_count, byte_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.Title, doc.Subject, doc.EducationLevel, doc.Specialization, doc.YearNumber,
		doc.StorageKey, doc.SourceURL, doc.Checksum, doc.Status, doc.PageCount, doc.ByteSize)
	return err
}

func (c *Client) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(c.db.QueryRowContext(ctx, q, id))
}

func (c *Client) GetDocumentByChecksum(ctx context.Context, checksum string) (*models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE checksum = $1`
	return scanDocument(c.db.QueryRowContext(ctx, q, checksum))
}

func (c *Client) GetDocumentBySourceURL(ctx context.Context, sourceURL string) (*models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE source_url = $1 AND source_url <> ''`
	return scanDocument(c.db.QueryRowContext(ctx, q, sourceURL))
}

func (c *Client) ListDocuments(ctx context.Context) ([]models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (c *Client) UpdateDocumentStatus(ctx context.Context, id string, status string) error {
	const q = `UPDATE documents SET status = $2, updated_at = now() WHERE id = $1`
	res, err := c.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func (c *Client) UpdateDocumentPageCount(ctx context.Context, id string, pageCount int) error {
	const q = `UPDATE documents SET page_count = $2, updated_at = now() WHERE id = $1`
	_, err := c.db.ExecContext(ctx, q, id, pageCount)
	return err
}

// DeleteDocument removes the document; chunks and jobs go with it via ON DELETE
// CASCADE. The blob itself is the caller's responsibility.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	res, err := c.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

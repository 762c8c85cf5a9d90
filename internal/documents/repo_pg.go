package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docflow-backend/internal/shared/storage/db"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, name, description, content_hash, storage_key, size_bytes, mime_type, page_count, status_id, uploaded_by, created_at, updated_at, deleted_at`

// Create inserts a new document and its first history entry.
func (r *PGRepo) Create(ctx context.Context, doc Document, entry HistoryEntry) error {
	const query = `
INSERT INTO documents (
    id,
    name,
    description,
    content_hash,
    storage_key,
    size_bytes,
    mime_type,
    page_count,
    status_id,
    uploaded_by,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.Name,
		nullableString(doc.Description),
		doc.ContentHash,
		doc.StorageKey,
		doc.SizeBytes,
		doc.MimeType,
		doc.PageCount,
		doc.StatusID,
		doc.UploadedBy,
		doc.CreatedAt,
		doc.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if err := insertHistoryTx(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID returns a document, including tombstoned ones.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1
LIMIT 1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, id))
}

// List returns live documents newest-first.
func (r *PGRepo) List(ctx context.Context, filter ListFilter) ([]Document, error) {
	filter = filter.normalized()

	var where []string
	args := []any{}
	where = append(where, "deleted_at IS NULL")
	if filter.Status != "" {
		args = append(args, filter.Status.ID())
		where = append(where, fmt.Sprintf("status_id = $%d", len(args)))
	}
	if filter.UploadedBy != "" {
		args = append(args, filter.UploadedBy)
		where = append(where, fmt.Sprintf("uploaded_by = $%d", len(args)))
	}
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
SELECT %s
FROM documents
WHERE %s
ORDER BY created_at DESC
LIMIT $%d OFFSET $%d`, documentColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// UpdateContent replaces content metadata while the document is pending review.
func (r *PGRepo) UpdateContent(ctx context.Context, doc Document) (Document, error) {
	const query = `
UPDATE documents
SET content_hash = $1, storage_key = $2, size_bytes = $3, mime_type = $4, page_count = $5, updated_at = $6
WHERE id = $7`

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, err
	}
	defer tx.Rollback()

	current, err := LockTx(ctx, tx, doc.ID)
	if err != nil {
		return Document{}, err
	}
	if current.Deleted() || current.Status != StatusPendingReview {
		return Document{}, ErrNotEditable
	}
	if _, err := tx.ExecContext(ctx, query,
		doc.ContentHash,
		doc.StorageKey,
		doc.SizeBytes,
		doc.MimeType,
		doc.PageCount,
		doc.UpdatedAt,
		doc.ID,
	); err != nil {
		return Document{}, fmt.Errorf("update document content: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Document{}, err
	}
	current.ContentHash = doc.ContentHash
	current.StorageKey = doc.StorageKey
	current.SizeBytes = doc.SizeBytes
	current.MimeType = doc.MimeType
	current.PageCount = doc.PageCount
	current.UpdatedAt = doc.UpdatedAt
	return current, nil
}

// ChangeStatus locks the row, applies the transition and appends history.
func (r *PGRepo) ChangeStatus(ctx context.Context, id string, change StatusChange) (Document, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, err
	}
	defer tx.Rollback()

	doc, err := LockTx(ctx, tx, id)
	if err != nil {
		return Document{}, err
	}
	updated, err := ApplyStatusTx(ctx, tx, doc, change)
	if err != nil {
		return Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return Document{}, err
	}
	return updated, nil
}

// History returns entries oldest-first.
func (r *PGRepo) History(ctx context.Context, documentID string) ([]HistoryEntry, error) {
	const query = `
SELECT id, document_id, status_id, actor_id, actor_email, comment, created_at
FROM document_history
WHERE document_id = $1
ORDER BY created_at ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []HistoryEntry{}
	for rows.Next() {
		var entry HistoryEntry
		var comment sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&entry.DocumentID,
			&entry.StatusID,
			&entry.ActorID,
			&entry.ActorEmail,
			&comment,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if comment.Valid {
			entry.Comment = comment.String
		}
		entry.Status, _ = StatusFromID(entry.StatusID)
		out = append(out, entry)
	}
	return out, rows.Err()
}

// LockTx loads a document with SELECT ... FOR UPDATE inside tx.
func LockTx(ctx context.Context, tx *sql.Tx, id string) (Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1
FOR UPDATE`
	return scanDocument(tx.QueryRowContext(ctx, query, id))
}

// ApplyStatusTx moves a locked document to change.To and appends history.
// The caller commits.
func ApplyStatusTx(ctx context.Context, tx *sql.Tx, doc Document, change StatusChange) (Document, error) {
	if !CanTransition(doc.Status, change.To) {
		return Document{}, fmt.Errorf("%s -> %s: %w", doc.Status, change.To, ErrInvalidTransition)
	}
	doc = applyStatus(doc, change)

	const query = `
UPDATE documents
SET status_id = $1, updated_at = $2, deleted_at = $3
WHERE id = $4`
	var deletedAt sql.NullTime
	if doc.DeletedAt != nil {
		deletedAt = sql.NullTime{Time: *doc.DeletedAt, Valid: true}
	}
	if _, err := tx.ExecContext(ctx, query, doc.StatusID, doc.UpdatedAt, deletedAt, doc.ID); err != nil {
		return Document{}, fmt.Errorf("update document status: %w", err)
	}
	if err := insertHistoryTx(ctx, tx, historyFor(doc, change, uuid.NewString())); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func insertHistoryTx(ctx context.Context, tx *sql.Tx, entry HistoryEntry) error {
	const query = `
INSERT INTO document_history (id, document_id, status_id, actor_id, actor_email, comment, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := tx.ExecContext(ctx, query,
		entry.ID,
		entry.DocumentID,
		entry.StatusID,
		entry.ActorID,
		entry.ActorEmail,
		nullableString(entry.Comment),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var description sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(
		&doc.ID,
		&doc.Name,
		&description,
		&doc.ContentHash,
		&doc.StorageKey,
		&doc.SizeBytes,
		&doc.MimeType,
		&doc.PageCount,
		&doc.StatusID,
		&doc.UploadedBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || db.IsInvalidText(err) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if description.Valid {
		doc.Description = description.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		doc.DeletedAt = &t
	}
	status, ok := StatusFromID(doc.StatusID)
	if !ok {
		return Document{}, fmt.Errorf("document %s has unknown status id %s", doc.ID, doc.StatusID)
	}
	doc.Status = status
	return doc, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ DocumentsRepo = (*PGRepo)(nil)

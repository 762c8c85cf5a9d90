package signatures

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/shared/storage/db"
)

const documentSignerKey = "signatures_document_signer_key"

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const signatureColumns = `id, document_id, signer_id, signer_email, validated, validated_at, signature_hash, ip_address, user_agent, comment`

// CreateAndApprove inserts the signature and approves the document in one transaction.
func (r *PGRepo) CreateAndApprove(ctx context.Context, sig Signature, contentHash string, change documents.StatusChange) (documents.Document, error) {
	const insert = `
INSERT INTO signatures (
    id,
    document_id,
    signer_id,
    signer_email,
    validated,
    validated_at,
    signature_hash,
    ip_address,
    user_agent,
    comment
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return documents.Document{}, err
	}
	defer tx.Rollback()

	doc, err := documents.LockTx(ctx, tx, sig.DocumentID)
	if err != nil {
		return documents.Document{}, err
	}
	if doc.Status != documents.StatusPendingReview {
		return documents.Document{}, ErrStatusConflict
	}
	if doc.ContentHash != contentHash {
		return documents.Document{}, ErrContentChanged
	}

	if _, err := tx.ExecContext(ctx, insert,
		sig.ID,
		sig.DocumentID,
		sig.SignerID,
		sig.SignerEmail,
		sig.Validated,
		sig.ValidatedAt,
		sig.SignatureHash,
		sig.IPAddress,
		sig.UserAgent,
		sig.Comment,
	); err != nil {
		if db.IsUniqueViolation(err, documentSignerKey) {
			return documents.Document{}, ErrAlreadySigned
		}
		return documents.Document{}, fmt.Errorf("insert signature: %w", err)
	}

	updated, err := documents.ApplyStatusTx(ctx, tx, doc, change)
	if err != nil {
		return documents.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return documents.Document{}, err
	}
	return updated, nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Signature, error) {
	query := `
SELECT ` + signatureColumns + `
FROM signatures
WHERE id = $1
LIMIT 1`
	return scanSignature(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PGRepo) Exists(ctx context.Context, documentID, signerID string) (bool, error) {
	const query = `
SELECT EXISTS (SELECT 1 FROM signatures WHERE document_id = $1 AND signer_id = $2)`
	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, documentID, signerID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PGRepo) List(ctx context.Context, filter ListFilter) ([]Signature, error) {
	filter = filter.normalized()
	query := `
SELECT ` + signatureColumns + `
FROM signatures
WHERE ($1 = '' OR signer_id::text = $1)
ORDER BY validated_at DESC, id
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, filter.SignerID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	return scanSignatures(rows)
}

func (r *PGRepo) ListByDocument(ctx context.Context, documentID string) ([]Signature, error) {
	query := `
SELECT ` + signatureColumns + `
FROM signatures
WHERE document_id = $1
ORDER BY validated_at DESC, id`
	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	return scanSignatures(rows)
}

func (r *PGRepo) Delete(ctx context.Context, id string) (Signature, error) {
	query := `
DELETE FROM signatures
WHERE id = $1
RETURNING ` + signatureColumns
	return scanSignature(r.DB.QueryRowContext(ctx, query, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignature(row rowScanner) (Signature, error) {
	var sig Signature
	err := row.Scan(
		&sig.ID,
		&sig.DocumentID,
		&sig.SignerID,
		&sig.SignerEmail,
		&sig.Validated,
		&sig.ValidatedAt,
		&sig.SignatureHash,
		&sig.IPAddress,
		&sig.UserAgent,
		&sig.Comment,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || db.IsInvalidText(err) {
			return Signature{}, ErrNotFound
		}
		return Signature{}, err
	}
	sig.ValidatedAt = sig.ValidatedAt.UTC()
	return sig, nil
}

func scanSignatures(rows *sql.Rows) ([]Signature, error) {
	defer rows.Close()
	out := []Signature{}
	for rows.Next() {
		sig, err := scanSignature(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)

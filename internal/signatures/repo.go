package signatures

import (
	"context"

	"docflow-backend/internal/documents"
)

// Repo persists signatures.
//
// CreateAndApprove is one unit of work: under the document lock it checks the
// document is still PENDING_REVIEW with contentHash, inserts sig, moves the
// document to change.To and appends the history entry. It returns
// ErrAlreadySigned, ErrStatusConflict or ErrContentChanged when the state
// moved since validation.
type Repo interface {
	CreateAndApprove(ctx context.Context, sig Signature, contentHash string, change documents.StatusChange) (documents.Document, error)
	GetByID(ctx context.Context, id string) (Signature, error)
	Exists(ctx context.Context, documentID, signerID string) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]Signature, error)
	ListByDocument(ctx context.Context, documentID string) ([]Signature, error)
	Delete(ctx context.Context, id string) (Signature, error)
}

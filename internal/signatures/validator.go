package signatures

import (
	"context"
	"errors"
	"fmt"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/users"
)

// Validator runs the signing preconditions in order; the first failure wins.
// It never mutates state.
type Validator struct {
	Users      UserDirectory
	Documents  DocumentStore
	Signatures Repo
}

// Validate returns the document and signer when documentID may be signed by signerEmail.
func (v *Validator) Validate(ctx context.Context, documentID, signerEmail string) (documents.Document, users.User, error) {
	signer, err := v.Users.FindByEmail(ctx, signerEmail)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return documents.Document{}, users.User{}, refuse(ReasonUserInactive)
		}
		return documents.Document{}, users.User{}, fmt.Errorf("resolve signer: %w", err)
	}
	if !signer.IsActive {
		return documents.Document{}, users.User{}, refuse(ReasonUserInactive)
	}
	if signer.Role != users.RoleSupervisor {
		return documents.Document{}, users.User{}, refuse(ReasonNotSupervisor)
	}

	doc, err := v.Documents.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return documents.Document{}, users.User{}, fmt.Errorf("document %s: %w", documentID, documents.ErrNotFound)
		}
		return documents.Document{}, users.User{}, fmt.Errorf("load document: %w", err)
	}
	if doc.Deleted() {
		return documents.Document{}, users.User{}, v.deletedRefusal(ctx, doc.ID, signer.ID)
	}
	if doc.Status != documents.StatusPendingReview {
		return documents.Document{}, users.User{}, v.statusRefusal(ctx, doc.ID, signer.ID)
	}
	intact, err := v.Documents.CheckFileIntegrity(ctx, doc)
	if err != nil {
		return documents.Document{}, users.User{}, fmt.Errorf("check integrity: %w", err)
	}
	if !intact {
		return documents.Document{}, users.User{}, refuse(ReasonIntegrityFailed)
	}

	signed, err := v.Signatures.Exists(ctx, doc.ID, signer.ID)
	if err != nil {
		return documents.Document{}, users.User{}, fmt.Errorf("check existing signature: %w", err)
	}
	if signed {
		return documents.Document{}, users.User{}, refuse(ReasonAlreadySigned)
	}
	return doc, signer, nil
}

// statusRefusal reports a signer's own earlier signature ahead of the generic status reason.
func (v *Validator) statusRefusal(ctx context.Context, documentID, signerID string) error {
	signed, err := v.Signatures.Exists(ctx, documentID, signerID)
	if err != nil {
		return fmt.Errorf("check existing signature: %w", err)
	}
	if signed {
		return refuse(ReasonAlreadySigned)
	}
	return refuse(ReasonInvalidStatus)
}

// deletedRefusal hides a tombstoned document from signers who never signed it.
func (v *Validator) deletedRefusal(ctx context.Context, documentID, signerID string) error {
	signed, err := v.Signatures.Exists(ctx, documentID, signerID)
	if err != nil {
		return fmt.Errorf("check existing signature: %w", err)
	}
	if signed {
		return refuse(ReasonAlreadySigned)
	}
	return fmt.Errorf("document %s: %w", documentID, documents.ErrNotFound)
}

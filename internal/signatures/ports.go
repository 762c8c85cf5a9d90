package signatures

import (
	"context"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/users"
)

// UserDirectory resolves signers.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
}

// DocumentStore reads documents and checks their stored bytes.
type DocumentStore interface {
	FindByID(ctx context.Context, id string) (documents.Document, error)
	CheckFileIntegrity(ctx context.Context, doc documents.Document) (bool, error)
}

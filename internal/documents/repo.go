package documents

import "context"

// DocumentsRepo defines persistence operations for documents and their history.
// GetByID returns tombstoned documents too; List excludes them.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document, entry HistoryEntry) error
	GetByID(ctx context.Context, id string) (Document, error)
	List(ctx context.Context, filter ListFilter) ([]Document, error)
	UpdateContent(ctx context.Context, doc Document) (Document, error)
	ChangeStatus(ctx context.Context, id string, change StatusChange) (Document, error)
	History(ctx context.Context, documentID string) ([]HistoryEntry, error)
}

package documents

import "time"

// Document is an uploaded file under review.
type Document struct {
	ID          string
	Name        string
	Description string
	ContentHash string
	StorageKey  string
	SizeBytes   int64
	MimeType    string
	PageCount   int
	StatusID    string
	Status      Status
	UploadedBy  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Deleted reports whether the document has been tombstoned.
func (d Document) Deleted() bool {
	return d.DeletedAt != nil
}

// HistoryEntry records one status transition.
type HistoryEntry struct {
	ID         string
	DocumentID string
	StatusID   string
	Status     Status
	ActorID    string
	ActorEmail string
	Comment    string
	CreatedAt  time.Time
}

// Actor identifies who performed an operation.
type Actor struct {
	ID    string
	Email string
	Role  string
}

// StatusChange describes a transition together with its history entry.
type StatusChange struct {
	To      Status
	Actor   Actor
	Comment string
	At      time.Time
}

// ListFilter narrows document listings.
type ListFilter struct {
	Status     Status
	UploadedBy string
	Limit      int
	Offset     int
}

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func historyFor(doc Document, change StatusChange, id string) HistoryEntry {
	return HistoryEntry{
		ID:         id,
		DocumentID: doc.ID,
		StatusID:   change.To.ID(),
		Status:     change.To,
		ActorID:    change.Actor.ID,
		ActorEmail: change.Actor.Email,
		Comment:    change.Comment,
		CreatedAt:  change.At,
	}
}

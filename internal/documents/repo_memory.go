package documents

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"docflow-backend/internal/shared/storage/memstore"
)

var historySeq atomic.Uint64

type historyRecord struct {
	ID         string
	DocumentID string
	Seq        uint64
	Entry      HistoryEntry
}

// MemoryRepo is a go-memdb implementation of DocumentsRepo.
type MemoryRepo struct {
	db *memdb.MemDB
}

// NewMemoryRepo constructs a MemoryRepo on a shared memstore database.
func NewMemoryRepo(db *memdb.MemDB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

// Create stores the document with its initial history entry.
func (r *MemoryRepo) Create(ctx context.Context, doc Document, entry HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := r.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(memstore.TableDocuments, memstore.IndexID, doc.ID)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	if raw != nil {
		return fmt.Errorf("create document %s: %w", doc.ID, ErrInvalidInput)
	}
	if err := txn.Insert(memstore.TableDocuments, &doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	if err := insertHistory(txn, entry); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// GetByID returns a document, including tombstoned ones.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	txn := r.db.Txn(false)
	defer txn.Abort()
	return GetTxn(txn, id)
}

// List returns live documents newest-first.
func (r *MemoryRepo) List(ctx context.Context, filter ListFilter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter = filter.normalized()

	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(memstore.TableDocuments, memstore.IndexID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	var all []Document
	for raw := it.Next(); raw != nil; raw = it.Next() {
		doc := *raw.(*Document)
		if doc.Deleted() {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		if filter.UploadedBy != "" && doc.UploadedBy != filter.UploadedBy {
			continue
		}
		all = append(all, doc)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if filter.Offset >= len(all) {
		return []Document{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[filter.Offset:end], nil
}

// UpdateContent replaces content metadata while the document is pending review.
func (r *MemoryRepo) UpdateContent(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	txn := r.db.Txn(true)
	defer txn.Abort()

	current, err := GetTxn(txn, doc.ID)
	if err != nil {
		return Document{}, err
	}
	if current.Deleted() || current.Status != StatusPendingReview {
		return Document{}, ErrNotEditable
	}
	current.ContentHash = doc.ContentHash
	current.StorageKey = doc.StorageKey
	current.SizeBytes = doc.SizeBytes
	current.MimeType = doc.MimeType
	current.PageCount = doc.PageCount
	current.UpdatedAt = doc.UpdatedAt
	if err := txn.Insert(memstore.TableDocuments, &current); err != nil {
		return Document{}, fmt.Errorf("update document: %w", err)
	}
	txn.Commit()
	return current, nil
}

// ChangeStatus applies a transition and appends history atomically.
func (r *MemoryRepo) ChangeStatus(ctx context.Context, id string, change StatusChange) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	txn := r.db.Txn(true)
	defer txn.Abort()

	doc, err := GetTxn(txn, id)
	if err != nil {
		return Document{}, err
	}
	updated, err := ApplyStatusTxn(txn, doc, change)
	if err != nil {
		return Document{}, err
	}
	txn.Commit()
	return updated, nil
}

// History returns entries oldest-first.
func (r *MemoryRepo) History(ctx context.Context, documentID string) ([]HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(memstore.TableHistory, memstore.IndexDocumentID, documentID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	var records []*historyRecord
	for raw := it.Next(); raw != nil; raw = it.Next() {
		records = append(records, raw.(*historyRecord))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	out := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Entry)
	}
	return out, nil
}

// GetTxn loads a document inside an open memdb transaction.
func GetTxn(txn *memdb.Txn, id string) (Document, error) {
	raw, err := txn.First(memstore.TableDocuments, memstore.IndexID, id)
	if err != nil {
		return Document{}, fmt.Errorf("find document %s: %w", id, err)
	}
	if raw == nil {
		return Document{}, ErrNotFound
	}
	return *raw.(*Document), nil
}

// ApplyStatusTxn moves doc to change.To inside txn and appends the history entry.
// The caller commits.
func ApplyStatusTxn(txn *memdb.Txn, doc Document, change StatusChange) (Document, error) {
	if !CanTransition(doc.Status, change.To) {
		return Document{}, fmt.Errorf("%s -> %s: %w", doc.Status, change.To, ErrInvalidTransition)
	}
	doc = applyStatus(doc, change)
	if err := txn.Insert(memstore.TableDocuments, &doc); err != nil {
		return Document{}, fmt.Errorf("update document status: %w", err)
	}
	if err := insertHistory(txn, historyFor(doc, change, uuid.NewString())); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func insertHistory(txn *memdb.Txn, entry HistoryEntry) error {
	rec := &historyRecord{
		ID:         entry.ID,
		DocumentID: entry.DocumentID,
		Seq:        historySeq.Add(1),
		Entry:      entry,
	}
	if err := txn.Insert(memstore.TableHistory, rec); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func applyStatus(doc Document, change StatusChange) Document {
	doc.Status = change.To
	doc.StatusID = change.To.ID()
	doc.UpdatedAt = change.At
	if change.To == StatusDeleted {
		at := change.At
		doc.DeletedAt = &at
	}
	return doc
}

var _ DocumentsRepo = (*MemoryRepo)(nil)

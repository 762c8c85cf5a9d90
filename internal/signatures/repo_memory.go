package signatures

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-memdb"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/shared/storage/memstore"
)

// MemoryRepo stores signatures in the shared memstore database so signing
// commits together with the document transition.
type MemoryRepo struct {
	db *memdb.MemDB
}

func NewMemoryRepo(db *memdb.MemDB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

func (r *MemoryRepo) CreateAndApprove(ctx context.Context, sig Signature, contentHash string, change documents.StatusChange) (documents.Document, error) {
	if err := ctx.Err(); err != nil {
		return documents.Document{}, err
	}
	txn := r.db.Txn(true)
	defer txn.Abort()

	doc, err := documents.GetTxn(txn, sig.DocumentID)
	if err != nil {
		return documents.Document{}, err
	}
	if doc.Status != documents.StatusPendingReview {
		return documents.Document{}, ErrStatusConflict
	}
	if doc.ContentHash != contentHash {
		return documents.Document{}, ErrContentChanged
	}
	existing, err := txn.First(memstore.TableSignatures, memstore.IndexDocumentSigner, sig.DocumentID, sig.SignerID)
	if err != nil {
		return documents.Document{}, fmt.Errorf("check signature: %w", err)
	}
	if existing != nil {
		return documents.Document{}, ErrAlreadySigned
	}
	if err := txn.Insert(memstore.TableSignatures, &sig); err != nil {
		return documents.Document{}, fmt.Errorf("insert signature: %w", err)
	}
	updated, err := documents.ApplyStatusTxn(txn, doc, change)
	if err != nil {
		return documents.Document{}, err
	}
	if err := ctx.Err(); err != nil {
		return documents.Document{}, err
	}
	txn.Commit()
	return updated, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Signature, error) {
	if err := ctx.Err(); err != nil {
		return Signature{}, err
	}
	txn := r.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(memstore.TableSignatures, memstore.IndexID, id)
	if err != nil {
		return Signature{}, fmt.Errorf("find signature %s: %w", id, err)
	}
	if raw == nil {
		return Signature{}, ErrNotFound
	}
	return *raw.(*Signature), nil
}

func (r *MemoryRepo) Exists(ctx context.Context, documentID, signerID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	txn := r.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(memstore.TableSignatures, memstore.IndexDocumentSigner, documentID, signerID)
	if err != nil {
		return false, fmt.Errorf("check signature: %w", err)
	}
	return raw != nil, nil
}

func (r *MemoryRepo) List(ctx context.Context, filter ListFilter) ([]Signature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter = filter.normalized()
	txn := r.db.Txn(false)
	defer txn.Abort()

	var it memdb.ResultIterator
	var err error
	if filter.SignerID != "" {
		it, err = txn.Get(memstore.TableSignatures, memstore.IndexSignerID, filter.SignerID)
	} else {
		it, err = txn.Get(memstore.TableSignatures, memstore.IndexID)
	}
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	all := collect(it)
	if filter.Offset >= len(all) {
		return []Signature{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[filter.Offset:end], nil
}

func (r *MemoryRepo) ListByDocument(ctx context.Context, documentID string) ([]Signature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := r.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(memstore.TableSignatures, memstore.IndexDocumentID, documentID)
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	return collect(it), nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) (Signature, error) {
	if err := ctx.Err(); err != nil {
		return Signature{}, err
	}
	txn := r.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(memstore.TableSignatures, memstore.IndexID, id)
	if err != nil {
		return Signature{}, fmt.Errorf("find signature %s: %w", id, err)
	}
	if raw == nil {
		return Signature{}, ErrNotFound
	}
	if err := txn.Delete(memstore.TableSignatures, raw); err != nil {
		return Signature{}, fmt.Errorf("delete signature %s: %w", id, err)
	}
	txn.Commit()
	return *raw.(*Signature), nil
}

// collect copies signatures out of it, newest first, ties by id.
func collect(it memdb.ResultIterator) []Signature {
	out := []Signature{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, *raw.(*Signature))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ValidatedAt.Equal(out[j].ValidatedAt) {
			return out[i].ValidatedAt.After(out[j].ValidatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

var _ Repo = (*MemoryRepo)(nil)

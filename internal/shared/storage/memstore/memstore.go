// Package memstore holds the go-memdb schema shared by the in-memory repositories.
//
// Repositories from different packages open write transactions on the same
// *memdb.MemDB so a signature insert, its status transition and its history
// entry commit together. memdb does not enforce uniqueness on secondary
// indexes; callers check them inside the write transaction.
package memstore

import "github.com/hashicorp/go-memdb"

const (
	TableDocuments  = "documents"
	TableHistory    = "document_history"
	TableSignatures = "signatures"
)

const (
	IndexID             = "id"
	IndexDocumentID     = "document_id"
	IndexSignerID       = "signer_id"
	IndexDocumentSigner = "document_signer"
)

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		TableDocuments: {
			Name: TableDocuments,
			Indexes: map[string]*memdb.IndexSchema{
				IndexID: {
					Name:    IndexID,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
			},
		},
		TableHistory: {
			Name: TableHistory,
			Indexes: map[string]*memdb.IndexSchema{
				IndexID: {
					Name:    IndexID,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				IndexDocumentID: {
					Name:    IndexDocumentID,
					Indexer: &memdb.StringFieldIndex{Field: "DocumentID"},
				},
			},
		},
		TableSignatures: {
			Name: TableSignatures,
			Indexes: map[string]*memdb.IndexSchema{
				IndexID: {
					Name:    IndexID,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				IndexDocumentID: {
					Name:    IndexDocumentID,
					Indexer: &memdb.StringFieldIndex{Field: "DocumentID"},
				},
				IndexSignerID: {
					Name:    IndexSignerID,
					Indexer: &memdb.StringFieldIndex{Field: "SignerID"},
				},
				IndexDocumentSigner: {
					Name:   IndexDocumentSigner,
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "DocumentID"},
							&memdb.StringFieldIndex{Field: "SignerID"},
						},
					},
				},
			},
		},
	},
}

// New creates an empty database with the docflow schema.
func New() (*memdb.MemDB, error) {
	return memdb.NewMemDB(schema)
}

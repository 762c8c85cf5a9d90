package signatures

import (
	"context"
	"strings"
	"testing"

	"github.com/hashicorp/go-memdb"
	"github.com/stretchr/testify/require"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/shared/storage/memstore"
	"docflow-backend/internal/shared/storage/object/local"
	"docflow-backend/internal/users"
)

type fixture struct {
	db         *memdb.MemDB
	dir        string
	users      *users.Service
	docs       *documents.Service
	repo       *MemoryRepo
	svc        *Service
	supervisor users.User
	second     users.User
	plain      users.User
	admin      users.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := memstore.New()
	require.NoError(t, err)

	f := &fixture{db: db, dir: t.TempDir()}
	f.users = users.NewService(users.NewMemoryRepo())
	f.docs = documents.NewService(local.New(f.dir), documents.NewMemoryRepo(db), nil, 1<<20)
	f.repo = NewMemoryRepo(db)
	f.svc = NewService(f.repo, f.users, f.docs, nil)

	ctx := context.Background()
	f.supervisor = f.mustUser(t, ctx, "sup@example.com", "supervisor")
	f.second = f.mustUser(t, ctx, "sup2@example.com", "supervisor")
	f.plain = f.mustUser(t, ctx, "user@example.com", "user")
	f.admin = f.mustUser(t, ctx, "admin@example.com", "admin")
	return f
}

func (f *fixture) mustUser(t *testing.T, ctx context.Context, email, role string) users.User {
	t.Helper()
	u, err := f.users.Create(ctx, users.CreateInput{Email: email, FullName: strings.Split(email, "@")[0], Role: role})
	require.NoError(t, err)
	return u
}

func (f *fixture) upload(t *testing.T, content string) documents.Document {
	t.Helper()
	doc, err := f.docs.Upload(context.Background(), documents.Actor{ID: f.plain.ID, Email: f.plain.Email, Role: "user"},
		documents.UploadInput{Name: "Contract", FileName: "contract.txt"}, strings.NewReader(content))
	require.NoError(t, err)
	return doc
}

func (f *fixture) sign(ctx context.Context, docID string, signer users.User, comment string) (SigningResult, error) {
	return f.svc.Sign(ctx, SignInput{
		DocumentID:  docID,
		SignerEmail: signer.Email,
		Comment:     comment,
		ClientIP:    "203.0.113.7",
		UserAgent:   "docflow-test/1.0",
	})
}

// overwriteDocument replaces the stored document row, bypassing the service.
func (f *fixture) overwriteDocument(t *testing.T, doc documents.Document) {
	t.Helper()
	txn := f.db.Txn(true)
	require.NoError(t, txn.Insert(memstore.TableDocuments, &doc))
	txn.Commit()
}

// overwriteSignature replaces the stored signature row, bypassing the service.
func (f *fixture) overwriteSignature(t *testing.T, sig Signature) {
	t.Helper()
	txn := f.db.Txn(true)
	require.NoError(t, txn.Insert(memstore.TableSignatures, &sig))
	txn.Commit()
}

func (f *fixture) count(t *testing.T, docID string) int {
	t.Helper()
	list, err := f.repo.ListByDocument(context.Background(), docID)
	require.NoError(t, err)
	return len(list)
}

package signatures

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/users"
)

func TestSignApprovesAndRecordsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, "quarterly report")

	res, err := f.sign(ctx, doc.ID, f.supervisor, "")
	require.NoError(t, err)
	assert.Len(t, res.SignatureHash, 64)
	assert.Equal(t, doc.ID, res.DocumentID)
	assert.Equal(t, f.supervisor.ID, res.Signer.ID)
	assert.Equal(t, "supervisor", res.Signer.Role)
	assert.Equal(t, string(documents.StatusApproved), res.Status)
	assert.Zero(t, res.ValidatedAt.Nanosecond()%int(time.Millisecond))

	stored, err := f.docs.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusApproved, stored.Status)

	history, err := f.docs.History(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, documents.StatusApproved, history[1].Status)
	assert.Equal(t, "Document signed by sup@example.com", history[1].Comment)
	assert.Equal(t, f.supervisor.ID, history[1].ActorID)

	sig, err := f.svc.Get(ctx, res.SignatureID)
	require.NoError(t, err)
	assert.True(t, sig.Validated)
	assert.Equal(t, "203.0.113.7", sig.IPAddress)
	assert.Equal(t, "docflow-test/1.0", sig.UserAgent)
	assert.Equal(t, f.supervisor.Email, sig.SignerEmail)
}

func TestSignTwiceBySameSignerIsRefused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, "quarterly report")

	_, err := f.sign(ctx, doc.ID, f.supervisor, "")
	require.NoError(t, err)

	_, err = f.sign(ctx, doc.ID, f.supervisor, "")
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, ReasonAlreadySigned, ReasonOf(err))

	stored, err := f.docs.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusApproved, stored.Status)
	assert.Equal(t, 1, f.count(t, doc.ID))
}

func TestSignApprovedDocumentByAnotherSupervisor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, "quarterly report")

	_, err := f.sign(ctx, doc.ID, f.supervisor, "")
	require.NoError(t, err)

	_, err = f.sign(ctx, doc.ID, f.second, "")
	assert.Equal(t, ReasonInvalidStatus, ReasonOf(err))
	assert.Equal(t, 1, f.count(t, doc.ID))
}

func TestSignRequiresPendingReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rejected := f.upload(t, "a")
	_, err := f.docs.Reject(ctx, documents.Actor{ID: f.second.ID, Email: f.second.Email, Role: "supervisor"}, rejected.ID, "")
	require.NoError(t, err)

	deleted := f.upload(t, "b")
	_, err = f.docs.Delete(ctx, documents.Actor{ID: f.admin.ID, Email: f.admin.Email, Role: "admin"}, deleted.ID, "")
	require.NoError(t, err)

	_, err = f.sign(ctx, rejected.ID, f.supervisor, "")
	assert.Equal(t, ReasonInvalidStatus, ReasonOf(err))
	assert.Equal(t, 0, f.count(t, rejected.ID))

	_, err = f.sign(ctx, deleted.ID, f.supervisor, "")
	require.ErrorIs(t, err, documents.ErrNotFound)
	assert.Equal(t, 0, f.count(t, deleted.ID))
}

func TestSignDeletedDocumentAfterSigning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, "quarterly report")

	_, err := f.sign(ctx, doc.ID, f.supervisor, "")
	require.NoError(t, err)
	_, err = f.docs.Delete(ctx, documents.Actor{ID: f.admin.ID, Email: f.admin.Email, Role: "admin"}, doc.ID, "")
	require.NoError(t, err)

	_, err = f.sign(ctx, doc.ID, f.supervisor, "")
	assert.Equal(t, ReasonAlreadySigned, ReasonOf(err))

	_, err = f.sign(ctx, doc.ID, f.second, "")
	require.ErrorIs(t, err, documents.ErrNotFound)
	assert.Equal(t, 1, f.count(t, doc.ID))
}

func TestSignRequiresSupervisorRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, "quarterly report")

	for _, signer := range []users.User{f.plain, f.admin} {
		_, err := f.sign(ctx, doc.ID, signer, "")
		require.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, ReasonNotSupervisor, ReasonOf(err))
	}
	assert.Equal(t, 0, f.count(t, doc.ID))

	stored, err := f.docs.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusPendingReview, stored.Status)
}

func TestSignRequiresKnownActiveUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, "quarterly report")

	_, err := f.svc.Sign(ctx, SignInput{DocumentID: doc.ID, SignerEmail: "ghost@example.com"})
	assert.Equal(t, ReasonUserInactive, ReasonOf(err))

	inactive := false
	_, err = f.users.Update(ctx, f.supervisor.ID, users.UpdateInput{IsActive: &inactive})
	require.NoError(t, err)
	_, err = f.sign(ctx, doc.ID, f.supervisor, "")
	assert.Equal(t, ReasonUserInactive, ReasonOf(err))
}

func TestSignUnknownDocumentIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.sign(context.Background(), "nonexistent-id", f.supervisor, "")
	require.ErrorIs(t, err, documents.ErrNotFound)

	_, err = f.sign(context.Background(), "9b2f5c1e-0000-4000-8000-000000000000", f.supervisor, "")
	require.ErrorIs(t, err, documents.ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)

	list, err := f.svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSignRefusesTamperedFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, "original")

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, doc.StorageKey), []byte("forged"), 0o644))

	_, err := f.sign(ctx, doc.ID, f.supervisor, "")
	assert.Equal(t, ReasonIntegrityFailed, ReasonOf(err))
	assert.Equal(t, 0, f.count(t, doc.ID))
}

func TestSignRejectsMalformedInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Sign(context.Background(), SignInput{DocumentID: "", SignerEmail: "not-an-email"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSignCancelledContextWritesNothing(t *testing.T) {
	f := newFixture(t)
	doc := f.upload(t, "quarterly report")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.sign(ctx, doc.ID, f.supervisor, "")
	require.Error(t, err)

	stored, err := f.docs.FindByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusPendingReview, stored.Status)
	assert.Equal(t, 0, f.count(t, doc.ID))
}

func TestConcurrentSignsBySameSignerRecordOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, "quarterly report")

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		reasons   []string
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.sign(ctx, doc.ID, f.supervisor, "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			reasons = append(reasons, ReasonOf(err))
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, f.count(t, doc.ID))
	for _, r := range reasons {
		assert.Equal(t, ReasonAlreadySigned, r)
	}

	history, err := f.docs.History(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestVerifyRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, "quarterly report")

	res, err := f.sign(ctx, doc.ID, f.supervisor, "Looks good")
	require.NoError(t, err)
	assert.True(t, f.svc.Verify(ctx, res.SignatureID))

	history, err := f.docs.History(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Looks good", history[len(history)-1].Comment)
}

func TestVerifyDetectsMutatedContentHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, "quarterly report")

	res, err := f.sign(ctx, doc.ID, f.supervisor, "")
	require.NoError(t, err)
	require.True(t, f.svc.Verify(ctx, res.SignatureID))

	stored, err := f.docs.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	stored.ContentHash = "0000000000000000000000000000000000000000000000000000000000000000"
	f.overwriteDocument(t, stored)

	assert.False(t, f.svc.Verify(ctx, res.SignatureID))
}

func TestVerifyDetectsTamperedSignatureFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, "quarterly report")

	res, err := f.sign(ctx, doc.ID, f.supervisor, "approved")
	require.NoError(t, err)

	sig, err := f.svc.Get(ctx, res.SignatureID)
	require.NoError(t, err)

	forged := sig
	forged.IPAddress = "198.51.100.1"
	f.overwriteSignature(t, forged)
	assert.False(t, f.svc.Verify(ctx, sig.ID))

	forged = sig
	forged.Comment = "edited later"
	f.overwriteSignature(t, forged)
	assert.False(t, f.svc.Verify(ctx, sig.ID))

	f.overwriteSignature(t, sig)
	assert.True(t, f.svc.Verify(ctx, sig.ID))
}

func TestVerifyDetectsTamperedFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, "quarterly report")

	res, err := f.sign(ctx, doc.ID, f.supervisor, "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, doc.StorageKey), []byte("forged"), 0o644))
	assert.False(t, f.svc.Verify(ctx, res.SignatureID))
}

func TestVerifyUnknownSignatureIsFalse(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.svc.Verify(context.Background(), "missing"))
}

func TestRemoveKeepsDocumentStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, "quarterly report")

	res, err := f.sign(ctx, doc.ID, f.supervisor, "")
	require.NoError(t, err)

	_, err = f.svc.Remove(ctx, documents.Actor{ID: f.supervisor.ID, Role: "supervisor"}, res.SignatureID)
	require.ErrorIs(t, err, ErrForbidden)

	removed, err := f.svc.Remove(ctx, documents.Actor{ID: f.admin.ID, Role: "admin"}, res.SignatureID)
	require.NoError(t, err)
	assert.Equal(t, "Signature deleted successfully", removed.Message)
	assert.Equal(t, res.SignatureID, removed.Deleted.ID)
	assert.Equal(t, 0, f.count(t, doc.ID))

	stored, err := f.docs.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusApproved, stored.Status)

	_, err = f.svc.Remove(ctx, documents.Actor{ID: f.admin.ID, Role: "admin"}, res.SignatureID)
	require.ErrorIs(t, err, ErrNotFound)
	assert.False(t, f.svc.Verify(ctx, res.SignatureID))
}

func TestListFiltersBySigner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d1 := f.upload(t, "one")
	d2 := f.upload(t, "two")

	_, err := f.sign(ctx, d1.ID, f.supervisor, "")
	require.NoError(t, err)
	_, err = f.sign(ctx, d2.ID, f.second, "")
	require.NoError(t, err)

	all, err := f.svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.svc.List(ctx, ListFilter{SignerID: f.second.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, d2.ID, mine[0].DocumentID)

	byDoc, err := f.svc.ListByDocument(ctx, d1.ID)
	require.NoError(t, err)
	require.Len(t, byDoc, 1)
	assert.Equal(t, f.supervisor.ID, byDoc[0].SignerID)

	_, err = f.svc.ListByDocument(ctx, "missing")
	require.ErrorIs(t, err, documents.ErrNotFound)
}

type unreachableRepo struct {
	Repo
	err error
}

func (r unreachableRepo) GetByID(context.Context, string) (Signature, error) {
	return Signature{}, r.err
}

func TestCheckSeparatesFaultsFromVerdicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.upload(t, "quarterly report")
	res, err := f.sign(ctx, doc.ID, f.supervisor, "")
	require.NoError(t, err)

	valid, err := f.svc.Check(ctx, res.SignatureID)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = f.svc.Check(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, valid)

	valid, err = f.svc.Check(ctx, "not-a-uuid")
	require.NoError(t, err)
	assert.False(t, valid)

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, doc.StorageKey), []byte("forged"), 0o644))
	valid, err = f.svc.Check(ctx, res.SignatureID)
	require.NoError(t, err)
	assert.False(t, valid)

	down := errors.New("connection refused")
	f.svc.Repo = unreachableRepo{Repo: f.repo, err: down}
	valid, err = f.svc.Check(ctx, res.SignatureID)
	require.ErrorIs(t, err, down)
	assert.False(t, valid)
	assert.False(t, f.svc.Verify(ctx, res.SignatureID))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.svc.Check(cancelled, res.SignatureID)
	require.ErrorIs(t, err, context.Canceled)
}

func TestGetAndRemoveMalformedIDAreNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Get(ctx, "nonexistent-id")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Remove(ctx, documents.Actor{ID: f.admin.ID, Role: "admin"}, "nonexistent-id")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListPagesStablyOnTimestampTies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	fixed := time.Date(2026, 5, 4, 10, 30, 15, 0, time.UTC)
	f.svc.Now = func() time.Time { return fixed }

	var ids []string
	for _, content := range []string{"one", "two", "three"} {
		res, err := f.sign(ctx, f.upload(t, content).ID, f.supervisor, "")
		require.NoError(t, err)
		ids = append(ids, res.SignatureID)
	}
	sort.Strings(ids)

	var paged []string
	for offset := 0; offset < len(ids); offset++ {
		page, err := f.svc.List(ctx, ListFilter{Limit: 1, Offset: offset})
		require.NoError(t, err)
		require.Len(t, page, 1)
		paged = append(paged, page[0].ID)
	}
	assert.Equal(t, ids, paged)
}

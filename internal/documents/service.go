package documents

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docflow-backend/internal/shared/metrics"
	"docflow-backend/internal/shared/storage/object"
	"docflow-backend/internal/shared/telemetry"
	"docflow-backend/internal/shared/util"
	"docflow-backend/internal/shared/validation"
	"docflow-backend/internal/users"
)

const defaultMaxUploadBytes = 10 << 20

// Service contains business logic for documents.
type Service struct {
	Store          object.ObjectStore
	Repo           DocumentsRepo
	Metrics        *metrics.Metrics
	MaxUploadBytes int64
	Now            func() time.Time
}

// NewService wires a document service.
func NewService(store object.ObjectStore, repo DocumentsRepo, m *metrics.Metrics, maxUploadBytes int64) *Service {
	return &Service{Store: store, Repo: repo, Metrics: m, MaxUploadBytes: maxUploadBytes, Now: time.Now}
}

// UploadInput is the metadata accompanying an upload.
type UploadInput struct {
	Name        string `validate:"required,max=255"`
	Description string `validate:"max=2000"`
	FileName    string `validate:"required"`
}

// Upload stores the bytes, hashes them and records the document as pending review.
func (s *Service) Upload(ctx context.Context, actor Actor, in UploadInput, r io.Reader) (Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "documents.Upload")
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.FileName = strings.TrimSpace(in.FileName)
	if in.Name == "" {
		in.Name = in.FileName
	}
	if strings.TrimSpace(actor.ID) == "" {
		return Document{}, fmt.Errorf("%w: uploader required", ErrInvalidInput)
	}
	if err := validation.Struct(in); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	data, err := s.readAll(r)
	if err != nil {
		return Document{}, err
	}
	saved, err := s.Store.Save(ctx, actor.ID, in.FileName, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("store document: %w", err)
	}

	now := s.now()
	doc := Document{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		ContentHash: saved.SHA256,
		StorageKey:  saved.Key,
		SizeBytes:   saved.Size,
		MimeType:    saved.MIMEType,
		PageCount:   pageCount(saved.MIMEType, data),
		StatusID:    StatusPendingReviewID,
		Status:      StatusPendingReview,
		UploadedBy:  actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	entry := HistoryEntry{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		StatusID:   doc.StatusID,
		Status:     doc.Status,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Comment:    "Document uploaded",
		CreatedAt:  now,
	}
	if err := s.Repo.Create(ctx, doc, entry); err != nil {
		s.discard(ctx, saved.Key)
		return Document{}, fmt.Errorf("record document: %w", err)
	}

	span.SetAttributes(attribute.String("document.id", doc.ID), attribute.Int64("document.size", saved.Size))
	s.Metrics.IncDocumentsUploaded()
	telemetry.Info("document.uploaded", map[string]any{
		"document_id":  doc.ID,
		"uploaded_by":  actor.ID,
		"size_bytes":   saved.Size,
		"mime_type":    saved.MIMEType,
		"page_count":   doc.PageCount,
		"content_hash": doc.ContentHash,
	})
	return doc, nil
}

// Get returns a live document.
func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	doc, err := s.FindByID(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if doc.Deleted() {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// FindByID returns a document including tombstoned ones. Ids that are not
// UUIDs cannot exist and are reported as not found.
func (s *Service) FindByID(ctx context.Context, id string) (Document, error) {
	if uuid.Validate(id) != nil {
		return Document{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns live documents newest-first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Document, error) {
	return s.Repo.List(ctx, filter)
}

// Open returns the document with a reader over its stored bytes. The caller closes it.
func (s *Service) Open(ctx context.Context, id string) (Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	body, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Document{}, nil, ErrNotFound
		}
		return Document{}, nil, err
	}
	return doc, body, nil
}

// ReplaceContent swaps the stored bytes of a pending document and rehashes them.
func (s *Service) ReplaceContent(ctx context.Context, actor Actor, id, fileName string, r io.Reader) (Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "documents.ReplaceContent", trace.WithAttributes(attribute.String("document.id", id)))
	defer span.End()

	doc, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if !canManage(actor, doc) {
		return Document{}, ErrForbidden
	}
	if doc.Status != StatusPendingReview {
		return Document{}, ErrNotEditable
	}
	if strings.TrimSpace(fileName) == "" {
		return Document{}, fmt.Errorf("%w: file name required", ErrInvalidInput)
	}

	data, err := s.readAll(r)
	if err != nil {
		return Document{}, err
	}
	saved, err := s.Store.Save(ctx, doc.UploadedBy, fileName, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("store document: %w", err)
	}

	previousKey := doc.StorageKey
	doc.ContentHash = saved.SHA256
	doc.StorageKey = saved.Key
	doc.SizeBytes = saved.Size
	doc.MimeType = saved.MIMEType
	doc.PageCount = pageCount(saved.MIMEType, data)
	doc.UpdatedAt = s.now()

	updated, err := s.Repo.UpdateContent(ctx, doc)
	if err != nil {
		s.discard(ctx, saved.Key)
		return Document{}, err
	}
	s.discard(ctx, previousKey)

	telemetry.Info("document.content_replaced", map[string]any{
		"document_id":  updated.ID,
		"actor_id":     actor.ID,
		"content_hash": updated.ContentHash,
	})
	return updated, nil
}

// Reject moves a pending document to REJECTED.
func (s *Service) Reject(ctx context.Context, actor Actor, id, comment string) (Document, error) {
	if actor.Role != string(users.RoleSupervisor) {
		return Document{}, ErrForbidden
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		comment = "Document rejected by " + actor.Email
	}
	return s.changeStatus(ctx, actor, id, StatusRejected, comment)
}

// Delete tombstones the document and removes its stored bytes.
func (s *Service) Delete(ctx context.Context, actor Actor, id, comment string) (Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if !canManage(actor, doc) {
		return Document{}, ErrForbidden
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		comment = "Document deleted by " + actor.Email
	}
	deleted, err := s.changeStatus(ctx, actor, id, StatusDeleted, comment)
	if err != nil {
		return Document{}, err
	}
	s.discard(ctx, deleted.StorageKey)
	return deleted, nil
}

// History returns the status ledger of a document, tombstoned ones included.
func (s *Service) History(ctx context.Context, id string) ([]HistoryEntry, error) {
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.Repo.History(ctx, id)
}

// VerifyFileIntegrity re-hashes the stored bytes and compares them with ContentHash.
// Any read failure counts as a failed check.
func (s *Service) VerifyFileIntegrity(ctx context.Context, doc Document) bool {
	intact, err := s.CheckFileIntegrity(ctx, doc)
	if err != nil {
		telemetry.Warn("document.integrity.unreadable", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return false
	}
	return intact
}

// CheckFileIntegrity is VerifyFileIntegrity with storage faults reported as
// errors. Missing bytes are a failed check, not an error.
func (s *Service) CheckFileIntegrity(ctx context.Context, doc Document) (bool, error) {
	if doc.StorageKey == "" || doc.ContentHash == "" {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	body, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("open %s: %w", doc.StorageKey, err)
	}
	defer body.Close()

	sum, _, err := util.HashReader(body)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", doc.StorageKey, err)
	}
	return subtle.ConstantTimeCompare([]byte(sum), []byte(doc.ContentHash)) == 1, nil
}

func (s *Service) changeStatus(ctx context.Context, actor Actor, id string, to Status, comment string) (Document, error) {
	doc, err := s.Repo.ChangeStatus(ctx, id, StatusChange{
		To:      to,
		Actor:   actor,
		Comment: comment,
		At:      s.now(),
	})
	if err != nil {
		return Document{}, err
	}
	s.Metrics.IncStatusTransition(string(to))
	telemetry.Info("document.status_changed", map[string]any{
		"document_id": doc.ID,
		"status":      string(to),
		"actor_id":    actor.ID,
	})
	return doc, nil
}

func (s *Service) readAll(r io.Reader) ([]byte, error) {
	limit := s.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	return data, nil
}

func (s *Service) discard(ctx context.Context, storageKey string) {
	if storageKey == "" {
		return
	}
	if err := s.Store.Delete(context.WithoutCancel(ctx), storageKey); err != nil {
		telemetry.Warn("document.storage.delete_failed", map[string]any{
			"storage_key": storageKey,
			"error":       err.Error(),
		})
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func canManage(actor Actor, doc Document) bool {
	return actor.ID == doc.UploadedBy || actor.Role == string(users.RoleAdmin)
}

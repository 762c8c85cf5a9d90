package signatures

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/shared/metrics"
	"docflow-backend/internal/shared/telemetry"
	"docflow-backend/internal/shared/validation"
	"docflow-backend/internal/users"
)

// Service signs documents and verifies signatures.
type Service struct {
	Repo      Repo
	Documents DocumentStore
	Validator *Validator
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// NewService wires a Service and its Validator from the same ports.
func NewService(repo Repo, dir UserDirectory, docs DocumentStore, m *metrics.Metrics) *Service {
	return &Service{
		Repo:      repo,
		Documents: docs,
		Validator: &Validator{Users: dir, Documents: docs, Signatures: repo},
		Metrics:   m,
		Now:       time.Now,
	}
}

// Sign validates eligibility, records the signature and approves the document.
func (s *Service) Sign(ctx context.Context, in SignInput) (SigningResult, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "signatures.Sign", trace.WithAttributes(attribute.String("document.id", in.DocumentID)))
	defer span.End()

	in.SignerEmail = strings.TrimSpace(in.SignerEmail)
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validation.Struct(in); err != nil {
		return SigningResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	doc, signer, err := s.Validator.Validate(ctx, in.DocumentID, in.SignerEmail)
	if err != nil {
		s.rejected(span, in, err)
		return SigningResult{}, err
	}

	sig := Signature{
		ID:          uuid.NewString(),
		DocumentID:  doc.ID,
		SignerID:    signer.ID,
		SignerEmail: signer.Email,
		Validated:   true,
		ValidatedAt: s.now().Truncate(time.Millisecond),
		IPAddress:   in.ClientIP,
		UserAgent:   in.UserAgent,
		Comment:     in.Comment,
	}
	sig.SignatureHash, err = ComputeHash(sig, doc.ContentHash)
	if err != nil {
		return SigningResult{}, err
	}

	historyComment := in.Comment
	if historyComment == "" {
		historyComment = "Document signed by " + signer.Email
	}
	updated, err := s.Repo.CreateAndApprove(ctx, sig, doc.ContentHash, documents.StatusChange{
		To:      documents.StatusApproved,
		Actor:   documents.Actor{ID: signer.ID, Email: signer.Email, Role: string(signer.Role)},
		Comment: historyComment,
		At:      sig.ValidatedAt,
	})
	if err != nil {
		err = s.conflictReason(ctx, sig, err)
		s.rejected(span, in, err)
		return SigningResult{}, err
	}

	span.SetAttributes(attribute.String("signature.id", sig.ID))
	s.Metrics.IncSignaturesCreated()
	s.Metrics.IncStatusTransition(string(documents.StatusApproved))
	s.Metrics.ObserveSignDuration(time.Since(start))
	telemetry.Info("signature.created", map[string]any{
		"signature_id":   sig.ID,
		"document_id":    doc.ID,
		"signer_id":      signer.ID,
		"signature_hash": sig.SignatureHash,
	})

	return SigningResult{
		SignatureID: sig.ID,
		DocumentID:  doc.ID,
		Signer: Signer{
			ID:       signer.ID,
			Email:    signer.Email,
			FullName: signer.FullName,
			Role:     string(signer.Role),
		},
		SignatureHash: sig.SignatureHash,
		ValidatedAt:   sig.ValidatedAt,
		Status:        string(updated.Status),
	}, nil
}

// Verify recomputes the signature hash from stored state. Any failure yields false.
func (s *Service) Verify(ctx context.Context, signatureID string) bool {
	valid, err := s.Check(ctx, signatureID)
	if err != nil {
		telemetry.Warn("signature.verify.error", map[string]any{"signature_id": signatureID, "error": err.Error()})
		return false
	}
	return valid
}

// Check is Verify for callers that must tell a verdict from a fault. It is
// false with a nil error when the signature or its document is gone, the
// stored bytes changed, or the hash no longer matches. Storage and database
// faults are returned as errors.
func (s *Service) Check(ctx context.Context, signatureID string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "signatures.Check", trace.WithAttributes(attribute.String("signature.id", signatureID)))
	defer span.End()

	valid, err := s.check(ctx, signatureID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	span.SetAttributes(attribute.Bool("signature.valid", valid))
	s.Metrics.ObserveVerification(valid)
	return valid, nil
}

func (s *Service) check(ctx context.Context, signatureID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	sig, err := s.Get(ctx, signatureID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load signature: %w", err)
	}
	doc, err := s.Documents.FindByID(ctx, sig.DocumentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			telemetry.Warn("signature.verify.document_missing", map[string]any{
				"signature_id": sig.ID,
				"document_id":  sig.DocumentID,
			})
			return false, nil
		}
		return false, fmt.Errorf("load document: %w", err)
	}
	if doc.Deleted() {
		return false, nil
	}
	intact, err := s.Documents.CheckFileIntegrity(ctx, doc)
	if err != nil {
		return false, err
	}
	if !intact {
		telemetry.Warn("signature.verify.tampered", map[string]any{
			"signature_id": sig.ID,
			"document_id":  doc.ID,
		})
		return false, nil
	}
	expected, err := ComputeHash(sig, doc.ContentHash)
	if err != nil {
		return false, err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(sig.SignatureHash)) != 1 {
		telemetry.Warn("signature.verify.mismatch", map[string]any{
			"signature_id": sig.ID,
			"document_id":  doc.ID,
		})
		return false, nil
	}
	return true, nil
}

// Get returns one signature.
func (s *Service) Get(ctx context.Context, id string) (Signature, error) {
	if uuid.Validate(id) != nil {
		return Signature{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns signatures newest-first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Signature, error) {
	return s.Repo.List(ctx, filter)
}

// ListByDocument returns the signatures of one document.
func (s *Service) ListByDocument(ctx context.Context, documentID string) ([]Signature, error) {
	if _, err := s.Documents.FindByID(ctx, documentID); err != nil {
		return nil, err
	}
	return s.Repo.ListByDocument(ctx, documentID)
}

// Remove deletes a signature. The document status is left as is.
func (s *Service) Remove(ctx context.Context, actor documents.Actor, id string) (RemoveResult, error) {
	if actor.Role != string(users.RoleAdmin) {
		return RemoveResult{}, ErrForbidden
	}
	if uuid.Validate(id) != nil {
		return RemoveResult{}, ErrNotFound
	}
	deleted, err := s.Repo.Delete(ctx, id)
	if err != nil {
		return RemoveResult{}, err
	}
	s.Metrics.IncSignaturesRemoved()
	telemetry.Info("signature.removed", map[string]any{
		"signature_id": deleted.ID,
		"document_id":  deleted.DocumentID,
		"actor_id":     actor.ID,
	})
	return RemoveResult{Message: "Signature deleted successfully", Deleted: deleted}, nil
}

func (s *Service) rejected(span trace.Span, in SignInput, err error) {
	reason := ReasonOf(err)
	if reason == "" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, documents.ErrNotFound) {
			reason = "document_not_found"
		} else {
			return
		}
	}
	s.Metrics.IncSigningRejected(reason)
	telemetry.Warn("signature.rejected", map[string]any{
		"document_id":  in.DocumentID,
		"signer_email": in.SignerEmail,
		"reason":       reason,
	})
}

// conflictReason maps unit-of-work conflicts onto the validator's reasons.
func (s *Service) conflictReason(ctx context.Context, sig Signature, err error) error {
	switch {
	case errors.Is(err, ErrAlreadySigned):
		return refuse(ReasonAlreadySigned)
	case errors.Is(err, ErrStatusConflict), errors.Is(err, documents.ErrInvalidTransition):
		return s.Validator.statusRefusal(ctx, sig.DocumentID, sig.SignerID)
	case errors.Is(err, ErrContentChanged):
		return refuse(ReasonIntegrityFailed)
	default:
		return err
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

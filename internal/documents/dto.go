package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID  string     `json:"documentId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ContentHash string     `json:"contentHash"`
	MimeType    string     `json:"mimeType"`
	SizeBytes   int64      `json:"sizeBytes"`
	PageCount   int        `json:"pageCount"`
	Status      Status     `json:"status"`
	UploadedBy  string     `json:"uploadedBy"`
	UploadedAt  time.Time  `json:"uploadedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// HistoryResponse is one entry of a document's status ledger.
type HistoryResponse struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	ActorID    string    `json:"actorId"`
	ActorEmail string    `json:"actorEmail"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// IntegrityResponse reports the result of re-hashing stored content.
type IntegrityResponse struct {
	DocumentID  string `json:"documentId"`
	ContentHash string `json:"contentHash"`
	Valid       bool   `json:"valid"`
}

type commentRequest struct {
	Comment string `json:"comment"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:  doc.ID,
		Name:        doc.Name,
		Description: doc.Description,
		ContentHash: doc.ContentHash,
		MimeType:    doc.MimeType,
		SizeBytes:   doc.SizeBytes,
		PageCount:   doc.PageCount,
		Status:      doc.Status,
		UploadedBy:  doc.UploadedBy,
		UploadedAt:  doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		DeletedAt:   doc.DeletedAt,
	}
}

func toHistoryResponse(entries []HistoryEntry) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryResponse{
			ID:         e.ID,
			Status:     e.Status,
			ActorID:    e.ActorID,
			ActorEmail: e.ActorEmail,
			Comment:    e.Comment,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}

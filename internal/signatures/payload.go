package signatures

import (
	"encoding/json"
	"fmt"
	"time"

	"docflow-backend/internal/shared/util"
)

// TimestampLayout is ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// payload is the canonical signing document. Field order is the wire order.
type payload struct {
	DocumentID   string `json:"documentId"`
	SignerID     string `json:"signerId"`
	Timestamp    string `json:"timestamp"`
	UserAgent    string `json:"userAgent"`
	IPAddress    string `json:"ipAddress"`
	Comment      string `json:"comment,omitempty"`
	OriginalHash string `json:"originalHash"`
}

// CanonicalPayload serializes the fields bound by a signature.
func CanonicalPayload(sig Signature, contentHash string) ([]byte, error) {
	raw, err := json.Marshal(payload{
		DocumentID:   sig.DocumentID,
		SignerID:     sig.SignerID,
		Timestamp:    FormatTimestamp(sig.ValidatedAt),
		UserAgent:    sig.UserAgent,
		IPAddress:    sig.IPAddress,
		Comment:      sig.Comment,
		OriginalHash: contentHash,
	})
	if err != nil {
		return nil, fmt.Errorf("encode signing payload: %w", err)
	}
	return raw, nil
}

// ComputeHash returns the hex SHA-256 of the canonical payload.
func ComputeHash(sig Signature, contentHash string) (string, error) {
	raw, err := CanonicalPayload(sig, contentHash)
	if err != nil {
		return "", err
	}
	return util.HashBytes(raw), nil
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

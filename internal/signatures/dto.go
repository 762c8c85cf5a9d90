package signatures

// SignatureResponse is the outward-facing representation of a signature.
type SignatureResponse struct {
	ID            string `json:"id"`
	DocumentID    string `json:"documentId"`
	SignerID      string `json:"signerId"`
	SignerEmail   string `json:"signerEmail"`
	Validated     bool   `json:"validated"`
	ValidatedAt   string `json:"validatedAt"`
	SignatureHash string `json:"signatureHash"`
	IPAddress     string `json:"ipAddress"`
	UserAgent     string `json:"userAgent"`
	Comment       string `json:"comment,omitempty"`
}

type signerResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	Role     string `json:"role"`
}

// SigningResponse is returned by the sign endpoint.
type SigningResponse struct {
	SignatureID   string         `json:"signatureId"`
	DocumentID    string         `json:"documentId"`
	Signer        signerResponse `json:"signer"`
	SignatureHash string         `json:"signatureHash"`
	ValidatedAt   string         `json:"validatedAt"`
	Status        string         `json:"status"`
}

// VerifyResponse is returned by the verify endpoint.
type VerifyResponse struct {
	SignatureID string `json:"signatureId"`
	Valid       bool   `json:"valid"`
}

// RemoveResponse is returned after an administrative deletion.
type RemoveResponse struct {
	Message string            `json:"message"`
	Deleted SignatureResponse `json:"deleted"`
}

type signRequest struct {
	Comment string `json:"comment"`
}

func toResponse(sig Signature) SignatureResponse {
	return SignatureResponse{
		ID:            sig.ID,
		DocumentID:    sig.DocumentID,
		SignerID:      sig.SignerID,
		SignerEmail:   sig.SignerEmail,
		Validated:     sig.Validated,
		ValidatedAt:   FormatTimestamp(sig.ValidatedAt),
		SignatureHash: sig.SignatureHash,
		IPAddress:     sig.IPAddress,
		UserAgent:     sig.UserAgent,
		Comment:       sig.Comment,
	}
}

func toResponses(list []Signature) []SignatureResponse {
	out := make([]SignatureResponse, 0, len(list))
	for _, sig := range list {
		out = append(out, toResponse(sig))
	}
	return out
}

func toSigningResponse(res SigningResult) SigningResponse {
	return SigningResponse{
		SignatureID: res.SignatureID,
		DocumentID:  res.DocumentID,
		Signer: signerResponse{
			ID:       res.Signer.ID,
			Email:    res.Signer.Email,
			FullName: res.Signer.FullName,
			Role:     res.Signer.Role,
		},
		SignatureHash: res.SignatureHash,
		ValidatedAt:   FormatTimestamp(res.ValidatedAt),
		Status:        res.Status,
	}
}

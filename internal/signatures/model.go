package signatures

import "time"

// Signature is an immutable signing event.
type Signature struct {
	ID            string
	DocumentID    string
	SignerID      string
	SignerEmail   string
	Validated     bool
	ValidatedAt   time.Time
	SignatureHash string
	IPAddress     string
	UserAgent     string
	Comment       string
}

// SignInput is what a caller supplies to sign a document.
type SignInput struct {
	DocumentID  string `validate:"required"`
	SignerEmail string `validate:"required,email"`
	Comment     string `validate:"max=1000"`
	ClientIP    string
	UserAgent   string
}

// Signer summarizes the signing user.
type Signer struct {
	ID       string
	Email    string
	FullName string
	Role     string
}

// SigningResult is returned after a successful sign.
type SigningResult struct {
	SignatureID   string
	DocumentID    string
	Signer        Signer
	SignatureHash string
	ValidatedAt   time.Time
	Status        string
}

// RemoveResult is returned after an administrative deletion.
type RemoveResult struct {
	Message string
	Deleted Signature
}

// ListFilter narrows signature listings.
type ListFilter struct {
	SignerID string
	Limit    int
	Offset   int
}

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

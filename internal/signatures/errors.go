package signatures

import "errors"

// Reasons reported to clients when signing is refused.
const (
	ReasonUserInactive    = "User not found or inactive"
	ReasonNotSupervisor   = "User is not a supervisor"
	ReasonInvalidStatus   = "Document is not in a valid status for signing"
	ReasonIntegrityFailed = "Document integrity check failed"
	ReasonAlreadySigned   = "You have already signed this document"
)

var (
	ErrNotFound     = errors.New("signature not found")
	ErrValidation   = errors.New("signing validation failed")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")

	// Returned by repositories when the unit of work loses a race.
	ErrAlreadySigned  = errors.New("signature already exists for document and signer")
	ErrStatusConflict = errors.New("document status changed before signing")
	ErrContentChanged = errors.New("document content changed before signing")
)

// ValidationError is a business-rule refusal carrying a client-facing reason.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Is makes errors.Is(err, ErrValidation) match every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func refuse(reason string) error {
	return &ValidationError{Reason: reason}
}

// ReasonOf returns the client-facing reason of a validation failure, or "".
func ReasonOf(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Reason
	}
	return ""
}

package documents

import "errors"

var (
	ErrNotFound          = errors.New("document not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTooLarge          = errors.New("file too large")
	ErrNotEditable       = errors.New("document content can only be replaced while pending review")
)

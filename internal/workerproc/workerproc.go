// Package workerproc decodes integrity audit messages and re-verifies the
// signatures they name. It is shared by the long-polling worker and the
// Lambda consumer.
package workerproc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docflow-backend/internal/queue"
	"docflow-backend/internal/shared/util"
)

// Verifier re-derives a signature hash from stored state. A false verdict
// comes with a nil error; storage faults are returned as errors.
type Verifier interface {
	Check(ctx context.Context, signatureID string) (bool, error)
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	return MessageMeta{BodyLen: len(body), BodySHA: util.HashBytes([]byte(body))}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingSignatureID indicates a message without a signature id.
type ErrMissingSignatureID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingSignatureID) Error() string { return "missing signature id" }

// Unrecoverable reports whether redelivering the message can never succeed.
func Unrecoverable(err error) bool {
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		missing ErrMissingSignatureID
	)
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &missing)
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.SignatureID) == "" {
		return msg, meta, ErrMissingSignatureID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// Result is the outcome of one audit.
type Result struct {
	Message queue.Message
	Valid   bool
}

// HandleMessage parses body and re-verifies the signature it names.
// A false Valid is a finding, not an error.
func HandleMessage(ctx context.Context, v Verifier, body string) (Result, error) {
	if v == nil {
		return Result{}, errors.New("verifier not configured")
	}
	msg, _, err := ParseMessage(body)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{Message: msg}, err
	}
	valid, err := v.Check(ctx, msg.SignatureID)
	if err != nil {
		return Result{Message: msg}, fmt.Errorf("check signature %s: %w", msg.SignatureID, err)
	}
	return Result{Message: msg, Valid: valid}, nil
}

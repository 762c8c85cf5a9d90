package queue

import (
	"encoding/json"
	"time"
)

// MessageVersion is the current audit message schema version.
const MessageVersion = 1

// Message asks a worker to re-verify one signature.
type Message struct {
	SignatureID string `json:"signatureId"`
	RequestID   string `json:"requestId,omitempty"`
	EnqueuedAt  string `json:"enqueuedAt"`
	Version     int    `json:"version"`
}

// NewMessage stamps an audit message for signatureID.
func NewMessage(signatureID, requestID string, now time.Time) Message {
	return Message{
		SignatureID: signatureID,
		RequestID:   requestID,
		EnqueuedAt:  now.UTC().Format(time.RFC3339),
		Version:     MessageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

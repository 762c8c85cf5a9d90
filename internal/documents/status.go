package documents

import "strings"

// Status is a document lifecycle code.
type Status string

const (
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusApproved      Status = "APPROVED"
	StatusRejected      Status = "REJECTED"
	StatusDeleted       Status = "DELETED"
)

// Well-known status IDs, seeded by migration 00002.
const (
	StatusPendingReviewID = "3f1c6e0a-8a55-4c1e-9c56-2d6f0b1a0001"
	StatusApprovedID      = "3f1c6e0a-8a55-4c1e-9c56-2d6f0b1a0002"
	StatusRejectedID      = "3f1c6e0a-8a55-4c1e-9c56-2d6f0b1a0003"
	StatusDeletedID       = "3f1c6e0a-8a55-4c1e-9c56-2d6f0b1a0004"
)

var statusIDs = map[Status]string{
	StatusPendingReview: StatusPendingReviewID,
	StatusApproved:      StatusApprovedID,
	StatusRejected:      StatusRejectedID,
	StatusDeleted:       StatusDeletedID,
}

var transitions = map[Status][]Status{
	StatusPendingReview: {StatusApproved, StatusRejected, StatusDeleted},
	StatusApproved:      {StatusDeleted},
	StatusRejected:      {StatusDeleted},
}

// ID returns the persisted identifier of the status, or "" if unknown.
func (s Status) ID() string {
	return statusIDs[s]
}

// Valid reports whether s is one of the known codes.
func (s Status) Valid() bool {
	_, ok := statusIDs[s]
	return ok
}

// ParseStatus accepts a status code in any case.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// StatusFromID maps a persisted status ID back to its code.
func StatusFromID(id string) (Status, bool) {
	for s, sid := range statusIDs {
		if sid == id {
			return s, true
		}
	}
	return "", false
}

// CanTransition reports whether from -> to is an allowed lifecycle step.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

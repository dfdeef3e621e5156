package models

import (
	"time"

	"github.com/google/uuid"
)

// Question status constants
const (
	QuestionOpen   = "open"
	QuestionClosed = "closed"
)

// Question is the decision subject of the closure and reopen state machines.
type Question struct {
	ID              uuid.UUID  `json:"id"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	Title           string     `json:"title"`
	Status          string     `json:"status"`
	CloseReasonCode *string    `json:"close_reason_code"`
	CloseDetails    *string    `json:"close_details"`
	ClosedBy        *uuid.UUID `json:"closed_by"`
	ClosedAt        *time.Time `json:"closed_at"`
	DuplicateOfID   *uuid.UUID `json:"duplicate_of_id"`
	Tags            []string   `json:"tags"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsClosed returns true if the question is closed.
func (q *Question) IsClosed() bool {
	return q.Status == QuestionClosed
}

// IsOwnedBy returns true if userID authored the question.
func (q *Question) IsOwnedBy(userID uuid.UUID) bool {
	return q.OwnerID == userID
}

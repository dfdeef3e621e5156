package models

import (
	"time"

	"github.com/google/uuid"
)

// CloseReasonDuplicate is the reason code whose closure links to another question.
const CloseReasonDuplicate = "duplicate"

// CloseReason is a configured close reason code.
type CloseReason struct {
	Code            string `json:"code"`
	Label           string `json:"label"`
	RequiresDetails bool   `json:"requires_details"`
	VotesNeeded     *int   `json:"votes_needed"` // nil uses ClosureConfig.CloseVotesNeeded
	IsActive        bool   `json:"is_active"`
}

// CloseVote is one user's vote to close a question for one reason.
type CloseVote struct {
	ID            uuid.UUID  `json:"id"`
	QuestionID    uuid.UUID  `json:"question_id"`
	UserID        uuid.UUID  `json:"user_id"`
	ReasonCode    string     `json:"reason_code"`
	Details       *string    `json:"details"`
	DuplicateOfID *uuid.UUID `json:"duplicate_of_id"`
	IsActive      bool       `json:"is_active"`
	IsHammer      bool       `json:"is_hammer"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ReopenVote is one user's vote to reopen a closed question.
type ReopenVote struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	UserID     uuid.UUID `json:"user_id"`
	Reason     string    `json:"reason"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReasonTally is the active vote count for one close reason.
type ReasonTally struct {
	ReasonCode  string `json:"reason_code"`
	Votes       int    `json:"votes"`
	VotesNeeded int    `json:"votes_needed"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Reputation award reasons
const (
	ReasonCloseVoteAccepted  = "Close vote accepted"
	ReasonReopenVoteAccepted = "Reopen vote successful"
	ReasonReviewCompleted    = "Completed a review task"
	ReasonCommunityConsensus = "Community consensus"
)

// Reputation reference types
const (
	RefQuestion   = "question"
	RefReviewItem = "review_queue_item"
)

// Reputation points awarded by the engine
const (
	ConsensusBonus = 2
	ReviewTaskPay  = 1
)

// ReputationRef names the entity a reputation entry was earned on.
type ReputationRef struct {
	Type string    `json:"reference_type"`
	ID   uuid.UUID `json:"reference_id"`
}

// ReputationEntry is one immutable row of the reputation ledger.
type ReputationEntry struct {
	ID            int64     `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Points        int       `json:"points"`
	Reason        string    `json:"reason"`
	ReferenceType string    `json:"reference_type"`
	ReferenceID   uuid.UUID `json:"reference_id"`
	CreatedAt     time.Time `json:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Moderation log actions
const (
	ActionHammerClose = "hammer_close"
	ActionVoteClose   = "vote_close"
	ActionVoteReopen  = "vote_reopen"
	ActionReviewDone  = "review_resolved"
)

// ModerationLogEntry is an audit row for a privileged or resolving action.
type ModerationLogEntry struct {
	ID         int64          `json:"id"`
	ActorID    *uuid.UUID     `json:"actor_id"` // nil for consensus resolutions
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   uuid.UUID      `json:"target_id"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReviewType is a review queue category.
type ReviewType string

// Review type constants
const (
	ReviewSpamScam ReviewType = "spam_scam"
	ReviewOutdated ReviewType = "outdated"
)

// ReviewTypes lists every review queue category.
var ReviewTypes = []ReviewType{ReviewSpamScam, ReviewOutdated}

// ParseReviewType validates a raw review type string.
func ParseReviewType(s string) (ReviewType, error) {
	for _, rt := range ReviewTypes {
		if string(rt) == s {
			return rt, nil
		}
	}
	return "", fmt.Errorf("unknown review type %q", s)
}

// Review vote values
const (
	VoteHide     = "hide"
	VoteKeep     = "keep"
	VoteOutdated = "outdated"
	VoteCurrent  = "current"
)

// ActionVote is the vote that moves an item toward approval.
func (r ReviewType) ActionVote() string {
	if r == ReviewOutdated {
		return VoteOutdated
	}
	return VoteHide
}

// KeepVote is the vote that moves an item toward rejection.
func (r ReviewType) KeepVote() string {
	if r == ReviewOutdated {
		return VoteCurrent
	}
	return VoteKeep
}

// AllowsVote reports whether v belongs to this review type's vocabulary.
func (r ReviewType) AllowsVote(v string) bool {
	return v == r.ActionVote() || v == r.KeepVote()
}

// FlagType is the content flag applied when an item is approved.
func (r ReviewType) FlagType() string {
	if r == ReviewOutdated {
		return FlagOutdated
	}
	return FlagHiddenSpam
}

// Review queue item status constants
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// ReviewQueueItem is a decision instance for one piece of content in one category.
type ReviewQueueItem struct {
	ID          uuid.UUID   `json:"id"`
	ContentType ContentType `json:"content_type"`
	ContentID   uuid.UUID   `json:"content_id"`
	ReviewType  ReviewType  `json:"review_type"`
	FlaggedBy   uuid.UUID   `json:"flagged_by"`
	Status      string      `json:"status"`
	HideVotes   int         `json:"hide_votes"` // hide or outdated
	KeepVotes   int         `json:"keep_votes"` // keep or current
	CreatedAt   time.Time   `json:"created_at"`
	ResolvedAt  *time.Time  `json:"resolved_at"`
}

// IsPending returns true if the item still accepts votes.
func (i *ReviewQueueItem) IsPending() bool {
	return i.Status == ReviewPending
}

// Content returns a reference to the reviewed content.
func (i *ReviewQueueItem) Content() ContentRef {
	return ContentRef{Type: i.ContentType, ID: i.ContentID}
}

// ReviewVote is one user's vote on a review queue item.
type ReviewVote struct {
	ItemID    uuid.UUID `json:"review_queue_item_id"`
	UserID    uuid.UUID `json:"user_id"`
	Vote      string    `json:"vote"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Content flag types
const (
	FlagHiddenSpam = "hidden_spam"
	FlagOutdated   = "outdated"
)

// ContentFlag is the durable mark left on content after an approved review.
type ContentFlag struct {
	ID          uuid.UUID   `json:"id"`
	ContentType ContentType `json:"content_type"`
	ContentID   uuid.UUID   `json:"content_id"`
	FlagType    string      `json:"flag_type"`
	IsActive    bool        `json:"is_active"`
	ItemID      *uuid.UUID  `json:"review_queue_item_id"`
	CreatedAt   time.Time   `json:"created_at"`
}

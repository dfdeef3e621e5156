package moderation

import (
	"errors"
	"fmt"
	"time"

	"qamod/internal/models"
)

// Engine error sentinels.
var (
	// Authorization
	ErrSelfContent = errors.New("you cannot moderate your own content")

	// Conflict
	ErrAlreadyVoted    = errors.New("you have already voted on this")
	ErrAlreadyResolved = errors.New("this review has already been resolved")
	ErrQuestionClosed  = errors.New("question is already closed")
	ErrQuestionOpen    = errors.New("question is not closed")

	// Not found
	ErrNotFound     = models.ErrNotFound
	ErrVoteNotFound = fmt.Errorf("active vote %w", models.ErrNotFound)

	// Invalid input
	ErrInvalidVote      = errors.New("vote is not valid for this review type")
	ErrUnknownReason    = errors.New("unknown or inactive close reason")
	ErrDetailsRequired  = errors.New("this close reason requires details")
	ErrDuplicateTarget  = errors.New("duplicate closure requires another existing question")
	ErrInvalidAward     = errors.New("reputation awards must be positive")
	ErrInvalidRetagTags = errors.New("at least one tag is required")

	// Transient
	ErrStoreUnavailable = models.ErrStoreUnavailable
)

// ReputationError is a denial the actor can fix by earning reputation.
type ReputationError struct {
	Required int
	Current  int
}

func (e *ReputationError) Error() string {
	return fmt.Sprintf("you need %d reputation to do this (you have %d)", e.Required, e.Current)
}

// BadgeError is a denial that requires a tag badge of at least Tier.
type BadgeError struct {
	Tier models.BadgeTier
}

func (e *BadgeError) Error() string {
	return fmt.Sprintf("you need an active %s badge in one of this question's tags", e.Tier)
}

// RateLimitError reports an exhausted daily review quota.
type RateLimitError struct {
	Limit      int
	ReviewType models.ReviewType
	ResetAt    time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("daily limit of %d %s reviews reached, resets at %s",
		e.Limit, e.ReviewType, e.ResetAt.Format(time.RFC3339))
}

// Kind classifies engine errors for callers choosing a response.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthorization
	KindConflict
	KindRateLimit
	KindNotFound
	KindInvalid
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindRateLimit:
		return "rate_limit"
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindTransient:
		return "transient"
	}
	return "internal"
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	var repErr *ReputationError
	var badgeErr *BadgeError
	var rateErr *RateLimitError

	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &repErr), errors.As(err, &badgeErr), errors.Is(err, ErrSelfContent):
		return KindAuthorization
	case errors.As(err, &rateErr):
		return KindRateLimit
	case errors.Is(err, ErrAlreadyVoted), errors.Is(err, ErrAlreadyResolved),
		errors.Is(err, ErrQuestionClosed), errors.Is(err, ErrQuestionOpen):
		return KindConflict
	case errors.Is(err, models.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidVote), errors.Is(err, ErrUnknownReason),
		errors.Is(err, ErrDetailsRequired), errors.Is(err, ErrDuplicateTarget),
		errors.Is(err, ErrInvalidAward), errors.Is(err, ErrInvalidRetagTags):
		return KindInvalid
	case errors.Is(err, models.ErrStoreUnavailable):
		return KindTransient
	}
	return KindInternal
}

package moderation

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"qamod/internal/models"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindInternal},
		{errors.New("boom"), KindInternal},
		{&ReputationError{Required: 500}, KindAuthorization},
		{fmt.Errorf("wrapped: %w", &BadgeError{Tier: models.BadgeGold}), KindAuthorization},
		{ErrSelfContent, KindAuthorization},
		{ErrAlreadyVoted, KindConflict},
		{ErrAlreadyResolved, KindConflict},
		{ErrQuestionClosed, KindConflict},
		{ErrQuestionOpen, KindConflict},
		{&RateLimitError{Limit: 20, ResetAt: time.Now()}, KindRateLimit},
		{ErrVoteNotFound, KindNotFound},
		{fmt.Errorf("question %w", models.ErrNotFound), KindNotFound},
		{ErrInvalidVote, KindInvalid},
		{ErrUnknownReason, KindInvalid},
		{ErrDetailsRequired, KindInvalid},
		{ErrDuplicateTarget, KindInvalid},
		{ErrInvalidRetagTags, KindInvalid},
		{fmt.Errorf("%w: deadlock", models.ErrStoreUnavailable), KindTransient},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "KindOf(%v)", tt.err)
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "you need 500 reputation to do this (you have 12)",
		(&ReputationError{Required: 500, Current: 12}).Error())
	assert.Contains(t, (&BadgeError{Tier: models.BadgeGold}).Error(), "gold")

	reset := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "daily limit of 20 spam_scam reviews reached, resets at 2024-03-11T00:00:00Z",
		(&RateLimitError{Limit: 20, ReviewType: models.ReviewSpamScam, ResetAt: reset}).Error())
}

package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"qamod/internal/models"
)

// DefaultDailyReviewLimit is the number of distinct review items a user may
// complete per review type per UTC day.
const DefaultDailyReviewLimit = 20

// DailyLimit caps distinct review items per (user, review type, UTC day).
// A non-positive Limit means DefaultDailyReviewLimit; the quota cannot be
// switched off.
type DailyLimit struct {
	Limit int
}

func (l DailyLimit) quota() int {
	if l.Limit <= 0 {
		return DefaultDailyReviewLimit
	}
	return l.Limit
}

// dayStart returns the start of t's UTC calendar day.
func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// nextReset returns the UTC midnight following t.
func nextReset(t time.Time) time.Time {
	return dayStart(t).AddDate(0, 0, 1)
}

// Check fails with *RateLimitError when the user already completed Limit
// distinct items of rt today. The caller must hold the user's row lock so
// concurrent requests observe each other's votes.
func (l DailyLimit) Check(ctx context.Context, repo Repo, userID uuid.UUID, rt models.ReviewType, now time.Time) error {
	limit := l.quota()
	done, err := repo.CountReviewsSince(ctx, userID, rt, dayStart(now))
	if err != nil {
		return fmt.Errorf("failed to count today's reviews: %w", err)
	}
	if done >= limit {
		return &RateLimitError{Limit: limit, ReviewType: rt, ResetAt: nextReset(now)}
	}
	return nil
}

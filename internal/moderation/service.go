// Package moderation implements the community moderation consensus engine:
// close and reopen voting on questions, the flag review queue, the privilege
// gate in front of them and the reputation paid out on resolution.
package moderation

import (
	"bytes"
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"qamod/internal/models"
)

// Config tunes the engine.
type Config struct {
	DailyReviewLimit int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service runs moderation operations against a Store. Each operation is one
// transaction; resolution side effects commit together with the vote that
// triggered them.
type Service struct {
	store    Store
	notifier Notifier
	limit    DailyLimit
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a moderation service. notifier and logger may be nil.
func NewService(store Store, notifier Notifier, logger *slog.Logger, cfg Config) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    store,
		notifier: notifier,
		limit:    DailyLimit{Limit: cfg.DailyReviewLimit},
		logger:   logger.With("component", "moderation"),
		now:      now,
	}
}

// outbox collects events during a transaction attempt.
type outbox struct {
	events []Event
}

func (o *outbox) add(e Event) {
	o.events = append(o.events, e)
}

// run executes fn in a transaction and dispatches its events after commit.
// The outbox is reset on every attempt because the store may retry fn.
func (s *Service) run(ctx context.Context, fn func(Repo, *outbox) error) error {
	var box outbox
	err := s.store.WithTx(ctx, func(repo Repo) error {
		box = outbox{}
		return fn(repo, &box)
	})
	if err != nil {
		return err
	}
	for _, e := range box.events {
		s.notifier.Notify(ctx, e)
	}
	return nil
}

// authorize runs the gate and turns a denial into its typed error.
func (s *Service) authorize(ctx context.Context, repo Repo, actor Actor, action Action, target Target) error {
	decision, err := NewGate(repo).Authorize(ctx, actor, action, target)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return decision.Reason
	}
	return nil
}

// payAll awards points to every user once, in ascending id order so
// concurrent resolutions lock user rows in the same order.
func payAll(ctx context.Context, repo Repo, users []uuid.UUID, points int, reason string, ref models.ReputationRef) ([]uuid.UUID, error) {
	paid := uniqueSorted(users)
	for _, id := range paid {
		if _, err := repo.AwardReputation(ctx, id, points, reason, ref); err != nil {
			return nil, err
		}
	}
	return paid, nil
}

func uniqueSorted(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

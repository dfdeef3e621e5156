package moderation

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"qamod/internal/models"
)

// ReputationSummary is a user's cached total with recent ledger entries.
type ReputationSummary struct {
	UserID     uuid.UUID                `json:"user_id"`
	Reputation int                      `json:"reputation"`
	History    []models.ReputationEntry `json:"history"`
}

// Award appends a positive ledger entry for a user and updates the cached
// total in the same transaction. It returns the new total.
func (s *Service) Award(ctx context.Context, userID uuid.UUID, points int, reason string, ref models.ReputationRef) (int, error) {
	if points <= 0 || strings.TrimSpace(reason) == "" {
		return 0, ErrInvalidAward
	}
	var total int
	err := s.run(ctx, func(repo Repo, _ *outbox) error {
		var err error
		total, err = repo.AwardReputation(ctx, userID, points, reason, ref)
		return err
	})
	return total, err
}

// CurrentReputation returns the cached reputation total of a user.
func (s *Service) CurrentReputation(ctx context.Context, userID uuid.UUID) (int, error) {
	var rep int
	err := s.run(ctx, func(repo Repo, _ *outbox) error {
		u, err := repo.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		rep = u.Reputation
		return nil
	})
	return rep, err
}

// ReputationHistory returns the total and the newest ledger entries.
func (s *Service) ReputationHistory(ctx context.Context, userID uuid.UUID, limit int) (*ReputationSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var summary *ReputationSummary
	err := s.run(ctx, func(repo Repo, _ *outbox) error {
		u, err := repo.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		entries, err := repo.GetReputationHistory(ctx, userID, limit)
		if err != nil {
			return err
		}
		if entries == nil {
			entries = []models.ReputationEntry{}
		}
		summary = &ReputationSummary{UserID: u.ID, Reputation: u.Reputation, History: entries}
		return nil
	})
	return summary, err
}

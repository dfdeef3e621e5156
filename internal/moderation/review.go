package moderation

import (
	"context"

	"github.com/google/uuid"

	"qamod/internal/models"
)

// FlagRequest raises content for community review.
type FlagRequest struct {
	Content    models.ContentRef
	ReviewType models.ReviewType
	ActorID    uuid.UUID
}

// ReviewResult is the state of a review item after a flag or vote.
type ReviewResult struct {
	Item     *models.ReviewQueueItem `json:"item"`
	Created  bool                    `json:"created"`
	Resolved bool                    `json:"resolved"`
}

// Flag finds or creates the pending review item for the content and records
// the flagger's own action vote on it. The flag can resolve the item when
// the threshold is already within reach.
func (s *Service) Flag(ctx context.Context, req FlagRequest) (*ReviewResult, error) {
	var result *ReviewResult
	err := s.run(ctx, func(repo Repo, box *outbox) error {
		content, err := repo.GetContent(ctx, req.Content)
		if err != nil {
			return err
		}
		threshold, err := repo.GetReviewThreshold(ctx, req.ReviewType)
		if err != nil {
			return err
		}
		user, err := repo.GetUser(ctx, req.ActorID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, repo, ActorFromUser(user), ActionReviewFlag, Target{
			OwnerID:       content.OwnerID,
			Tags:          content.Tags,
			MinReputation: threshold.MinReputation,
		}); err != nil {
			return err
		}

		item, created, err := repo.LockPendingReviewItem(ctx, req.Content, req.ReviewType, req.ActorID)
		if err != nil {
			return err
		}
		// Checked after the lock so a resolution that committed while we
		// waited is visible. A fresh item is rolled back with the error.
		flagged, err := repo.HasActiveContentFlag(ctx, req.Content, req.ReviewType.FlagType())
		if err != nil {
			return err
		}
		if flagged {
			return ErrAlreadyResolved
		}
		existing, err := repo.GetReviewVote(ctx, item.ID, req.ActorID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyVoted
		}
		if err := repo.UpsertReviewVote(ctx, item.ID, req.ActorID, req.ReviewType.ActionVote()); err != nil {
			return err
		}

		resolved, err := s.settleReview(ctx, repo, box, item, threshold)
		if err != nil {
			return err
		}
		result = &ReviewResult{Item: item, Created: created, Resolved: resolved}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("content flagged",
		"item_id", result.Item.ID, "review_type", req.ReviewType, "actor_id", req.ActorID, "created", result.Created)
	return result, nil
}

// Vote records or changes a reviewer's vote on a pending item. A first vote
// on an item counts toward the reviewer's daily quota; changing it does not.
// Every recorded vote pays the review task reward.
func (s *Service) Vote(ctx context.Context, itemID, actorID uuid.UUID, vote string) (*ReviewResult, error) {
	var result *ReviewResult
	err := s.run(ctx, func(repo Repo, box *outbox) error {
		item, err := repo.LockReviewItem(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.ReviewType.AllowsVote(vote) {
			return ErrInvalidVote
		}
		if !item.IsPending() {
			return ErrAlreadyResolved
		}

		content, err := repo.GetContent(ctx, item.Content())
		if err != nil {
			return err
		}
		threshold, err := repo.GetReviewThreshold(ctx, item.ReviewType)
		if err != nil {
			return err
		}
		// Locking the reviewer serializes their concurrent quota checks.
		user, err := repo.LockUser(ctx, actorID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, repo, ActorFromUser(user), ActionReviewVote, Target{
			OwnerID:       content.OwnerID,
			Tags:          content.Tags,
			MinReputation: threshold.MinReputation,
		}); err != nil {
			return err
		}

		existing, err := repo.GetReviewVote(ctx, item.ID, actorID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Vote == vote {
			return ErrAlreadyVoted
		}
		if existing == nil {
			if err := s.limit.Check(ctx, repo, actorID, item.ReviewType, s.now()); err != nil {
				return err
			}
		}

		if err := repo.UpsertReviewVote(ctx, item.ID, actorID, vote); err != nil {
			return err
		}
		if _, err := repo.AwardReputation(ctx, actorID, models.ReviewTaskPay, models.ReasonReviewCompleted,
			models.ReputationRef{Type: models.RefReviewItem, ID: item.ID}); err != nil {
			return err
		}

		resolved, err := s.settleReview(ctx, repo, box, item, threshold)
		if err != nil {
			return err
		}
		result = &ReviewResult{Item: item, Resolved: resolved}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// settleReview re-tallies a locked pending item and applies the resolution
// when the threshold is met. item is updated in place.
func (s *Service) settleReview(ctx context.Context, repo Repo, box *outbox,
	item *models.ReviewQueueItem, threshold *models.ReviewThreshold) (bool, error) {
	votes, err := repo.GetReviewVotes(ctx, item.ID)
	if err != nil {
		return false, err
	}
	tally := TallyReviewVotes(item.ReviewType, votes)
	if err := repo.UpdateReviewTally(ctx, item.ID, tally.Action, tally.Keep); err != nil {
		return false, err
	}
	item.HideVotes = tally.Action
	item.KeepVotes = tally.Keep

	outcome := ResolveReview(tally, threshold.VotesNeeded)
	if outcome == OutcomePending {
		return false, nil
	}

	now := s.now()
	if err := repo.ResolveReviewItem(ctx, item.ID, outcome.String(), now); err != nil {
		return false, err
	}

	winningVote := item.ReviewType.KeepVote()
	if outcome == OutcomeApproved {
		winningVote = item.ReviewType.ActionVote()
		if err := repo.ApplyContentFlag(ctx, item.Content(), item.ReviewType.FlagType(), item.ID); err != nil {
			return false, err
		}
	}

	var winners []uuid.UUID
	for _, v := range votes {
		if v.Vote == winningVote {
			winners = append(winners, v.UserID)
		}
	}
	paid, err := payAll(ctx, repo, winners, models.ConsensusBonus, models.ReasonCommunityConsensus,
		models.ReputationRef{Type: models.RefReviewItem, ID: item.ID})
	if err != nil {
		return false, err
	}

	if err := repo.InsertModerationLog(ctx, &models.ModerationLogEntry{
		Action:     models.ActionReviewDone,
		TargetType: models.RefReviewItem,
		TargetID:   item.ID,
		Details: map[string]any{
			"outcome":      outcome.String(),
			"review_type":  string(item.ReviewType),
			"content_type": string(item.ContentType),
			"content_id":   item.ContentID.String(),
			"action_votes": tally.Action,
			"keep_votes":   tally.Keep,
		},
	}); err != nil {
		return false, err
	}

	item.Status = outcome.String()
	item.ResolvedAt = &now
	box.add(Event{Kind: EventReviewResolved, Item: item, Voters: paid})
	return true, nil
}

// PendingReviews lists pending items of a review type that the viewer can
// still act on.
func (s *Service) PendingReviews(ctx context.Context, rt models.ReviewType, viewerID uuid.UUID, limit int) ([]models.ReviewQueueItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var items []models.ReviewQueueItem
	err := s.run(ctx, func(repo Repo, _ *outbox) error {
		var err error
		items, err = repo.ListPendingReviewItems(ctx, rt, viewerID, limit)
		return err
	})
	if items == nil {
		items = []models.ReviewQueueItem{}
	}
	return items, err
}

// ReviewItem returns a single review item.
func (s *Service) ReviewItem(ctx context.Context, id uuid.UUID) (*models.ReviewQueueItem, error) {
	var item *models.ReviewQueueItem
	err := s.run(ctx, func(repo Repo, _ *outbox) error {
		var err error
		item, err = repo.GetReviewItem(ctx, id)
		return err
	})
	return item, err
}

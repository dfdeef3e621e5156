package moderation

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"qamod/internal/models"
)

// ReopenVoteResult reports the reopen pool after a vote.
type ReopenVoteResult struct {
	VoteCount   int              `json:"vote_count"`
	VotesNeeded int              `json:"votes_needed"`
	Reopened    bool             `json:"reopened"`
	Question    *models.Question `json:"question"`
}

// ReopenSummary is the current reopen pool of a closed question.
type ReopenSummary struct {
	Question    *models.Question `json:"question"`
	Votes       int              `json:"votes"`
	VotesNeeded int              `json:"votes_needed"`
}

// CastReopenVote records a reopen vote. Reopen votes form a single pool;
// when it reaches the threshold the question reopens, its close metadata is
// cleared, the finished cycle's votes are retired and every reopen voter is
// paid the consensus bonus. There is no single-actor reopen.
func (s *Service) CastReopenVote(ctx context.Context, questionID, userID uuid.UUID, reason string) (*ReopenVoteResult, error) {
	var result *ReopenVoteResult
	err := s.run(ctx, func(repo Repo, box *outbox) error {
		q, err := repo.LockQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if !q.IsClosed() {
			return ErrQuestionOpen
		}

		cfg, err := repo.GetClosureConfig(ctx)
		if err != nil {
			return err
		}
		user, err := repo.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, repo, ActorFromUser(user), ActionReopenVote, Target{
			OwnerID:       q.OwnerID,
			Tags:          q.Tags,
			MinReputation: cfg.MinReputationReopen,
		}); err != nil {
			return err
		}

		inserted, err := repo.InsertReopenVote(ctx, &models.ReopenVote{
			QuestionID: q.ID,
			UserID:     userID,
			Reason:     strings.TrimSpace(reason),
			IsActive:   true,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return ErrAlreadyVoted
		}

		votes, err := repo.GetActiveReopenVotes(ctx, q.ID)
		if err != nil {
			return err
		}
		result = &ReopenVoteResult{
			VoteCount:   len(votes),
			VotesNeeded: cfg.ReopenVotesNeeded,
			Question:    q,
		}
		if !ThresholdMet(len(votes), cfg.ReopenVotesNeeded) {
			return nil
		}

		if err := repo.ReopenQuestion(ctx, q.ID); err != nil {
			return err
		}
		if err := repo.DeactivateCloseVotes(ctx, q.ID); err != nil {
			return err
		}
		if err := repo.DeactivateReopenVotes(ctx, q.ID); err != nil {
			return err
		}

		voters := make([]uuid.UUID, 0, len(votes))
		for _, v := range votes {
			voters = append(voters, v.UserID)
		}
		paid, err := payAll(ctx, repo, voters, models.ConsensusBonus, models.ReasonReopenVoteAccepted,
			models.ReputationRef{Type: models.RefQuestion, ID: q.ID})
		if err != nil {
			return err
		}

		var previous string
		if q.CloseReasonCode != nil {
			previous = *q.CloseReasonCode
		}
		if err := repo.InsertModerationLog(ctx, &models.ModerationLogEntry{
			Action:     models.ActionVoteReopen,
			TargetType: models.RefQuestion,
			TargetID:   q.ID,
			Details: map[string]any{
				"previous_reason_code": previous,
				"votes":                len(votes),
				"voters":               paid,
			},
		}); err != nil {
			return err
		}

		clearClosure(q)
		result.Reopened = true
		box.add(Event{Kind: EventQuestionReopened, Question: q, Voters: paid})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Reopened {
		s.logger.Info("question reopened by vote", "question_id", questionID, "votes", result.VoteCount)
	}
	return result, nil
}

// ReopenVoteSummary returns the active reopen pool of a question.
func (s *Service) ReopenVoteSummary(ctx context.Context, questionID uuid.UUID) (*ReopenSummary, error) {
	var summary *ReopenSummary
	err := s.run(ctx, func(repo Repo, _ *outbox) error {
		q, err := repo.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		cfg, err := repo.GetClosureConfig(ctx)
		if err != nil {
			return err
		}
		votes, err := repo.GetActiveReopenVotes(ctx, questionID)
		if err != nil {
			return err
		}
		summary = &ReopenSummary{Question: q, Votes: len(votes), VotesNeeded: cfg.ReopenVotesNeeded}
		return nil
	})
	return summary, err
}

func clearClosure(q *models.Question) {
	q.Status = models.QuestionOpen
	q.CloseReasonCode = nil
	q.CloseDetails = nil
	q.ClosedBy = nil
	q.ClosedAt = nil
	q.DuplicateOfID = nil
}

package moderation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"qamod/internal/models"
)

// CloseVoteRequest is a vote to close a question for one reason.
type CloseVoteRequest struct {
	QuestionID    uuid.UUID
	UserID        uuid.UUID
	ReasonCode    string
	Details       string
	DuplicateOfID *uuid.UUID
}

// CloseVoteResult reports the tally for the voted reason after the vote.
type CloseVoteResult struct {
	VoteCount   int              `json:"vote_count"`
	VotesNeeded int              `json:"votes_needed"`
	Closed      bool             `json:"closed"`
	Question    *models.Question `json:"question"`
}

// HammerRequest is a single-actor close by a gold badge holder.
type HammerRequest struct {
	QuestionID    uuid.UUID
	ActorID       uuid.UUID
	ReasonCode    string
	Details       string
	DuplicateOfID *uuid.UUID
}

// CloseSummary lists the active close votes per reason on a question.
type CloseSummary struct {
	Question *models.Question     `json:"question"`
	Reasons  []models.ReasonTally `json:"reasons"`
}

// CastCloseVote records a close vote and closes the question when the
// voted reason reaches its threshold. Every voter for the winning reason is
// paid the consensus bonus in the same transaction.
func (s *Service) CastCloseVote(ctx context.Context, req CloseVoteRequest) (*CloseVoteResult, error) {
	var result *CloseVoteResult
	err := s.run(ctx, func(repo Repo, box *outbox) error {
		q, err := repo.LockQuestion(ctx, req.QuestionID)
		if err != nil {
			return err
		}
		if q.IsClosed() {
			return ErrQuestionClosed
		}
		if q.IsOwnedBy(req.UserID) {
			return ErrSelfContent
		}

		reason, err := s.closeReason(ctx, repo, req.ReasonCode)
		if err != nil {
			return err
		}
		cfg, err := repo.GetClosureConfig(ctx)
		if err != nil {
			return err
		}
		user, err := repo.GetUser(ctx, req.UserID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, repo, ActorFromUser(user), ActionCloseVote, Target{
			OwnerID:       q.OwnerID,
			Tags:          q.Tags,
			MinReputation: cfg.MinReputationClose,
		}); err != nil {
			return err
		}

		vote, err := s.newCloseVote(ctx, repo, q, reason, req.UserID, req.Details, req.DuplicateOfID)
		if err != nil {
			return err
		}
		inserted, err := repo.InsertCloseVote(ctx, vote)
		if err != nil {
			return err
		}
		if !inserted {
			return ErrAlreadyVoted
		}

		votes, err := repo.GetActiveCloseVotes(ctx, q.ID, reason.Code)
		if err != nil {
			return err
		}
		needed := cfg.VotesNeededFor(reason)
		result = &CloseVoteResult{VoteCount: len(votes), VotesNeeded: needed, Question: q}

		if !ThresholdMet(len(votes), needed) {
			return nil
		}

		closure := Closure{
			ReasonCode: reason.Code,
			Details:    firstDetails(votes),
			At:         s.now(),
		}
		if reason.Code == models.CloseReasonDuplicate {
			closure.DuplicateOfID = PickDuplicateTarget(votes)
		}
		if err := repo.CloseQuestion(ctx, q.ID, closure); err != nil {
			return err
		}

		voters := make([]uuid.UUID, 0, len(votes))
		for _, v := range votes {
			voters = append(voters, v.UserID)
		}
		paid, err := payAll(ctx, repo, voters, models.ConsensusBonus, models.ReasonCloseVoteAccepted,
			models.ReputationRef{Type: models.RefQuestion, ID: q.ID})
		if err != nil {
			return err
		}

		if err := repo.InsertModerationLog(ctx, &models.ModerationLogEntry{
			Action:     models.ActionVoteClose,
			TargetType: models.RefQuestion,
			TargetID:   q.ID,
			Details: map[string]any{
				"reason_code": reason.Code,
				"votes":       len(votes),
				"voters":      paid,
			},
		}); err != nil {
			return err
		}

		applyClosure(q, closure)
		result.Closed = true
		box.add(Event{Kind: EventQuestionClosed, Question: q, Voters: paid})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Closed {
		s.logger.Info("question closed by vote",
			"question_id", req.QuestionID, "reason_code", req.ReasonCode, "votes", result.VoteCount)
	}
	return result, nil
}

// HammerClose closes a question immediately on the word of a gold tag badge
// holder. It leaves one audit close vote and a moderation log entry and pays
// no consensus bonus.
func (s *Service) HammerClose(ctx context.Context, req HammerRequest) (*models.Question, error) {
	var closed *models.Question
	err := s.run(ctx, func(repo Repo, box *outbox) error {
		q, err := repo.LockQuestion(ctx, req.QuestionID)
		if err != nil {
			return err
		}
		if q.IsClosed() {
			return ErrQuestionClosed
		}

		reason, err := s.closeReason(ctx, repo, req.ReasonCode)
		if err != nil {
			return err
		}
		user, err := repo.GetUser(ctx, req.ActorID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, repo, ActorFromUser(user), ActionHammer, Target{
			OwnerID: q.OwnerID,
			Tags:    q.Tags,
		}); err != nil {
			return err
		}

		vote, err := s.newCloseVote(ctx, repo, q, reason, req.ActorID, req.Details, req.DuplicateOfID)
		if err != nil {
			return err
		}
		vote.IsHammer = true
		if _, err := repo.InsertCloseVote(ctx, vote); err != nil {
			return err
		}

		closure := Closure{
			ReasonCode:    reason.Code,
			Details:       vote.Details,
			ClosedBy:      &req.ActorID,
			DuplicateOfID: vote.DuplicateOfID,
			At:            s.now(),
		}
		if err := repo.CloseQuestion(ctx, q.ID, closure); err != nil {
			return err
		}

		details := map[string]any{
			"reason_code":     reason.Code,
			"gold_badge_used": true,
		}
		if vote.DuplicateOfID != nil {
			details["duplicate_of_id"] = vote.DuplicateOfID.String()
		}
		if err := repo.InsertModerationLog(ctx, &models.ModerationLogEntry{
			ActorID:    &req.ActorID,
			Action:     models.ActionHammerClose,
			TargetType: models.RefQuestion,
			TargetID:   q.ID,
			Details:    details,
		}); err != nil {
			return err
		}

		applyClosure(q, closure)
		closed = q
		box.add(Event{Kind: EventQuestionClosed, Question: q, Hammer: true})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("question closed by hammer",
		"question_id", req.QuestionID, "actor_id", req.ActorID, "reason_code", req.ReasonCode)
	return closed, nil
}

// RetractCloseVote withdraws the caller's active close vote for a reason
// while the question is still open.
func (s *Service) RetractCloseVote(ctx context.Context, questionID, userID uuid.UUID, reasonCode string) error {
	return s.run(ctx, func(repo Repo, _ *outbox) error {
		q, err := repo.LockQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if q.IsClosed() {
			return ErrQuestionClosed
		}
		ok, err := repo.DeactivateCloseVote(ctx, questionID, userID, reasonCode)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVoteNotFound
		}
		return nil
	})
}

// CloseVoteSummary returns the active close tallies of a question.
func (s *Service) CloseVoteSummary(ctx context.Context, questionID uuid.UUID) (*CloseSummary, error) {
	var summary *CloseSummary
	err := s.run(ctx, func(repo Repo, _ *outbox) error {
		q, err := repo.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		cfg, err := repo.GetClosureConfig(ctx)
		if err != nil {
			return err
		}
		counts, err := repo.CountActiveCloseVotes(ctx, questionID)
		if err != nil {
			return err
		}

		summary = &CloseSummary{Question: q, Reasons: []models.ReasonTally{}}
		for code, n := range counts {
			reason, err := repo.GetCloseReason(ctx, code)
			if err != nil && !errors.Is(err, models.ErrNotFound) {
				return err
			}
			summary.Reasons = append(summary.Reasons, models.ReasonTally{
				ReasonCode:  code,
				Votes:       n,
				VotesNeeded: cfg.VotesNeededFor(reason),
			})
		}
		sortTallies(summary.Reasons)
		return nil
	})
	return summary, err
}

func (s *Service) closeReason(ctx context.Context, repo Repo, code string) (*models.CloseReason, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrUnknownReason
	}
	reason, err := repo.GetCloseReason(ctx, code)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrUnknownReason
	}
	if err != nil {
		return nil, err
	}
	if !reason.IsActive {
		return nil, ErrUnknownReason
	}
	return reason, nil
}

// newCloseVote validates the reason-specific inputs and builds the vote row.
func (s *Service) newCloseVote(ctx context.Context, repo Repo, q *models.Question, reason *models.CloseReason,
	userID uuid.UUID, details string, duplicateOf *uuid.UUID) (*models.CloseVote, error) {
	vote := &models.CloseVote{
		QuestionID: q.ID,
		UserID:     userID,
		ReasonCode: reason.Code,
		IsActive:   true,
	}

	details = strings.TrimSpace(details)
	if details != "" {
		vote.Details = &details
	} else if reason.RequiresDetails {
		return nil, ErrDetailsRequired
	}

	if reason.Code == models.CloseReasonDuplicate {
		if duplicateOf == nil || *duplicateOf == q.ID {
			return nil, ErrDuplicateTarget
		}
		if _, err := repo.GetQuestion(ctx, *duplicateOf); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, ErrDuplicateTarget
			}
			return nil, fmt.Errorf("failed to load duplicate target: %w", err)
		}
		target := *duplicateOf
		vote.DuplicateOfID = &target
	}

	return vote, nil
}

func applyClosure(q *models.Question, c Closure) {
	q.Status = models.QuestionClosed
	code := c.ReasonCode
	at := c.At
	q.CloseReasonCode = &code
	q.CloseDetails = c.Details
	q.ClosedBy = c.ClosedBy
	q.ClosedAt = &at
	q.DuplicateOfID = c.DuplicateOfID
}

func sortTallies(t []models.ReasonTally) {
	sort.Slice(t, func(i, j int) bool {
		if t[i].Votes != t[j].Votes {
			return t[i].Votes > t[j].Votes
		}
		return t[i].ReasonCode < t[j].ReasonCode
	})
}

package moderation

import (
	"github.com/google/uuid"

	"qamod/internal/models"
)

// Outcome is the direction a decision instance resolves in.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeApproved
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApproved:
		return models.ReviewApproved
	case OutcomeRejected:
		return models.ReviewRejected
	}
	return models.ReviewPending
}

// ThresholdMet reports whether a single-pool or per-reason count reached
// votesNeeded. A non-positive threshold is treated as one vote.
func ThresholdMet(votes, votesNeeded int) bool {
	if votesNeeded < 1 {
		votesNeeded = 1
	}
	return votes >= votesNeeded
}

// Tally is a review item's vote split.
type Tally struct {
	Action int // hide or outdated
	Keep   int // keep or current
}

// Total returns all votes cast.
func (t Tally) Total() int {
	return t.Action + t.Keep
}

// TallyReviewVotes splits votes by the review type's vocabulary. Votes
// outside the vocabulary are ignored.
func TallyReviewVotes(rt models.ReviewType, votes []models.ReviewVote) Tally {
	var t Tally
	for _, v := range votes {
		switch v.Vote {
		case rt.ActionVote():
			t.Action++
		case rt.KeepVote():
			t.Keep++
		}
	}
	return t
}

// ResolveReview decides a review item. Below votesNeeded nothing resolves.
// At or above it the action side must be strictly ahead; ties reject.
func ResolveReview(t Tally, votesNeeded int) Outcome {
	if !ThresholdMet(t.Total(), votesNeeded) {
		return OutcomePending
	}
	if t.Action > t.Keep {
		return OutcomeApproved
	}
	return OutcomeRejected
}

// TallyByReason counts votes per reason code. Reasons never pool.
func TallyByReason(votes []models.CloseVote) map[string]int {
	tally := make(map[string]int)
	for _, v := range votes {
		if v.IsActive {
			tally[v.ReasonCode]++
		}
	}
	return tally
}

// PickDuplicateTarget chooses the duplicate target named by most votes,
// breaking ties by the earliest vote. votes must be ordered oldest first.
func PickDuplicateTarget(votes []models.CloseVote) *uuid.UUID {
	counts := make(map[uuid.UUID]int)
	var order []uuid.UUID
	for _, v := range votes {
		if v.DuplicateOfID == nil {
			continue
		}
		id := *v.DuplicateOfID
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}

	var best *uuid.UUID
	for i := range order {
		if best == nil || counts[order[i]] > counts[*best] {
			best = &order[i]
		}
	}
	return best
}

// firstDetails returns the earliest non-empty details among votes.
func firstDetails(votes []models.CloseVote) *string {
	for _, v := range votes {
		if v.Details != nil && *v.Details != "" {
			return v.Details
		}
	}
	return nil
}

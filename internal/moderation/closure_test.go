package moderation_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qamod/internal/models"
	"qamod/internal/moderation"
)

func closeVote(q, user uuid.UUID, reason string) moderation.CloseVoteRequest {
	return moderation.CloseVoteRequest{QuestionID: q, UserID: user, ReasonCode: reason}
}

func TestCloseVoteReachesThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.store.AddUser("owner", 1)
	q := f.store.AddQuestion(owner, "pricing")
	voters := f.users(3, 500)

	for i, v := range voters {
		res, err := f.svc.CastCloseVote(ctx, closeVote(q, v, "stale-prices"))
		require.NoError(t, err)
		assert.Equal(t, i+1, res.VoteCount)
		assert.Equal(t, 3, res.VotesNeeded)
		assert.Equal(t, i == 2, res.Closed)
	}

	closed := f.store.Question(q)
	assert.Equal(t, models.QuestionClosed, closed.Status)
	require.NotNil(t, closed.CloseReasonCode)
	assert.Equal(t, "stale-prices", *closed.CloseReasonCode)
	assert.Nil(t, closed.ClosedBy)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, f.now, *closed.ClosedAt)

	for _, v := range voters {
		assert.Equal(t, 502, f.store.Reputation(v))
		ledger := f.store.Ledger(v)
		require.Len(t, ledger, 1)
		assert.Equal(t, models.ConsensusBonus, ledger[0].Points)
		assert.Equal(t, models.ReasonCloseVoteAccepted, ledger[0].Reason)
		assert.Equal(t, models.RefQuestion, ledger[0].ReferenceType)
		assert.Equal(t, q, ledger[0].ReferenceID)
	}
	assert.Equal(t, 1, f.store.Reputation(owner))

	log := f.store.ModerationLog()
	require.Len(t, log, 1)
	assert.Equal(t, models.ActionVoteClose, log[0].Action)
	assert.Equal(t, q, log[0].TargetID)

	events := f.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, moderation.EventQuestionClosed, events[0].Kind)
	assert.False(t, events[0].Hammer)
	assert.ElementsMatch(t, voters, events[0].Voters)
}

func TestCloseVoteOnOwnQuestion(t *testing.T) {
	f := newFixture(t)
	owner := f.store.AddUser("owner", 10000)
	q := f.store.AddQuestion(owner, "go")

	_, err := f.svc.CastCloseVote(context.Background(), closeVote(q, owner, "needs-focus"))
	assert.ErrorIs(t, err, moderation.ErrSelfContent)
	assert.Equal(t, moderation.KindAuthorization, moderation.KindOf(err))
	assert.Empty(t, f.store.CloseVotes(q))
}

func TestCloseReasonsDoNotPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.store.AddQuestion(f.store.AddUser("owner", 1), "go")
	v := f.users(4, 500)

	for _, req := range []moderation.CloseVoteRequest{
		closeVote(q, v[0], "needs-focus"),
		closeVote(q, v[1], "needs-focus"),
	} {
		_, err := f.svc.CastCloseVote(ctx, req)
		require.NoError(t, err)
	}
	res, err := f.svc.CastCloseVote(ctx, closeVote(q, v[2], "opinion-based"))
	require.NoError(t, err)
	assert.False(t, res.Closed)
	assert.Equal(t, 1, res.VoteCount)

	summary, err := f.svc.CloseVoteSummary(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []models.ReasonTally{
		{ReasonCode: "needs-focus", Votes: 2, VotesNeeded: 3},
		{ReasonCode: "opinion-based", Votes: 1, VotesNeeded: 3},
	}, summary.Reasons)

	res, err = f.svc.CastCloseVote(ctx, closeVote(q, v[3], "needs-focus"))
	require.NoError(t, err)
	assert.True(t, res.Closed)
	assert.Equal(t, "needs-focus", *f.store.Question(q).CloseReasonCode)

	// Only the winning reason's voters are paid.
	assert.Equal(t, 502, f.store.Reputation(v[0]))
	assert.Equal(t, 502, f.store.Reputation(v[1]))
	assert.Equal(t, 500, f.store.Reputation(v[2]))
	assert.Equal(t, 502, f.store.Reputation(v[3]))
}

func TestCloseVoteAlreadyVoted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.store.AddQuestion(f.store.AddUser("owner", 1), "go")
	voter := f.store.AddUser("voter", 500)

	_, err := f.svc.CastCloseVote(ctx, closeVote(q, voter, "needs-focus"))
	require.NoError(t, err)
	_, err = f.svc.CastCloseVote(ctx, closeVote(q, voter, "needs-focus"))
	assert.ErrorIs(t, err, moderation.ErrAlreadyVoted)

	// A different reason is a separate vote.
	_, err = f.svc.CastCloseVote(ctx, closeVote(q, voter, "opinion-based"))
	assert.NoError(t, err)
	assert.Len(t, f.store.CloseVotes(q), 2)
}

func TestCloseVoteReputationGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.store.AddQuestion(f.store.AddUser("owner", 1), "go", "sql")

	novice := f.store.AddUser("novice", 10)
	_, err := f.svc.CastCloseVote(ctx, closeVote(q, novice, "needs-focus"))
	var repErr *moderation.ReputationError
	require.ErrorAs(t, err, &repErr)
	assert.Equal(t, 500, repErr.Required)
	assert.Equal(t, 10, repErr.Current)

	expert := f.store.AddUser("expert", 10)
	f.store.GrantBadge(expert, "sql", models.BadgeGold)
	res, err := f.svc.CastCloseVote(ctx, closeVote(q, expert, "needs-focus"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.VoteCount)
}

func TestCloseVoteBadgeCheckUsesTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.store.AddQuestion(f.store.AddUser("owner", 1), "sql")
	expert := f.store.AddUser("expert", 10)
	f.store.GrantBadge(expert, "sql", models.BadgeGold)

	boom := errors.New("badge lookup failed")
	f.store.FailOn["HasTagBadge"] = boom
	_, err := f.svc.CastCloseVote(ctx, closeVote(q, expert, "needs-focus"))
	require.ErrorIs(t, err, boom)
	assert.Empty(t, f.store.CloseVotes(q))

	res, err := f.svc.CastCloseVote(ctx, closeVote(q, expert, "needs-focus"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.VoteCount)
}

func TestCloseVoteValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.store.AddUser("owner", 1)
	q := f.store.AddQuestion(owner, "go")
	voter := f.store.AddUser("voter", 500)
	f.store.SetCloseReason(models.CloseReason{Code: "retired", Label: "Retired", IsActive: false})
	missing := uuid.New()

	tests := []struct {
		name string
		req  moderation.CloseVoteRequest
		want error
	}{
		{"unknown reason", closeVote(q, voter, "no-such-reason"), moderation.ErrUnknownReason},
		{"empty reason", closeVote(q, voter, " "), moderation.ErrUnknownReason},
		{"inactive reason", closeVote(q, voter, "retired"), moderation.ErrUnknownReason},
		{"details required", closeVote(q, voter, "off-topic"), moderation.ErrDetailsRequired},
		{"blank details", moderation.CloseVoteRequest{QuestionID: q, UserID: voter, ReasonCode: "off-topic", Details: "   "}, moderation.ErrDetailsRequired},
		{"duplicate without target", closeVote(q, voter, "duplicate"), moderation.ErrDuplicateTarget},
		{"duplicate of itself", moderation.CloseVoteRequest{QuestionID: q, UserID: voter, ReasonCode: "duplicate", DuplicateOfID: &q}, moderation.ErrDuplicateTarget},
		{"duplicate of missing question", moderation.CloseVoteRequest{QuestionID: q, UserID: voter, ReasonCode: "duplicate", DuplicateOfID: &missing}, moderation.ErrDuplicateTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CastCloseVote(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, moderation.KindInvalid, moderation.KindOf(err))
		})
	}
	assert.Empty(t, f.store.CloseVotes(q))

	_, err := f.svc.CastCloseVote(ctx, closeVote(uuid.New(), voter, "needs-focus"))
	assert.Equal(t, moderation.KindNotFound, moderation.KindOf(err))
}

func TestPerReasonThresholdOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	two := 2
	f.store.SetCloseReason(models.CloseReason{Code: "needs-focus", Label: "Needs more focus", VotesNeeded: &two, IsActive: true})
	q := f.store.AddQuestion(f.store.AddUser("owner", 1), "go")
	v := f.users(2, 500)

	res, err := f.svc.CastCloseVote(ctx, closeVote(q, v[0], "needs-focus"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.VotesNeeded)
	assert.False(t, res.Closed)

	res, err = f.svc.CastCloseVote(ctx, closeVote(q, v[1], "needs-focus"))
	require.NoError(t, err)
	assert.True(t, res.Closed)
}

func TestDuplicateClosure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.store.AddUser("owner", 1)
	q := f.store.AddQuestion(owner, "go")
	first := f.store.AddQuestion(owner, "go")
	second := f.store.AddQuestion(owner, "go")
	v := f.users(3, 500)

	for i, target := range []uuid.UUID{first, second, second} {
		target := target
		_, err := f.svc.CastCloseVote(ctx, moderation.CloseVoteRequest{
			QuestionID:    q,
			UserID:        v[i],
			ReasonCode:    models.CloseReasonDuplicate,
			DuplicateOfID: &target,
		})
		require.NoError(t, err)
	}

	closed := f.store.Question(q)
	assert.Equal(t, models.QuestionClosed, closed.Status)
	require.NotNil(t, closed.DuplicateOfID)
	assert.Equal(t, second, *closed.DuplicateOfID)
}

func TestClosureKeepsEarliestDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.store.AddQuestion(f.store.AddUser("owner", 1), "go")
	v := f.users(3, 500)

	for i, details := range []string{"belongs on the meta site", "about hardware", "not programming"} {
		_, err := f.svc.CastCloseVote(ctx, moderation.CloseVoteRequest{
			QuestionID: q, UserID: v[i], ReasonCode: "off-topic", Details: details,
		})
		require.NoError(t, err)
	}

	closed := f.store.Question(q)
	require.NotNil(t, closed.CloseDetails)
	assert.Equal(t, "belongs on the meta site", *closed.CloseDetails)
}

func TestRetractCloseVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.store.AddQuestion(f.store.AddUser("owner", 1), "go")
	voter := f.store.AddUser("voter", 500)

	_, err := f.svc.CastCloseVote(ctx, closeVote(q, voter, "needs-focus"))
	require.NoError(t, err)
	require.NoError(t, f.svc.RetractCloseVote(ctx, q, voter, "needs-focus"))

	summary, err := f.svc.CloseVoteSummary(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, summary.Reasons)

	err = f.svc.RetractCloseVote(ctx, q, voter, "needs-focus")
	assert.ErrorIs(t, err, moderation.ErrVoteNotFound)
	assert.Equal(t, moderation.KindNotFound, moderation.KindOf(err))

	res, err := f.svc.CastCloseVote(ctx, closeVote(q, voter, "needs-focus"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.VoteCount)
}

func TestVotesAfterClosureAreRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.store.AddQuestion(f.store.AddUser("owner", 1), "go")
	v := f.users(4, 500)

	for _, voter := range v[:3] {
		_, err := f.svc.CastCloseVote(ctx, closeVote(q, voter, "needs-focus"))
		require.NoError(t, err)
	}

	_, err := f.svc.CastCloseVote(ctx, closeVote(q, v[3], "needs-focus"))
	assert.ErrorIs(t, err, moderation.ErrQuestionClosed)
	assert.Equal(t, moderation.KindConflict, moderation.KindOf(err))
	assert.Equal(t, 500, f.store.Reputation(v[3]))

	err = f.svc.RetractCloseVote(ctx, q, v[0], "needs-focus")
	assert.ErrorIs(t, err, moderation.ErrQuestionClosed)

	// Voters were paid exactly once.
	for _, voter := range v[:3] {
		assert.Len(t, f.store.Ledger(voter), 1)
	}
}

func TestHammerClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.store.AddUser("owner", 1)
	q := f.store.AddQuestion(owner, "go", "sql")
	gold := f.store.AddUser("gold", 1)
	f.store.GrantBadge(gold, "go", models.BadgeGold)
	voter := f.store.AddUser("voter", 500)

	_, err := f.svc.CastCloseVote(ctx, closeVote(q, voter, "needs-focus"))
	require.NoError(t, err)

	closed, err := f.svc.HammerClose(ctx, moderation.HammerRequest{QuestionID: q, ActorID: gold, ReasonCode: "needs-focus"})
	require.NoError(t, err)
	assert.Equal(t, models.QuestionClosed, closed.Status)
	require.NotNil(t, closed.ClosedBy)
	assert.Equal(t, gold, *closed.ClosedBy)
	assert.Equal(t, closed.Status, f.store.Question(q).Status)

	// No consensus bonus for anyone.
	assert.Equal(t, 1, f.store.Reputation(gold))
	assert.Equal(t, 500, f.store.Reputation(voter))
	assert.Empty(t, f.store.Ledger(gold))

	var hammerVotes int
	for _, v := range f.store.CloseVotes(q) {
		if v.IsHammer {
			hammerVotes++
			assert.Equal(t, gold, v.UserID)
		}
	}
	assert.Equal(t, 1, hammerVotes)

	log := f.store.ModerationLog()
	require.Len(t, log, 1)
	assert.Equal(t, models.ActionHammerClose, log[0].Action)
	require.NotNil(t, log[0].ActorID)
	assert.Equal(t, gold, *log[0].ActorID)
	assert.Equal(t, true, log[0].Details["gold_badge_used"])

	events := f.events.all()
	require.Len(t, events, 1)
	assert.True(t, events[0].Hammer)
	assert.Empty(t, events[0].Voters)

	_, err = f.svc.HammerClose(ctx, moderation.HammerRequest{QuestionID: q, ActorID: gold, ReasonCode: "needs-focus"})
	assert.ErrorIs(t, err, moderation.ErrQuestionClosed)
}

func TestHammerRequiresGold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.store.AddUser("owner", 1)
	q := f.store.AddQuestion(owner, "go")
	silver := f.store.AddUser("silver", 100000)
	f.store.GrantBadge(silver, "go", models.BadgeSilver)

	_, err := f.svc.HammerClose(ctx, moderation.HammerRequest{QuestionID: q, ActorID: silver, ReasonCode: "needs-focus"})
	var badgeErr *moderation.BadgeError
	require.ErrorAs(t, err, &badgeErr)
	assert.Equal(t, models.BadgeGold, badgeErr.Tier)
	assert.Equal(t, models.QuestionOpen, f.store.Question(q).Status)
	assert.Empty(t, f.store.CloseVotes(q))

	f.store.GrantBadge(owner, "go", models.BadgeGold)
	_, err = f.svc.HammerClose(ctx, moderation.HammerRequest{QuestionID: q, ActorID: owner, ReasonCode: "needs-focus"})
	assert.ErrorIs(t, err, moderation.ErrSelfContent)
}

func TestHammerDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.store.AddUser("owner", 1)
	q := f.store.AddQuestion(owner, "go")
	target := f.store.AddQuestion(owner, "go")
	gold := f.store.AddUser("gold", 1)
	f.store.GrantBadge(gold, "go", models.BadgeGold)

	closed, err := f.svc.HammerClose(ctx, moderation.HammerRequest{
		QuestionID: q, ActorID: gold, ReasonCode: models.CloseReasonDuplicate, DuplicateOfID: &target,
	})
	require.NoError(t, err)
	require.NotNil(t, closed.DuplicateOfID)
	assert.Equal(t, target, *closed.DuplicateOfID)
	assert.Equal(t, target.String(), f.store.ModerationLog()[0].Details["duplicate_of_id"])
}

func TestConcurrentCloseVotesResolveOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	q := f.store.AddQuestion(f.store.AddUser("owner", 1), "go")
	voters := f.users(10, 500)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		closed  int
		already int
	)
	for _, v := range voters {
		wg.Add(1)
		go func(v uuid.UUID) {
			defer wg.Done()
			res, err := f.svc.CastCloseVote(ctx, closeVote(q, v, "needs-focus"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
				if res.Closed {
					closed++
				}
			case errors.Is(err, moderation.ErrQuestionClosed):
				already++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(v)
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 1, closed)
	assert.Equal(t, 7, already)
	assert.Len(t, f.events.all(), 1)

	var paid int
	for _, v := range voters {
		paid += len(f.store.Ledger(v))
	}
	assert.Equal(t, 3, paid)
}

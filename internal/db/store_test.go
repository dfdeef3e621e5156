package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"qamod/internal/models"
	"qamod/internal/moderation"
)

func TestServiceCloseByVote(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	svc := moderation.NewService(db, nil, nil, moderation.Config{})
	owner := createUser(t, db, "owner", 1)
	q := createQuestion(t, db, owner, "go")

	for i := 0; i < 3; i++ {
		voter := createUser(t, db, "voter-"+string(rune('a'+i)), 500)
		res, err := svc.CastCloseVote(ctx, moderation.CloseVoteRequest{QuestionID: q, UserID: voter, ReasonCode: "needs-focus"})
		if err != nil {
			t.Fatalf("CastCloseVote() error = %v", err)
		}
		if res.Closed != (i == 2) {
			t.Errorf("vote %d closed = %v", i+1, res.Closed)
		}
	}

	got, err := db.GetQuestion(ctx, q)
	if err != nil {
		t.Fatalf("GetQuestion() error = %v", err)
	}
	if !got.IsClosed() {
		t.Error("question not closed after three votes")
	}

	drift, err := db.FindReputationDrift(ctx, 10)
	if err != nil {
		t.Fatalf("FindReputationDrift() error = %v", err)
	}
	// Seeded reputations are not ledger backed, so every voter drifts by
	// exactly the seed amount.
	for _, d := range drift {
		if d.Cached-d.LedgerSum != 500 && d.UserID != owner {
			t.Errorf("user %v drift %d, want seed of 500", d.UserID, d.Cached-d.LedgerSum)
		}
	}
}

func TestServiceConcurrentFlags(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	svc := moderation.NewService(db, nil, nil, moderation.Config{})
	owner := createUser(t, db, "owner", 1)
	ref := models.ContentRef{Type: models.ContentAnswer, ID: createAnswer(t, db, owner, createQuestion(t, db, owner, "go"))}

	const flaggers = 4
	var wg sync.WaitGroup
	errs := make(chan error, flaggers)
	for i := 0; i < flaggers; i++ {
		flagger := createUser(t, db, "flagger-"+string(rune('a'+i)), 100)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Flag(ctx, moderation.FlagRequest{Content: ref, ReviewType: models.ReviewSpamScam, ActorID: flagger})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil && !errors.Is(err, moderation.ErrStoreUnavailable) {
			t.Errorf("Flag() error = %v", err)
		}
	}

	var items int
	if err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM review_queue_items WHERE content_id = $1 AND review_type = $2
	`, ref.ID, models.ReviewSpamScam).Scan(&items); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if items != 1 {
		t.Errorf("concurrent flags created %d items, want 1", items)
	}
}

// A badge-gated vote must finish on the transaction's own connection. With a
// single-connection pool any second acquire would block until the deadline.
func TestServiceBadgeGateOnSingleConnection(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := createUser(t, db, "owner", 1)
	q := createQuestion(t, db, owner, "go")
	hammered := createQuestion(t, db, owner, "go")
	expert := createUser(t, db, "expert", 1)
	if err := db.GrantTagBadge(ctx, expert, "go", models.BadgeGold); err != nil {
		t.Fatalf("GrantTagBadge() error = %v", err)
	}

	poolCfg, err := pgxpool.ParseConfig(testConnString())
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	poolCfg.MaxConns = 1
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	defer pool.Close()
	single := &DB{Queries: Queries{q: pool}, Pool: pool, opts: Options{LockTimeout: 2 * time.Second}}

	svc := moderation.NewService(single, nil, nil, moderation.Config{})
	deadline, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := svc.CastCloseVote(deadline, moderation.CloseVoteRequest{QuestionID: q, UserID: expert, ReasonCode: "needs-focus"})
	if err != nil {
		t.Fatalf("CastCloseVote() error = %v", err)
	}
	if res.VoteCount != 1 {
		t.Errorf("vote count = %d, want 1", res.VoteCount)
	}

	if _, err := svc.HammerClose(deadline, moderation.HammerRequest{QuestionID: hammered, ActorID: expert, ReasonCode: "needs-focus"}); err != nil {
		t.Fatalf("HammerClose() error = %v", err)
	}
}

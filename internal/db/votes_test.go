package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"qamod/internal/models"
	"qamod/internal/moderation"
)

func TestInsertCloseVote_ActiveUniqueness(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := createUser(t, db, "owner", 1)
	voter := createUser(t, db, "voter", 500)
	q := createQuestion(t, db, owner, "go")

	vote := func(reason string) bool {
		t.Helper()
		inserted, err := db.InsertCloseVote(ctx, &models.CloseVote{QuestionID: q, UserID: voter, ReasonCode: reason})
		if err != nil {
			t.Fatalf("InsertCloseVote() error = %v", err)
		}
		return inserted
	}

	if !vote("needs-focus") {
		t.Fatal("first vote was not inserted")
	}
	if vote("needs-focus") {
		t.Error("repeat vote for the same reason was inserted")
	}
	if !vote("opinion-based") {
		t.Error("vote for a second reason was not inserted")
	}

	counts, err := db.CountActiveCloseVotes(ctx, q)
	if err != nil {
		t.Fatalf("CountActiveCloseVotes() error = %v", err)
	}
	if counts["needs-focus"] != 1 || counts["opinion-based"] != 1 {
		t.Errorf("CountActiveCloseVotes() = %v", counts)
	}

	ok, err := db.DeactivateCloseVote(ctx, q, voter, "needs-focus")
	if err != nil || !ok {
		t.Fatalf("DeactivateCloseVote() = %v, %v", ok, err)
	}
	if !vote("needs-focus") {
		t.Error("vote after retraction was not inserted")
	}
}

func TestInsertCloseVote_HammerMarksExistingVote(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := createUser(t, db, "owner", 1)
	voter := createUser(t, db, "voter", 500)
	q := createQuestion(t, db, owner, "go")

	if _, err := db.InsertCloseVote(ctx, &models.CloseVote{QuestionID: q, UserID: voter, ReasonCode: "needs-focus"}); err != nil {
		t.Fatalf("InsertCloseVote() error = %v", err)
	}
	hammer := &models.CloseVote{QuestionID: q, UserID: voter, ReasonCode: "needs-focus", IsHammer: true}
	inserted, err := db.InsertCloseVote(ctx, hammer)
	if err != nil {
		t.Fatalf("InsertCloseVote() error = %v", err)
	}
	if inserted {
		t.Error("hammer vote inserted a second row")
	}

	votes, err := db.GetActiveCloseVotes(ctx, q, "needs-focus")
	if err != nil {
		t.Fatalf("GetActiveCloseVotes() error = %v", err)
	}
	if len(votes) != 1 || !votes[0].IsHammer {
		t.Errorf("GetActiveCloseVotes() = %+v, want one hammer vote", votes)
	}
}

func TestCloseAndReopenQuestion(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := createUser(t, db, "owner", 1)
	closer := createUser(t, db, "closer", 1)
	q := createQuestion(t, db, owner, "sql", "go")
	target := createQuestion(t, db, owner, "go")
	details := "asked before"

	inTx(t, db, func(tx *Tx) error {
		return tx.CloseQuestion(ctx, q, moderation.Closure{
			ReasonCode:    models.CloseReasonDuplicate,
			Details:       &details,
			ClosedBy:      &closer,
			DuplicateOfID: &target,
			At:            time.Now(),
		})
	})

	got, err := db.GetQuestion(ctx, q)
	if err != nil {
		t.Fatalf("GetQuestion() error = %v", err)
	}
	if !got.IsClosed() || got.CloseReasonCode == nil || *got.CloseReasonCode != models.CloseReasonDuplicate {
		t.Errorf("question not closed as duplicate: %+v", got)
	}
	if got.DuplicateOfID == nil || *got.DuplicateOfID != target {
		t.Errorf("duplicate_of_id = %v, want %v", got.DuplicateOfID, target)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Tags[1] != "sql" {
		t.Errorf("tags = %v, want [go sql]", got.Tags)
	}

	// Closing twice is refused by the store.
	err = db.WithTx(ctx, func(repo moderation.Repo) error {
		return repo.CloseQuestion(ctx, q, moderation.Closure{ReasonCode: "needs-focus", At: time.Now()})
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second CloseQuestion() error = %v, want not found", err)
	}

	inTx(t, db, func(tx *Tx) error { return tx.ReopenQuestion(ctx, q) })

	got, err = db.GetQuestion(ctx, q)
	if err != nil {
		t.Fatalf("GetQuestion() error = %v", err)
	}
	if got.IsClosed() || got.CloseReasonCode != nil || got.ClosedBy != nil || got.DuplicateOfID != nil {
		t.Errorf("reopened question kept close metadata: %+v", got)
	}
}

func TestReopenVotes(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := createUser(t, db, "owner", 1)
	voter := createUser(t, db, "voter", 500)
	q := createQuestion(t, db, owner, "go")

	inserted, err := db.InsertReopenVote(ctx, &models.ReopenVote{QuestionID: q, UserID: voter, Reason: "edited"})
	if err != nil || !inserted {
		t.Fatalf("InsertReopenVote() = %v, %v", inserted, err)
	}
	inserted, err = db.InsertReopenVote(ctx, &models.ReopenVote{QuestionID: q, UserID: voter})
	if err != nil || inserted {
		t.Errorf("repeat InsertReopenVote() = %v, %v, want false", inserted, err)
	}

	if err := db.DeactivateReopenVotes(ctx, q); err != nil {
		t.Fatalf("DeactivateReopenVotes() error = %v", err)
	}
	votes, err := db.GetActiveReopenVotes(ctx, q)
	if err != nil {
		t.Fatalf("GetActiveReopenVotes() error = %v", err)
	}
	if len(votes) != 0 {
		t.Errorf("GetActiveReopenVotes() returned %d votes after deactivation", len(votes))
	}

	inserted, err = db.InsertReopenVote(ctx, &models.ReopenVote{QuestionID: q, UserID: voter})
	if err != nil || !inserted {
		t.Errorf("InsertReopenVote() after retirement = %v, %v, want true", inserted, err)
	}
}

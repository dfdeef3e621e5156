package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"qamod/internal/models"
)

func TestUpsertUser_Create(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user := &models.User{Sub: "test-sub-123", Name: "Test User"}
	if err := db.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}

	if user.ID == uuid.Nil {
		t.Error("UpsertUser() did not set ID")
	}
	if user.Reputation != 0 {
		t.Errorf("UpsertUser() reputation = %d, want 0", user.Reputation)
	}
}

func TestUpsertUser_Update(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user := &models.User{Sub: "test-sub-456", Name: "Original Name"}
	if err := db.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	if _, err := db.AwardReputation(ctx, user.ID, 15, "Upvote", models.ReputationRef{Type: models.RefQuestion, ID: uuid.New()}); err != nil {
		t.Fatalf("AwardReputation() error = %v", err)
	}

	updated := &models.User{Sub: "test-sub-456", Name: "Updated Name"}
	if err := db.UpsertUser(ctx, updated); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}

	if updated.ID != user.ID {
		t.Errorf("UpsertUser() ID = %v, want %v", updated.ID, user.ID)
	}
	if updated.Reputation != 15 {
		t.Errorf("UpsertUser() reputation = %d, want 15 (reputation is engine-owned)", updated.Reputation)
	}

	got, err := db.GetUserBySub(ctx, "test-sub-456")
	if err != nil {
		t.Fatalf("GetUserBySub() error = %v", err)
	}
	if got.Name != "Updated Name" {
		t.Errorf("GetUserBySub() name = %q, want %q", got.Name, "Updated Name")
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := db.GetUser(context.Background(), uuid.New())
	if !errors.Is(err, ErrUserNotFound) || !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetUser() error = %v, want ErrUserNotFound", err)
	}
}

func TestAwardReputation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	userID := createUser(t, db, "earner", 0)
	ref := models.ReputationRef{Type: models.RefQuestion, ID: uuid.New()}

	for _, points := range []int{2, 1, 2} {
		if _, err := db.AwardReputation(ctx, userID, points, models.ReasonCloseVoteAccepted, ref); err != nil {
			t.Fatalf("AwardReputation() error = %v", err)
		}
	}

	user, err := db.GetUser(ctx, userID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if user.Reputation != 5 {
		t.Errorf("reputation = %d, want 5", user.Reputation)
	}

	sum, err := db.SumReputationHistory(ctx, userID)
	if err != nil {
		t.Fatalf("SumReputationHistory() error = %v", err)
	}
	if sum != user.Reputation {
		t.Errorf("ledger sum = %d, cached = %d", sum, user.Reputation)
	}

	history, err := db.GetReputationHistory(ctx, userID, 2)
	if err != nil {
		t.Fatalf("GetReputationHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("GetReputationHistory() returned %d entries, want 2", len(history))
	}
	if history[0].Points != 2 || history[1].Points != 1 {
		t.Errorf("GetReputationHistory() not newest first: %+v", history)
	}
	if history[0].ReferenceID != ref.ID {
		t.Errorf("reference id = %v, want %v", history[0].ReferenceID, ref.ID)
	}

	if _, err := db.AwardReputation(ctx, uuid.New(), 2, "x", ref); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("AwardReputation() unknown user error = %v, want ErrUserNotFound", err)
	}
}

func TestFindReputationDrift(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	consistent := createUser(t, db, "consistent", 0)
	drifted := createUser(t, db, "drifted", 40)

	if _, err := db.AwardReputation(ctx, consistent, 2, models.ReasonReviewCompleted,
		models.ReputationRef{Type: models.RefReviewItem, ID: uuid.New()}); err != nil {
		t.Fatalf("AwardReputation() error = %v", err)
	}

	drift, err := db.FindReputationDrift(ctx, 10)
	if err != nil {
		t.Fatalf("FindReputationDrift() error = %v", err)
	}
	if len(drift) != 1 {
		t.Fatalf("FindReputationDrift() returned %d users, want 1", len(drift))
	}
	if drift[0].UserID != drifted || drift[0].Cached != 40 || drift[0].LedgerSum != 0 {
		t.Errorf("FindReputationDrift() = %+v", drift[0])
	}
}

// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"qamod/internal/db"
)

// TestDB connects to the database named by TEST_DATABASE_URL, runs the
// migrations and returns a cleanup function. The test is skipped when the
// variable is unset.
func TestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString, db.Options{LockTimeout: 2 * time.Second, MaxRetries: 3})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Clean before test
	CleanupTestData(ctx, database.Pool)

	cleanup := func() {
		CleanupTestData(ctx, database.Pool)
		database.Close()
	}

	return database, cleanup
}

// CleanupTestData removes all test data from the database. Seeded
// configuration tables are left alone.
func CleanupTestData(ctx context.Context, pool *pgxpool.Pool) {
	// Delete in order to respect foreign keys
	for _, table := range []string{
		"moderation_log",
		"reputation_history",
		"content_flags",
		"review_votes",
		"review_queue_items",
		"reopen_votes",
		"close_votes",
		"comments",
		"answers",
		"question_tags",
		"questions",
		"user_tag_badges",
		"users",
	} {
		pool.Exec(ctx, "DELETE FROM "+table)
	}
}

// CreateTestUser creates a test user with the given reputation and returns its ID.
func CreateTestUser(t *testing.T, database *db.DB, sub string, reputation int) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	var id uuid.UUID
	err := database.Pool.QueryRow(ctx, `
		INSERT INTO users (sub, name, reputation)
		VALUES ($1, $2, $3)
		ON CONFLICT (sub) DO UPDATE SET reputation = EXCLUDED.reputation
		RETURNING id
	`, sub, fmt.Sprintf("Test User %s", sub), reputation).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return id
}

// CreateTestQuestion creates an open question with tags and returns its ID.
func CreateTestQuestion(t *testing.T, database *db.DB, owner uuid.UUID, tags ...string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	var id uuid.UUID
	err := database.Pool.QueryRow(ctx, `
		INSERT INTO questions (owner_id, title) VALUES ($1, $2) RETURNING id
	`, owner, "Test question").Scan(&id)
	if err != nil {
		t.Fatalf("failed to create test question: %v", err)
	}

	for _, tag := range tags {
		if _, err := database.Pool.Exec(ctx, `
			INSERT INTO question_tags (question_id, tag) VALUES ($1, $2)
		`, id, tag); err != nil {
			t.Fatalf("failed to tag test question: %v", err)
		}
	}

	return id
}

// CreateTestAnswer creates an answer on a question and returns its ID.
func CreateTestAnswer(t *testing.T, database *db.DB, owner, questionID uuid.UUID) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := database.Pool.QueryRow(context.Background(), `
		INSERT INTO answers (question_id, owner_id) VALUES ($1, $2) RETURNING id
	`, questionID, owner).Scan(&id)
	if err != nil {
		t.Fatalf("failed to create test answer: %v", err)
	}

	return id
}

package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"qamod/internal/models"
)

const reviewItemColumns = `
	id, content_type, content_id, review_type, flagged_by, status,
	hide_votes, keep_votes, created_at, resolved_at
`

func scanReviewItem(row pgx.Row) (*models.ReviewQueueItem, error) {
	var item models.ReviewQueueItem
	err := row.Scan(
		&item.ID,
		&item.ContentType,
		&item.ContentID,
		&item.ReviewType,
		&item.FlaggedBy,
		&item.Status,
		&item.HideVotes,
		&item.KeepVotes,
		&item.CreatedAt,
		&item.ResolvedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReviewItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// pendingItemAttempts bounds how often LockPendingReviewItem re-inserts when
// the pending row it waited on was resolved under it.
const pendingItemAttempts = 3

// errPendingItemRace is returned when every attempt lost the race to a
// resolving vote. It is retryable, so WithTx reruns the whole transaction.
var errPendingItemRace = errors.New("pending review item resolved concurrently")

// LockPendingReviewItem finds or creates the single pending item for the
// content in a review type and locks it. Concurrent flaggers race on the
// partial unique index; the loser's insert is a no-op and it locks the
// winner's row. If that row stops being pending while we wait on its lock,
// the insert runs again against the committed state.
func (d *Queries) LockPendingReviewItem(ctx context.Context, ref models.ContentRef, rt models.ReviewType, flaggedBy uuid.UUID) (*models.ReviewQueueItem, bool, error) {
	for attempt := 0; attempt < pendingItemAttempts; attempt++ {
		var createdID uuid.UUID
		err := d.q.QueryRow(ctx, `
			INSERT INTO review_queue_items (content_type, content_id, review_type, flagged_by)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (content_type, content_id, review_type) WHERE status = 'pending' DO NOTHING
			RETURNING id
		`, ref.Type, ref.ID, rt, flaggedBy).Scan(&createdID)
		created := err == nil
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, false, err
		}

		item, err := scanReviewItem(d.q.QueryRow(ctx, `
			SELECT `+reviewItemColumns+`
			FROM review_queue_items
			WHERE content_type = $1 AND content_id = $2 AND review_type = $3 AND status = $4
			FOR UPDATE
		`, ref.Type, ref.ID, rt, models.ReviewPending))
		if errors.Is(err, ErrReviewItemNotFound) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return item, created, nil
	}
	return nil, false, errPendingItemRace
}

// GetReviewItem retrieves a review item by ID.
func (d *Queries) GetReviewItem(ctx context.Context, id uuid.UUID) (*models.ReviewQueueItem, error) {
	return scanReviewItem(d.q.QueryRow(ctx, `SELECT `+reviewItemColumns+` FROM review_queue_items WHERE id = $1`, id))
}

// LockReviewItem retrieves a review item and locks it for the rest of the transaction.
func (d *Queries) LockReviewItem(ctx context.Context, id uuid.UUID) (*models.ReviewQueueItem, error) {
	return scanReviewItem(d.q.QueryRow(ctx, `SELECT `+reviewItemColumns+` FROM review_queue_items WHERE id = $1 FOR UPDATE`, id))
}

// ListPendingReviewItems returns the oldest pending items of a review type
// that viewerID neither owns nor has voted on.
func (d *Queries) ListPendingReviewItems(ctx context.Context, rt models.ReviewType, viewerID uuid.UUID, limit int) ([]models.ReviewQueueItem, error) {
	rows, err := d.q.Query(ctx, `
		SELECT i.id, i.content_type, i.content_id, i.review_type, i.flagged_by, i.status,
			i.hide_votes, i.keep_votes, i.created_at, i.resolved_at
		FROM review_queue_items i
		LEFT JOIN questions q ON i.content_type = 'question' AND q.id = i.content_id
		LEFT JOIN answers a ON i.content_type = 'answer' AND a.id = i.content_id
		LEFT JOIN comments c ON i.content_type = 'comment' AND c.id = i.content_id
		WHERE i.status = $1 AND i.review_type = $2
			AND COALESCE(q.owner_id, a.owner_id, c.owner_id) IS DISTINCT FROM $3
			AND NOT EXISTS (
				SELECT 1 FROM review_votes v
				WHERE v.review_queue_item_id = i.id AND v.user_id = $3
			)
		ORDER BY i.created_at ASC
		LIMIT $4
	`, models.ReviewPending, rt, viewerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.ReviewQueueItem
	for rows.Next() {
		item, err := scanReviewItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetReviewVote returns a user's vote on an item, or nil if there is none.
func (d *Queries) GetReviewVote(ctx context.Context, itemID, userID uuid.UUID) (*models.ReviewVote, error) {
	var v models.ReviewVote
	err := d.q.QueryRow(ctx, `
		SELECT review_queue_item_id, user_id, vote, created_at, updated_at
		FROM review_votes
		WHERE review_queue_item_id = $1 AND user_id = $2
	`, itemID, userID).Scan(&v.ItemID, &v.UserID, &v.Vote, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// UpsertReviewVote records a user's vote on an item, replacing an earlier
// one. created_at keeps the time of the first vote.
func (d *Queries) UpsertReviewVote(ctx context.Context, itemID, userID uuid.UUID, vote string) error {
	_, err := d.q.Exec(ctx, `
		INSERT INTO review_votes (review_queue_item_id, user_id, vote)
		VALUES ($1, $2, $3)
		ON CONFLICT (review_queue_item_id, user_id) DO UPDATE SET
			vote = EXCLUDED.vote,
			updated_at = NOW()
	`, itemID, userID, vote)
	return err
}

// GetReviewVotes returns every vote on an item, oldest first.
func (d *Queries) GetReviewVotes(ctx context.Context, itemID uuid.UUID) ([]models.ReviewVote, error) {
	rows, err := d.q.Query(ctx, `
		SELECT review_queue_item_id, user_id, vote, created_at, updated_at
		FROM review_votes
		WHERE review_queue_item_id = $1
		ORDER BY created_at ASC
	`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []models.ReviewVote
	for rows.Next() {
		var v models.ReviewVote
		if err := rows.Scan(&v.ItemID, &v.UserID, &v.Vote, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// UpdateReviewTally stores the cached vote split on an item.
func (d *Queries) UpdateReviewTally(ctx context.Context, itemID uuid.UUID, hide, keep int) error {
	_, err := d.q.Exec(ctx, `
		UPDATE review_queue_items SET hide_votes = $2, keep_votes = $3 WHERE id = $1
	`, itemID, hide, keep)
	return err
}

// ResolveReviewItem moves a pending item to approved or rejected.
func (d *Queries) ResolveReviewItem(ctx context.Context, itemID uuid.UUID, status string, at time.Time) error {
	result, err := d.q.Exec(ctx, `
		UPDATE review_queue_items SET status = $2, resolved_at = $3
		WHERE id = $1 AND status = $4
	`, itemID, status, at, models.ReviewPending)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrReviewItemNotFound
	}
	return nil
}

// CountReviewsSince counts distinct items of a review type the user first
// voted on at or after since.
func (d *Queries) CountReviewsSince(ctx context.Context, userID uuid.UUID, rt models.ReviewType, since time.Time) (int, error) {
	var count int
	err := d.q.QueryRow(ctx, `
		SELECT COUNT(DISTINCT v.review_queue_item_id)
		FROM review_votes v
		JOIN review_queue_items i ON i.id = v.review_queue_item_id
		WHERE v.user_id = $1 AND i.review_type = $2 AND v.created_at >= $3
	`, userID, rt, since).Scan(&count)
	return count, err
}

// CountPendingReviewItems returns the number of pending items per review type.
func (d *Queries) CountPendingReviewItems(ctx context.Context) (map[models.ReviewType]int, error) {
	rows, err := d.q.Query(ctx, `
		SELECT review_type, COUNT(*) FROM review_queue_items
		WHERE status = $1
		GROUP BY review_type
	`, models.ReviewPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.ReviewType]int)
	for rows.Next() {
		var rt models.ReviewType
		var n int
		if err := rows.Scan(&rt, &n); err != nil {
			return nil, err
		}
		counts[rt] = n
	}
	return counts, rows.Err()
}

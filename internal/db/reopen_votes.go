package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"qamod/internal/models"
)

// InsertReopenVote records an active reopen vote. Returns false when the
// user already has one on the question.
func (d *Queries) InsertReopenVote(ctx context.Context, v *models.ReopenVote) (bool, error) {
	err := d.q.QueryRow(ctx, `
		INSERT INTO reopen_votes (question_id, user_id, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (question_id, user_id) WHERE is_active DO NOTHING
		RETURNING id, is_active, created_at
	`, v.QuestionID, v.UserID, v.Reason).Scan(&v.ID, &v.IsActive, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetActiveReopenVotes returns the question's active reopen pool, oldest first.
func (d *Queries) GetActiveReopenVotes(ctx context.Context, questionID uuid.UUID) ([]models.ReopenVote, error) {
	rows, err := d.q.Query(ctx, `
		SELECT id, question_id, user_id, reason, is_active, created_at
		FROM reopen_votes
		WHERE question_id = $1 AND is_active
		ORDER BY created_at ASC, id ASC
	`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []models.ReopenVote
	for rows.Next() {
		var v models.ReopenVote
		if err := rows.Scan(&v.ID, &v.QuestionID, &v.UserID, &v.Reason, &v.IsActive, &v.CreatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// DeactivateReopenVotes retires the question's reopen pool.
func (d *Queries) DeactivateReopenVotes(ctx context.Context, questionID uuid.UUID) error {
	_, err := d.q.Exec(ctx, `UPDATE reopen_votes SET is_active = FALSE WHERE question_id = $1 AND is_active`, questionID)
	return err
}
